// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package catalog implements the library catalog: book CRUD, search,
// user accounts, and the borrow/return lifecycle. It is the only caller of
// the store layer and converts storage failures into degraded results
// (empty lists for reads, false for writes) so the web layer never sees a
// database error.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"libris/internal/auth"
	"libris/internal/model"
	"libris/internal/store"
)

// Service owns catalog semantics over the store layer.
type Service struct {
	db      *sql.DB
	queries *store.Queries
}

// New creates a catalog service.
func New(db *sql.DB) *Service {
	return &Service{db: db, queries: store.New(db)}
}

// CreateBook validates and inserts a new book, returning its id.
// New books are always available.
func (s *Service) CreateBook(ctx context.Context, title, author string, year sql.NullInt64) (int64, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return 0, errors.New("title and author are required")
	}

	book, err := s.queries.CreateBook(ctx, store.CreateBookParams{
		Title:     title,
		Author:    author,
		Year:      year,
		Available: true,
		AddedDate: time.Now(),
	})
	if err != nil {
		slog.Error("creating book", "title", title, "error", err)
		return 0, errors.New("could not save book")
	}

	slog.Info("book added", "category", model.EventCategoryBook, "id", book.ID, "title", book.Title)
	return book.ID, nil
}

// GetBook fetches a single book.
func (s *Service) GetBook(ctx context.Context, id int64) (model.Book, bool) {
	book, err := s.queries.GetBookByID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("fetching book", "id", id, "error", err)
		}
		return model.Book{}, false
	}
	return book, true
}

// ListBooks returns the full catalog ordered by title. Storage errors
// degrade to an empty list.
func (s *Service) ListBooks(ctx context.Context) []model.Book {
	books, err := s.queries.ListBooks(ctx)
	if err != nil {
		slog.Error("listing books", "error", err)
		return nil
	}
	return books
}

// SearchBooks returns books whose title or author contains the query.
// An empty query returns the full catalog.
func (s *Service) SearchBooks(ctx context.Context, query string) []model.Book {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListBooks(ctx)
	}

	books, err := s.queries.SearchBooks(ctx, query)
	if err != nil {
		slog.Error("searching books", "query", query, "error", err)
		return nil
	}
	return books
}

// ListAvailableBooks returns books currently on the shelf.
func (s *Service) ListAvailableBooks(ctx context.Context) []model.Book {
	books, err := s.queries.ListAvailableBooks(ctx)
	if err != nil {
		slog.Error("listing available books", "error", err)
		return nil
	}
	return books
}

// ListRecentBooks returns the most recently added books.
func (s *Service) ListRecentBooks(ctx context.Context, limit int64) []model.Book {
	books, err := s.queries.ListRecentBooks(ctx, limit)
	if err != nil {
		slog.Error("listing recent books", "error", err)
		return nil
	}
	return books
}

// ListActiveLoans returns the books currently out with their borrower and
// borrow date, newest loan first.
func (s *Service) ListActiveLoans(ctx context.Context) []model.BorrowedBook {
	loans, err := s.queries.ListBorrowedBooks(ctx)
	if err != nil {
		slog.Error("listing active loans", "error", err)
		return nil
	}
	return loans
}

// UpdateBook updates the bibliographic fields of a book. Availability is
// untouched; it only changes through Borrow and Return.
func (s *Service) UpdateBook(ctx context.Context, id int64, title, author string, year sql.NullInt64) bool {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return false
	}

	_, err := s.queries.UpdateBook(ctx, store.UpdateBookParams{
		ID:     id,
		Title:  title,
		Author: author,
		Year:   year,
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("updating book", "id", id, "error", err)
		}
		return false
	}

	slog.Info("book updated", "category", model.EventCategoryBook, "id", id, "title", title)
	return true
}

// DeleteBook removes a book and, via cascade, its loan history.
func (s *Service) DeleteBook(ctx context.Context, id int64) bool {
	book, err := s.queries.GetBookByID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("fetching book for delete", "id", id, "error", err)
		}
		return false
	}

	if err := s.queries.DeleteBook(ctx, id); err != nil {
		slog.Error("deleting book", "id", id, "error", err)
		return false
	}

	slog.Warn("book deleted", "category", model.EventCategoryBook, "id", id, "title", book.Title)
	return true
}

// Borrow moves a book from AVAILABLE to BORROWED and opens a loan, in one
// transaction. The availability flip is a conditional update: when several
// borrowers race, exactly one succeeds and the rest observe zero affected
// rows, roll back, and get false. False is also returned for an unknown
// book. No partial state is ever left behind.
func (s *Service) Borrow(ctx context.Context, bookID int64, borrower string) bool {
	borrower = strings.TrimSpace(borrower)
	if borrower == "" {
		return false
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("beginning borrow transaction", "book_id", bookID, "error", err)
		return false
	}
	defer tx.Rollback()

	q := s.queries.WithTx(tx)

	flipped, err := q.MarkBookBorrowed(ctx, bookID)
	if err != nil {
		slog.Error("borrowing book", "book_id", bookID, "error", err)
		return false
	}
	if !flipped {
		slog.Warn("borrow rejected, book not available",
			"category", model.EventCategoryLoan, "book_id", bookID, "borrower", borrower)
		return false
	}

	if _, err := q.CreateLoan(ctx, store.CreateLoanParams{
		BookID:     bookID,
		Borrower:   borrower,
		BorrowDate: time.Now(),
	}); err != nil {
		slog.Error("opening loan", "book_id", bookID, "error", err)
		return false
	}

	if err := tx.Commit(); err != nil {
		slog.Error("committing borrow", "book_id", bookID, "error", err)
		return false
	}

	slog.Info("book borrowed", "category", model.EventCategoryLoan, "book_id", bookID, "borrower", borrower)
	return true
}

// Return moves a book from BORROWED back to AVAILABLE and stamps the open
// loan's return date, in one transaction. False for an unknown book, a book
// that is not out, or a book with no open loan.
func (s *Service) Return(ctx context.Context, bookID int64) bool {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("beginning return transaction", "book_id", bookID, "error", err)
		return false
	}
	defer tx.Rollback()

	q := s.queries.WithTx(tx)

	flipped, err := q.MarkBookReturned(ctx, bookID)
	if err != nil {
		slog.Error("returning book", "book_id", bookID, "error", err)
		return false
	}
	if !flipped {
		slog.Warn("return rejected, book not borrowed",
			"category", model.EventCategoryLoan, "book_id", bookID)
		return false
	}

	loan, err := q.GetOpenLoanByBookID(ctx, bookID)
	if err != nil {
		// Availability said borrowed but no open loan exists; roll back
		// rather than leave the two tables disagreeing.
		slog.Error("finding open loan", "book_id", bookID, "error", err)
		return false
	}

	closed, err := q.CloseLoan(ctx, store.CloseLoanParams{ID: loan.ID, ReturnDate: time.Now()})
	if err != nil || !closed {
		slog.Error("closing loan", "book_id", bookID, "loan_id", loan.ID, "error", err)
		return false
	}

	if err := tx.Commit(); err != nil {
		slog.Error("committing return", "book_id", bookID, "error", err)
		return false
	}

	slog.Info("book returned", "category", model.EventCategoryLoan, "book_id", bookID, "borrower", loan.Borrower)
	return true
}

// CreateUser validates and inserts a new user account. False on empty
// fields, an invalid role, a duplicate username, or storage failure.
func (s *Service) CreateUser(ctx context.Context, username, password, role, fullName string, email sql.NullString) bool {
	username = strings.TrimSpace(username)
	fullName = strings.TrimSpace(fullName)
	if username == "" || password == "" || fullName == "" {
		return false
	}
	if !model.IsValidRole(role) {
		slog.Warn("rejected user with invalid role", "category", model.EventCategoryUser, "role", role)
		return false
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("hashing password", "username", username, "error", err)
		return false
	}

	user, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		FullName:     fullName,
		Email:        email,
		CreatedDate:  time.Now(),
	})
	if err != nil {
		// Duplicate username lands here via the unique constraint.
		slog.Warn("creating user failed", "category", model.EventCategoryUser, "username", username, "error", err)
		return false
	}

	slog.Info("user created", "category", model.EventCategoryUser, "id", user.ID, "username", user.Username, "role", user.Role)
	return true
}

// Authenticate verifies a username/password pair and returns the identity on
// success. Unknown users and wrong passwords are indistinguishable to the
// caller. Accounts still carrying a legacy hash are transparently upgraded
// to argon2id after a successful check.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, bool) {
	user, err := s.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("fetching user for login", "error", err)
		}
		return nil, false
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, false
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehashPassword(ctx, user.ID, username, password)
	}

	return &user, true
}

// rehashPassword upgrades a stored hash to current parameters. A failure
// here never blocks the login.
func (s *Service) rehashPassword(ctx context.Context, userID int64, username, password string) {
	newHash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("rehashing password", "username", username, "error", err)
		return
	}
	if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		ID:           userID,
		PasswordHash: newHash,
	}); err != nil {
		slog.Error("storing rehashed password", "username", username, "error", err)
		return
	}
	slog.Info("password hash upgraded", "category", model.EventCategoryAuth, "username", username)
}

// GetUser fetches a user by id, for session restoration.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, bool) {
	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("fetching user", "id", id, "error", err)
		}
		return nil, false
	}
	return &user, true
}

// ListUsers returns all accounts, newest first.
func (s *Service) ListUsers(ctx context.Context) []model.User {
	users, err := s.queries.ListUsers(ctx)
	if err != nil {
		slog.Error("listing users", "error", err)
		return nil
	}
	return users
}

// CountUsers returns the number of accounts, zero on storage failure.
func (s *Service) CountUsers(ctx context.Context) int64 {
	count, err := s.queries.CountUsers(ctx)
	if err != nil {
		slog.Error("counting users", "error", err)
	}
	return count
}

// DeleteUser removes an account. False for an unknown id or storage
// failure. Guarding against an admin deleting their own account is the
// caller's job; the catalog only knows ids.
func (s *Service) DeleteUser(ctx context.Context, id int64) bool {
	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("fetching user for delete", "id", id, "error", err)
		}
		return false
	}

	if err := s.queries.DeleteUser(ctx, id); err != nil {
		slog.Error("deleting user", "id", id, "error", err)
		return false
	}

	slog.Warn("user deleted", "category", model.EventCategoryUser, "id", id, "username", user.Username)
	return true
}

// ListBookLoans returns a book's full loan ledger, oldest loan first.
func (s *Service) ListBookLoans(ctx context.Context, bookID int64) []model.Loan {
	loans, err := s.queries.ListLoansForBook(ctx, bookID)
	if err != nil {
		slog.Error("listing loans for book", "book_id", bookID, "error", err)
		return nil
	}
	return loans
}

// ListEvents returns one page of the event log, newest first.
func (s *Service) ListEvents(ctx context.Context, limit, offset int64) []model.Event {
	events, err := s.queries.ListEvents(ctx, store.ListEventsParams{Limit: limit, Offset: offset})
	if err != nil {
		slog.Error("listing events", "error", err)
		return nil
	}
	return events
}

// CountEvents returns the event log size, zero on storage failure.
func (s *Service) CountEvents(ctx context.Context) int64 {
	count, err := s.queries.CountEvents(ctx)
	if err != nil {
		slog.Error("counting events", "error", err)
	}
	return count
}

// Stats holds the dashboard counters.
type Stats struct {
	TotalBooks     int64 `json:"total_books"`
	AvailableBooks int64 `json:"available_books"`
	BorrowedBooks  int64 `json:"borrowed_books"`
}

// Stats returns the catalog counters. Each counter degrades to zero
// independently on storage failure.
func (s *Service) Stats(ctx context.Context) Stats {
	var st Stats
	var err error

	if st.TotalBooks, err = s.queries.CountBooks(ctx); err != nil {
		slog.Error("counting books", "error", err)
	}
	if st.AvailableBooks, err = s.queries.CountAvailableBooks(ctx); err != nil {
		slog.Error("counting available books", "error", err)
	}
	if st.BorrowedBooks, err = s.queries.CountOpenLoans(ctx); err != nil {
		slog.Error("counting open loans", "error", err)
	}
	return st
}

// Ping reports database reachability for health checks.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
