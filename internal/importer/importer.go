// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package importer copies a legacy MySQL library database into the local
// SQLite store. Password hashes come across unchanged; legacy SHA-256
// accounts keep working and are upgraded to argon2id on their next login.
package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"libris/internal/store"
)

// Summary reports what an import moved.
type Summary struct {
	Users int
	Books int
	Loans int
}

// Import copies users, books, and the loan ledger from src into dst inside a
// single transaction. Book ids are reassigned by the destination; loan rows
// are remapped accordingly. Open loans stay open and availability is
// preserved, so a half-borrowed library imports as-is. Any failure rolls the
// whole import back.
func Import(ctx context.Context, src, dst *sql.DB) (Summary, error) {
	var sum Summary

	tx, err := dst.BeginTx(ctx, nil)
	if err != nil {
		return sum, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	q := store.New(dst).WithTx(tx)

	users, err := importUsers(ctx, src, q)
	if err != nil {
		return sum, err
	}
	sum.Users = users

	bookIDs, err := importBooks(ctx, src, q)
	if err != nil {
		return sum, err
	}
	sum.Books = len(bookIDs)

	loans, err := importLoans(ctx, src, q, bookIDs)
	if err != nil {
		return sum, err
	}
	sum.Loans = loans

	if err := tx.Commit(); err != nil {
		return sum, fmt.Errorf("committing import: %w", err)
	}

	slog.Info("import complete", "users", sum.Users, "books", sum.Books, "loans", sum.Loans)
	return sum, nil
}

func importUsers(ctx context.Context, src *sql.DB, q *store.Queries) (int, error) {
	rows, err := src.QueryContext(ctx,
		`SELECT username, password_hash, role, full_name, email, created_date FROM users ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("reading source users: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			username, passwordHash, role, fullName string
			email                                  sql.NullString
			createdDate                            sql.NullTime
		)
		if err := rows.Scan(&username, &passwordHash, &role, &fullName, &email, &createdDate); err != nil {
			return 0, fmt.Errorf("scanning source user: %w", err)
		}

		created := time.Now()
		if createdDate.Valid {
			created = createdDate.Time
		}

		if _, err := q.CreateUser(ctx, store.CreateUserParams{
			Username:     username,
			PasswordHash: passwordHash,
			Role:         role,
			FullName:     fullName,
			Email:        email,
			CreatedDate:  created,
		}); err != nil {
			return 0, fmt.Errorf("importing user %q: %w", username, err)
		}
		count++
	}
	return count, rows.Err()
}

// importBooks copies the catalog and returns the source-to-destination id
// mapping needed to remap loan rows.
func importBooks(ctx context.Context, src *sql.DB, q *store.Queries) (map[int64]int64, error) {
	rows, err := src.QueryContext(ctx,
		`SELECT id, title, author, year, available, added_date FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("reading source books: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]int64)
	for rows.Next() {
		var (
			srcID         int64
			title, author string
			year          sql.NullInt64
			available     bool
			addedDate     sql.NullTime
		)
		if err := rows.Scan(&srcID, &title, &author, &year, &available, &addedDate); err != nil {
			return nil, fmt.Errorf("scanning source book: %w", err)
		}

		added := time.Now()
		if addedDate.Valid {
			added = addedDate.Time
		}

		book, err := q.CreateBook(ctx, store.CreateBookParams{
			Title:     title,
			Author:    author,
			Year:      year,
			Available: available,
			AddedDate: added,
		})
		if err != nil {
			return nil, fmt.Errorf("importing book %q: %w", title, err)
		}
		ids[srcID] = book.ID
	}
	return ids, rows.Err()
}

func importLoans(ctx context.Context, src *sql.DB, q *store.Queries, bookIDs map[int64]int64) (int, error) {
	rows, err := src.QueryContext(ctx,
		`SELECT book_id, borrower, borrow_date, return_date FROM borrowed_books ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("reading source loans: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			srcBookID  int64
			borrower   string
			borrowDate sql.NullTime
			returnDate sql.NullTime
		)
		if err := rows.Scan(&srcBookID, &borrower, &borrowDate, &returnDate); err != nil {
			return 0, fmt.Errorf("scanning source loan: %w", err)
		}

		bookID, ok := bookIDs[srcBookID]
		if !ok {
			// Ledger row for a book that no longer exists; the source schema
			// cascades deletes, so this only happens with a corrupt dump.
			slog.Warn("skipping loan for unknown book", "source_book_id", srcBookID, "borrower", borrower)
			continue
		}

		borrowed := time.Now()
		if borrowDate.Valid {
			borrowed = borrowDate.Time
		}

		loan, err := q.CreateLoan(ctx, store.CreateLoanParams{
			BookID:     bookID,
			Borrower:   borrower,
			BorrowDate: borrowed,
		})
		if err != nil {
			return 0, fmt.Errorf("importing loan for book %d: %w", srcBookID, err)
		}

		if returnDate.Valid {
			if _, err := q.CloseLoan(ctx, store.CloseLoanParams{ID: loan.ID, ReturnDate: returnDate.Time}); err != nil {
				return 0, fmt.Errorf("closing imported loan %d: %w", loan.ID, err)
			}
		}
		count++
	}
	return count, rows.Err()
}
