package store

import (
	"context"
	"database/sql"
	"time"

	"libris/internal/model"
)

const createBook = `
INSERT INTO books (title, author, year, available, added_date)
VALUES (?, ?, ?, ?, ?)
RETURNING id, title, author, year, available, added_date
`

// CreateBookParams holds the fields for creating a book.
type CreateBookParams struct {
	Title     string
	Author    string
	Year      sql.NullInt64
	Available bool
	AddedDate time.Time
}

// CreateBook inserts a new book and returns the created row.
func (q *Queries) CreateBook(ctx context.Context, arg CreateBookParams) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, createBook,
		arg.Title,
		arg.Author,
		arg.Year,
		arg.Available,
		arg.AddedDate,
	)
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Available, &b.AddedDate)
	return b, err
}

const getBookByID = `
SELECT id, title, author, year, available, added_date
FROM books WHERE id = ?
`

// GetBookByID fetches a single book by primary key.
func (q *Queries) GetBookByID(ctx context.Context, id int64) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, getBookByID, id)
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Available, &b.AddedDate)
	return b, err
}

const listBooks = `
SELECT id, title, author, year, available, added_date
FROM books ORDER BY title COLLATE NOCASE
`

// ListBooks returns all books ordered by title.
func (q *Queries) ListBooks(ctx context.Context) ([]model.Book, error) {
	return q.queryBooks(ctx, listBooks)
}

const listAvailableBooks = `
SELECT id, title, author, year, available, added_date
FROM books WHERE available = 1 ORDER BY title COLLATE NOCASE
`

// ListAvailableBooks returns books that are currently on the shelf.
func (q *Queries) ListAvailableBooks(ctx context.Context) ([]model.Book, error) {
	return q.queryBooks(ctx, listAvailableBooks)
}

const searchBooks = `
SELECT id, title, author, year, available, added_date
FROM books
WHERE title LIKE '%' || ? || '%' OR author LIKE '%' || ? || '%'
ORDER BY title COLLATE NOCASE
`

// SearchBooks returns books whose title or author contains the query,
// case-insensitively for ASCII.
func (q *Queries) SearchBooks(ctx context.Context, query string) ([]model.Book, error) {
	return q.queryBooks(ctx, searchBooks, query, query)
}

func (q *Queries) queryBooks(ctx context.Context, query string, args ...any) ([]model.Book, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Available, &b.AddedDate); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

const listRecentBooks = `
SELECT id, title, author, year, available, added_date
FROM books ORDER BY added_date DESC, id DESC
LIMIT ?
`

// ListRecentBooks returns the most recently added books.
func (q *Queries) ListRecentBooks(ctx context.Context, limit int64) ([]model.Book, error) {
	return q.queryBooks(ctx, listRecentBooks, limit)
}

const updateBook = `
UPDATE books SET title = ?, author = ?, year = ?
WHERE id = ?
RETURNING id, title, author, year, available, added_date
`

// UpdateBookParams holds the editable fields of a book. Availability is
// changed only through MarkBookBorrowed and MarkBookReturned.
type UpdateBookParams struct {
	ID     int64
	Title  string
	Author string
	Year   sql.NullInt64
}

// UpdateBook updates the bibliographic fields of a book.
func (q *Queries) UpdateBook(ctx context.Context, arg UpdateBookParams) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, updateBook, arg.Title, arg.Author, arg.Year, arg.ID)
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Available, &b.AddedDate)
	return b, err
}

const markBookBorrowed = `UPDATE books SET available = 0 WHERE id = ? AND available = 1`

// MarkBookBorrowed flips a book to unavailable, but only when it is currently
// available. Returns false when the book was already borrowed or does not
// exist, which is how concurrent borrow attempts lose the race.
func (q *Queries) MarkBookBorrowed(ctx context.Context, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, markBookBorrowed, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const markBookReturned = `UPDATE books SET available = 1 WHERE id = ? AND available = 0`

// MarkBookReturned flips a book back to available, but only when it is
// currently borrowed.
func (q *Queries) MarkBookReturned(ctx context.Context, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, markBookReturned, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const deleteBook = `DELETE FROM books WHERE id = ?`

// DeleteBook removes a book by id. Loan history rows are removed by the
// foreign key cascade.
func (q *Queries) DeleteBook(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteBook, id)
	return err
}

const countBooks = `SELECT COUNT(*) FROM books`

// CountBooks returns the total number of books.
func (q *Queries) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countBooks).Scan(&count)
	return count, err
}

const countAvailableBooks = `SELECT COUNT(*) FROM books WHERE available = 1`

// CountAvailableBooks returns the number of books currently on the shelf.
func (q *Queries) CountAvailableBooks(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countAvailableBooks).Scan(&count)
	return count, err
}
