package store

import (
	"context"
	"time"

	"libris/internal/model"
)

const createLoan = `
INSERT INTO borrowed_books (book_id, borrower, borrow_date)
VALUES (?, ?, ?)
RETURNING id, book_id, borrower, borrow_date, return_date
`

// CreateLoanParams holds the fields for opening a loan.
type CreateLoanParams struct {
	BookID     int64
	Borrower   string
	BorrowDate time.Time
}

// CreateLoan opens a loan for a book. The partial unique index on open loans
// rejects a second open loan for the same book.
func (q *Queries) CreateLoan(ctx context.Context, arg CreateLoanParams) (model.Loan, error) {
	row := q.db.QueryRowContext(ctx, createLoan, arg.BookID, arg.Borrower, arg.BorrowDate)
	var l model.Loan
	err := row.Scan(&l.ID, &l.BookID, &l.Borrower, &l.BorrowDate, &l.ReturnDate)
	return l, err
}

const getOpenLoanByBookID = `
SELECT id, book_id, borrower, borrow_date, return_date
FROM borrowed_books WHERE book_id = ? AND return_date IS NULL
`

// GetOpenLoanByBookID fetches the open loan for a book, or sql.ErrNoRows when
// the book is not out.
func (q *Queries) GetOpenLoanByBookID(ctx context.Context, bookID int64) (model.Loan, error) {
	row := q.db.QueryRowContext(ctx, getOpenLoanByBookID, bookID)
	var l model.Loan
	err := row.Scan(&l.ID, &l.BookID, &l.Borrower, &l.BorrowDate, &l.ReturnDate)
	return l, err
}

const closeLoan = `
UPDATE borrowed_books SET return_date = ?
WHERE id = ? AND return_date IS NULL
`

// CloseLoanParams holds the fields for closing a loan.
type CloseLoanParams struct {
	ID         int64
	ReturnDate time.Time
}

// CloseLoan stamps the return date on an open loan. Returns false when the
// loan was already closed.
func (q *Queries) CloseLoan(ctx context.Context, arg CloseLoanParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, closeLoan, arg.ReturnDate, arg.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const listBorrowedBooks = `
SELECT b.id, b.title, b.author, bb.borrower, bb.borrow_date
FROM borrowed_books bb
JOIN books b ON b.id = bb.book_id
WHERE bb.return_date IS NULL
ORDER BY bb.borrow_date DESC, bb.id DESC
`

// ListBorrowedBooks returns the books currently out, newest loan first.
func (q *Queries) ListBorrowedBooks(ctx context.Context) ([]model.BorrowedBook, error) {
	rows, err := q.db.QueryContext(ctx, listBorrowedBooks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BorrowedBook
	for rows.Next() {
		var bb model.BorrowedBook
		if err := rows.Scan(&bb.BookID, &bb.Title, &bb.Author, &bb.Borrower, &bb.BorrowDate); err != nil {
			return nil, err
		}
		out = append(out, bb)
	}
	return out, rows.Err()
}

const listLoansForBook = `
SELECT id, book_id, borrower, borrow_date, return_date
FROM borrowed_books WHERE book_id = ? ORDER BY borrow_date
`

// ListLoansForBook returns the full loan history of a book, open loan last.
func (q *Queries) ListLoansForBook(ctx context.Context, bookID int64) ([]model.Loan, error) {
	rows, err := q.db.QueryContext(ctx, listLoansForBook, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		var l model.Loan
		if err := rows.Scan(&l.ID, &l.BookID, &l.Borrower, &l.BorrowDate, &l.ReturnDate); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

const countOpenLoans = `SELECT COUNT(*) FROM borrowed_books WHERE return_date IS NULL`

// CountOpenLoans returns the number of books currently out.
func (q *Queries) CountOpenLoans(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countOpenLoans).Scan(&count)
	return count, err
}
