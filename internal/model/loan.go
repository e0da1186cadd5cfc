// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Loan is one ledger row recording a borrow-to-return cycle for a book.
// A null ReturnDate means the loan is still active.
type Loan struct {
	ID         int64        `json:"id"`
	BookID     int64        `json:"book_id"`
	Borrower   string       `json:"borrower"`
	BorrowDate time.Time    `json:"borrow_date"`
	ReturnDate sql.NullTime `json:"return_date,omitempty"`
}

// Active reports whether the loan is still open.
func (l *Loan) Active() bool {
	return !l.ReturnDate.Valid
}

// BorrowedBook is the joined view of a book and its open loan, as shown on
// the dashboard and return screens.
type BorrowedBook struct {
	BookID     int64     `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Borrower   string    `json:"borrower"`
	BorrowDate time.Time `json:"borrow_date"`
}
