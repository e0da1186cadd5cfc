// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package importer

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"libris/internal/auth"
	"libris/internal/store"
)

// sourceDB builds a throwaway database with the legacy MySQL schema shape:
// users carry a password_hash column and the ledger names its column
// borrower. SQLite stands in for MySQL here; the importer only sees
// database/sql.
func sourceDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "libris-import-src-*.db")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	db, err := sql.Open("sqlite", f.Name())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(f.Name())
	})

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			full_name TEXT NOT NULL,
			email TEXT,
			created_date TIMESTAMP
		);
		CREATE TABLE books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			year INTEGER,
			available INTEGER NOT NULL DEFAULT 1,
			added_date TIMESTAMP
		);
		CREATE TABLE borrowed_books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id INTEGER NOT NULL,
			borrower TEXT NOT NULL,
			borrow_date TIMESTAMP,
			return_date TIMESTAMP
		);
	`)
	require.NoError(t, err)

	return db
}

func destDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "libris-import-dst-*.db")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	db, err := store.NewDB(f.Name())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(f.Name())
	})

	return db
}

func TestImport(t *testing.T) {
	src := sourceDB(t)
	dst := destDB(t)
	ctx := context.Background()

	legacyHash := auth.LegacyHash("admin123")
	now := time.Now()

	_, err := src.Exec(`INSERT INTO users (username, password_hash, role, full_name, email, created_date) VALUES
		('admin', ?, 'admin', 'System Administrator', 'admin@library.com', ?),
		('reader', ?, 'user', 'Regular User', NULL, ?)`,
		legacyHash, now, auth.LegacyHash("user123"), now)
	require.NoError(t, err)

	_, err = src.Exec(`INSERT INTO books (id, title, author, year, available, added_date) VALUES
		(10, '1984', 'George Orwell', 1949, 0, ?),
		(20, 'Animal Farm', 'George Orwell', 1945, 1, ?),
		(30, 'Untitled', 'Anonymous', NULL, 1, ?)`, now, now, now)
	require.NoError(t, err)

	_, err = src.Exec(`INSERT INTO borrowed_books (book_id, borrower, borrow_date, return_date) VALUES
		(10, 'Regular User (reader)', ?, NULL),
		(20, 'Regular User (reader)', ?, ?)`,
		now, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)

	sum, err := Import(ctx, src, dst)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Users)
	require.Equal(t, 3, sum.Books)
	require.Equal(t, 2, sum.Loans)

	q := store.New(dst)

	// Legacy password hash survives verbatim.
	admin, err := q.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, legacyHash, admin.PasswordHash)
	ok, err := auth.CheckPassword("admin123", admin.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	// The borrowed book stays borrowed with its open loan intact.
	loans, err := q.ListBorrowedBooks(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, "1984", loans[0].Title)
	require.Equal(t, "Regular User (reader)", loans[0].Borrower)

	available, err := q.CountAvailableBooks(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), available)

	total, err := q.CountBooks(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
}

func TestImport_EmptySource(t *testing.T) {
	src := sourceDB(t)
	dst := destDB(t)

	sum, err := Import(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, Summary{}, sum)
}

func TestImport_ConflictingUsernameRollsBack(t *testing.T) {
	src := sourceDB(t)
	dst := destDB(t)
	ctx := context.Background()

	// The destination already has an account with the same username, as it
	// would after seeding.
	_, err := store.New(dst).CreateUser(ctx, store.CreateUserParams{
		Username:     "admin",
		PasswordHash: "existing-hash",
		Role:         "admin",
		FullName:     "Resident Admin",
		CreatedDate:  time.Now(),
	})
	require.NoError(t, err)

	_, err = src.Exec(`INSERT INTO users (username, password_hash, role, full_name, created_date) VALUES
		('admin', 'imported-hash', 'admin', 'Imported Admin', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = src.Exec(`INSERT INTO books (title, author, available, added_date) VALUES
		('Orphan', 'Nobody', 1, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = Import(ctx, src, dst)
	require.Error(t, err)

	// Nothing from the failed import sticks; the resident account is intact.
	q := store.New(dst)
	resident, err := q.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, "existing-hash", resident.PasswordHash)

	users, err := q.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), users)

	books, err := q.CountBooks(ctx)
	require.NoError(t, err)
	require.Zero(t, books)
}

func TestImport_DuplicateOpenLoanRollsBack(t *testing.T) {
	src := sourceDB(t)
	dst := destDB(t)
	ctx := context.Background()

	// The legacy schema never enforced one open loan per book, so a corrupt
	// dump can carry two. The destination's partial unique index rejects the
	// second, and the users and books written before it must not survive.
	_, err := src.Exec(`INSERT INTO users (username, password_hash, role, full_name, created_date) VALUES
		('reader', 'hash', 'user', 'Regular User', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = src.Exec(`INSERT INTO books (id, title, author, available, added_date) VALUES
		(1, 'Twice Out', 'Author', 0, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = src.Exec(`INSERT INTO borrowed_books (book_id, borrower, borrow_date, return_date) VALUES
		(1, 'First Borrower', CURRENT_TIMESTAMP, NULL),
		(1, 'Second Borrower', CURRENT_TIMESTAMP, NULL)`)
	require.NoError(t, err)

	_, err = Import(ctx, src, dst)
	require.Error(t, err)

	q := store.New(dst)
	users, err := q.CountUsers(ctx)
	require.NoError(t, err)
	require.Zero(t, users)

	books, err := q.CountBooks(ctx)
	require.NoError(t, err)
	require.Zero(t, books)
}

func TestImport_SkipsLoanForMissingBook(t *testing.T) {
	src := sourceDB(t)
	dst := destDB(t)
	ctx := context.Background()

	_, err := src.Exec(`INSERT INTO books (id, title, author, available, added_date) VALUES
		(1, 'Kept', 'Author', 1, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = src.Exec(`INSERT INTO borrowed_books (book_id, borrower, borrow_date, return_date) VALUES
		(99, 'Ghost Borrower', CURRENT_TIMESTAMP, NULL)`)
	require.NoError(t, err)

	sum, err := Import(ctx, src, dst)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Books)
	require.Zero(t, sum.Loans)
}
