package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"libris/internal/auth"
	"libris/internal/model"
)

// Demo accounts created by Seed. Passwords are printed at startup so a fresh
// install is usable immediately; change them before exposing the server.
const (
	DefaultAdminUsername     = "admin"
	DefaultAdminPassword     = "admin123"
	DefaultLibrarianUsername = "librarian"
	DefaultLibrarianPassword = "lib123"
	DefaultUserUsername      = "user"
	DefaultUserPassword      = "user123"
)

type seedUser struct {
	username string
	password string
	role     string
	fullName string
	email    string
}

type seedBook struct {
	title  string
	author string
	year   int64
}

// Seed creates the demo users and, when seedDemoBooks is set, the starter
// catalog. It is idempotent: users and books are only inserted when their
// table is empty, so a restart never duplicates data.
func Seed(ctx context.Context, db *sql.DB, seedDemoBooks bool) error {
	queries := New(db)

	if err := seedUsers(ctx, queries); err != nil {
		return err
	}
	if !seedDemoBooks {
		return nil
	}
	return seedBooks(ctx, queries)
}

func seedUsers(ctx context.Context, queries *Queries) error {
	_, err := queries.GetUserByUsername(ctx, DefaultAdminUsername)
	if err == nil {
		slog.Info("admin user already exists, skipping user seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	users := []seedUser{
		{DefaultAdminUsername, DefaultAdminPassword, model.RoleAdmin, "System Administrator", "admin@library.com"},
		{DefaultLibrarianUsername, DefaultLibrarianPassword, model.RoleLibrarian, "Library Manager", "librarian@library.com"},
		{DefaultUserUsername, DefaultUserPassword, model.RoleUser, "Regular User", "user@library.com"},
	}

	now := time.Now()
	for _, su := range users {
		passwordHash, err := auth.HashPassword(su.password)
		if err != nil {
			return fmt.Errorf("hashing password for %s: %w", su.username, err)
		}

		user, err := queries.CreateUser(ctx, CreateUserParams{
			Username:     su.username,
			PasswordHash: passwordHash,
			Role:         su.role,
			FullName:     su.fullName,
			Email:        sql.NullString{String: su.email, Valid: true},
			CreatedDate:  now,
		})
		if err != nil {
			return fmt.Errorf("creating user %s: %w", su.username, err)
		}

		slog.Info("created demo user",
			"id", user.ID,
			"username", user.Username,
			"role", user.Role,
			"password", su.password,
		)
	}

	return nil
}

func seedBooks(ctx context.Context, queries *Queries) error {
	count, err := queries.CountBooks(ctx)
	if err != nil {
		return fmt.Errorf("counting books: %w", err)
	}
	if count > 0 {
		slog.Info("books already exist, skipping book seed")
		return nil
	}

	books := []seedBook{
		{"The Great Gatsby", "F. Scott Fitzgerald", 1925},
		{"To Kill a Mockingbird", "Harper Lee", 1960},
		{"1984", "George Orwell", 1949},
		{"Pride and Prejudice", "Jane Austen", 1813},
		{"The Catcher in the Rye", "J.D. Salinger", 1951},
	}

	now := time.Now()
	for _, sb := range books {
		if _, err := queries.CreateBook(ctx, CreateBookParams{
			Title:     sb.title,
			Author:    sb.author,
			Year:      sql.NullInt64{Int64: sb.year, Valid: true},
			Available: true,
			AddedDate: now,
		}); err != nil {
			return fmt.Errorf("creating book %q: %w", sb.title, err)
		}
	}

	slog.Info("created starter catalog", "books", len(books))
	return nil
}
