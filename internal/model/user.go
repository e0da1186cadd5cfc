// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application: User, Book, Loan, and event log structures.
package model

import (
	"database/sql"
	"time"
)

// User roles, hierarchical: admin > librarian > user.
const (
	RoleAdmin     = "admin"
	RoleLibrarian = "librarian"
	RoleUser      = "user"
)

// ValidRoles contains all valid user roles.
var ValidRoles = []string{RoleAdmin, RoleLibrarian, RoleUser}

// IsValidRole reports whether role is one of the three enumerated roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a library system account.
type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	PasswordHash string         `json:"-"` // Never expose in JSON
	Role         string         `json:"role"`
	FullName     string         `json:"full_name"`
	Email        sql.NullString `json:"email,omitempty"`
	CreatedDate  time.Time      `json:"created_date"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanManageBooks returns true if the user may add, edit, or delete books.
// Librarians and admins can; regular users cannot.
func (u *User) CanManageBooks() bool {
	return u.Role == RoleAdmin || u.Role == RoleLibrarian
}

// DisplayIdentity is the composite identity recorded on loan ledger rows,
// in the form "Full Name (username)".
func (u *User) DisplayIdentity() string {
	return u.FullName + " (" + u.Username + ")"
}
