package store

import (
	"context"
	"database/sql"
	"time"

	"libris/internal/model"
)

const createUser = `
INSERT INTO users (username, password_hash, role, full_name, email, created_date)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, username, password_hash, role, full_name, email, created_date
`

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	Role         string
	FullName     string
	Email        sql.NullString
	CreatedDate  time.Time
}

// CreateUser inserts a new user and returns the created row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.PasswordHash,
		arg.Role,
		arg.FullName,
		arg.Email,
		arg.CreatedDate,
	)
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.Email, &u.CreatedDate)
	return u, err
}

const getUserByID = `
SELECT id, username, password_hash, role, full_name, email, created_date
FROM users WHERE id = ?
`

// GetUserByID fetches a single user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.Email, &u.CreatedDate)
	return u, err
}

const getUserByUsername = `
SELECT id, username, password_hash, role, full_name, email, created_date
FROM users WHERE username = ?
`

// GetUserByUsername fetches a single user by username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.Email, &u.CreatedDate)
	return u, err
}

const listUsers = `
SELECT id, username, password_hash, role, full_name, email, created_date
FROM users ORDER BY created_date DESC, id DESC
`

// ListUsers returns all users, newest first.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.Email, &u.CreatedDate); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const countUsers = `SELECT COUNT(*) FROM users`

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}

const updateUserPassword = `UPDATE users SET password_hash = ? WHERE id = ?`

// UpdateUserPasswordParams holds the fields for updating a user's password hash.
type UpdateUserPasswordParams struct {
	ID           int64
	PasswordHash string
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.ID)
	return err
}

const deleteUser = `DELETE FROM users WHERE id = ?`

// DeleteUser removes a user by id.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}
