// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Book represents a catalog entry. Available is false exactly while one open
// loan ledger row exists for the book.
type Book struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Year      sql.NullInt64 `json:"year,omitempty"`
	Available bool          `json:"available"`
	AddedDate time.Time     `json:"added_date"`
}
