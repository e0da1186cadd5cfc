// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"libris/internal/model"
	"libris/internal/store"
)

// recordEvent writes an event log entry directly through the store.
func (e *testEnv) recordEvent(t *testing.T, message string, at time.Time) {
	t.Helper()
	_, err := store.New(e.db).CreateEvent(context.Background(), store.CreateEventParams{
		Level:     model.EventLevelWarning,
		Category:  model.EventCategorySystem,
		Message:   message,
		Metadata:  "{}",
		CreatedAt: at,
	})
	require.NoError(t, err)
}

func TestEventsList(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	now := time.Now()
	e.recordEvent(t, "disk almost full", now.Add(-time.Hour))
	e.recordEvent(t, "borrow rejected, book not available", now)

	w := e.get(t, admin, "/events")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "disk almost full")
	require.Contains(t, body, "borrow rejected, book not available")
	require.Contains(t, body, "2 entries")
	require.Contains(t, body, "Page 1 of 1")
}

func TestEventsList_Empty(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	w := e.get(t, admin, "/events")

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "No events recorded.")
}

func TestEventsList_Pagination(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	now := time.Now()
	for i := 0; i < eventsPerPage+5; i++ {
		e.recordEvent(t, fmt.Sprintf("event %d", i), now.Add(time.Duration(i)*time.Second))
	}

	first := e.get(t, admin, "/events")
	require.Equal(t, http.StatusOK, first.Code)
	body := first.Body.String()
	require.Contains(t, body, fmt.Sprintf("event %d", eventsPerPage+4)) // newest first
	require.NotContains(t, body, "event 0")
	require.Contains(t, body, "Page 1 of 2")
	require.Contains(t, body, "/events?page=2")

	second := e.get(t, admin, "/events?page=2")
	require.Equal(t, http.StatusOK, second.Code)
	body = second.Body.String()
	require.Contains(t, body, "event 0")
	require.Contains(t, body, "Page 2 of 2")
	require.Contains(t, body, "/events?page=1")
}

func TestEventsList_PageClamped(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	e.recordEvent(t, "lonely event", time.Now())

	w := e.get(t, admin, "/events?page=99")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "lonely event")
	require.Contains(t, body, "Page 1 of 1")
}
