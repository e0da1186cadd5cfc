// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"libris/internal/model"
)

func TestUserList(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")
	e.mustCreateUser(t, "reader", "secret123", model.RoleUser, "Test Reader")

	w := e.get(t, admin, "/users")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.True(t, strings.Contains(body, "boss"))
	require.True(t, strings.Contains(body, "reader"))
}

func TestUserAdd(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	w := e.postForm(t, admin, "/users/add", url.Values{
		"username":  {"newlib"},
		"password":  {"secret123"},
		"role":      {model.RoleLibrarian},
		"full_name": {"New Librarian"},
		"email":     {"newlib@library.com"},
	})

	assertRedirect(t, w, "/users")

	user, ok := e.svc.Authenticate(context.Background(), "newlib", "secret123")
	require.True(t, ok)
	require.Equal(t, model.RoleLibrarian, user.Role)
	require.True(t, user.Email.Valid)
	require.Equal(t, "newlib@library.com", user.Email.String)
}

func TestUserAdd_DuplicateUsername(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	form := url.Values{
		"username":  {"dupe"},
		"password":  {"secret123"},
		"role":      {model.RoleUser},
		"full_name": {"First One"},
	}
	assertRedirect(t, e.postForm(t, admin, "/users/add", form), "/users")

	form.Set("full_name", "Second One")
	assertRedirect(t, e.postForm(t, admin, "/users/add", form), "/users/add")

	users := e.svc.ListUsers(context.Background())
	require.Len(t, users, 2) // admin + the first dupe
}

func TestUserAdd_InvalidRole(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	w := e.postForm(t, admin, "/users/add", url.Values{
		"username":  {"sneaky"},
		"password":  {"secret123"},
		"role":      {"superadmin"},
		"full_name": {"Sneaky One"},
	})

	assertRedirect(t, w, "/users/add")
	require.Len(t, e.svc.ListUsers(context.Background()), 1)
}

func TestUserDelete(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")
	reader := e.mustCreateUser(t, "reader", "secret123", model.RoleUser, "Test Reader")

	w := e.postForm(t, admin, fmt.Sprintf("/users/%d/delete", reader.ID), url.Values{})

	assertRedirect(t, w, "/users")

	_, ok := e.svc.Authenticate(context.Background(), "reader", "secret123")
	require.False(t, ok)
	require.Len(t, e.svc.ListUsers(context.Background()), 1)
}

func TestUserDelete_Self(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	w := e.postForm(t, admin, fmt.Sprintf("/users/%d/delete", admin.ID), url.Values{})

	assertRedirect(t, w, "/users")
	require.Len(t, e.svc.ListUsers(context.Background()), 1)

	_, ok := e.svc.Authenticate(context.Background(), "boss", "secret123")
	require.True(t, ok)
}

func TestUserDelete_Unknown(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	w := e.postForm(t, admin, "/users/999/delete", url.Values{})

	assertRedirect(t, w, "/users")
	require.Len(t, e.svc.ListUsers(context.Background()), 1)
}

func TestUserList_ShowsAccountCount(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")
	e.mustCreateUser(t, "reader", "secret123", model.RoleUser, "Test Reader")

	w := e.get(t, admin, "/users")

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "2 accounts")
}

func TestUserAddForm_ListsRoles(t *testing.T) {
	e := newTestEnv(t)
	admin := e.mustCreateUser(t, "boss", "secret123", model.RoleAdmin, "The Boss")

	w := e.get(t, admin, "/users/add")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, role := range model.ValidRoles {
		require.True(t, strings.Contains(body, `value="`+role+`"`), "form should offer role %s", role)
	}
}
