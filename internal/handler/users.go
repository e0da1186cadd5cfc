// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"net/http"

	"libris/internal/catalog"
	"libris/internal/middleware"
	"libris/internal/model"
	"libris/internal/render"
)

// UserHandler handles user administration. All routes are admin-only.
type UserHandler struct {
	svc      *catalog.Service
	renderer *render.Renderer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *catalog.Service, renderer *render.Renderer) *UserHandler {
	return &UserHandler{svc: svc, renderer: renderer}
}

// usersData feeds the user list template.
type usersData struct {
	Users []model.User
	Total int64
}

// List shows all accounts, newest first.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users := h.svc.ListUsers(r.Context())
	total := h.svc.CountUsers(r.Context())

	renderPage(w, r, h.renderer, "app/users", render.TemplateData{
		Title: "Users",
		Data:  usersData{Users: users, Total: total},
		User:  middleware.GetUser(r),
	})
}

// AddForm renders the new-user form.
func (h *UserHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, "app/user_form", render.TemplateData{
		Title: "Add a user",
		Data:  model.ValidRoles,
		User:  middleware.GetUser(r),
	})
}

// Add creates a new account from the form submission.
func (h *UserHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/users/add") {
		return
	}

	var email sql.NullString
	if v := r.FormValue("email"); v != "" {
		email = sql.NullString{String: v, Valid: true}
	}

	username := r.FormValue("username")
	ok := h.svc.CreateUser(r.Context(),
		username,
		r.FormValue("password"),
		r.FormValue("role"),
		r.FormValue("full_name"),
		email,
	)
	if !ok {
		flashError(w, r, h.renderer, "/users/add",
			"Could not create user. Check the fields; the username may already be taken.")
		return
	}

	flashSuccess(w, r, h.renderer, routeUsers, fmt.Sprintf("Created user %q.", username))
}

// Delete removes an account. Admins cannot delete themselves, so at least
// one admin always survives.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		flashError(w, r, h.renderer, routeUsers, "User not found")
		return
	}

	if current := middleware.GetUser(r); current != nil && current.ID == id {
		flashError(w, r, h.renderer, routeUsers, "You cannot delete your own account.")
		return
	}

	if !h.svc.DeleteUser(r.Context(), id) {
		flashError(w, r, h.renderer, routeUsers, "Could not delete user")
		return
	}

	flashSuccess(w, r, h.renderer, routeUsers, "User deleted.")
}
