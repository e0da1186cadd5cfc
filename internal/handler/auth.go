// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for the web interface and the
// JSON API.
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"libris/internal/catalog"
	"libris/internal/middleware"
	"libris/internal/model"
	"libris/internal/render"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	svc             *catalog.Service
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *catalog.Service, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		svc:             svc,
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// LoginForm renders the login page. Already-authenticated users are sent to
// the homepage.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, routeRoot, http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.renderer, "auth/login", render.TemplateData{Title: "Sign in"})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, routeLogin) {
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		flashError(w, r, h.renderer, routeLogin, "Username and password are required")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(username); locked {
			slog.Warn("login attempt on locked account",
				"category", model.EventCategoryAuth, "username", username, "remote_addr", r.RemoteAddr)
			flashError(w, r, h.renderer, routeLogin,
				fmt.Sprintf("Account temporarily locked. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	user, ok := h.svc.Authenticate(r.Context(), username, password)
	if !ok {
		slog.Warn("login failed",
			"category", model.EventCategoryAuth, "username", username, "remote_addr", r.RemoteAddr)

		// Record the failure for existent and non-existent accounts alike to
		// prevent username enumeration.
		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(username); locked {
				flashError(w, r, h.renderer, routeLogin,
					fmt.Sprintf("Too many failed attempts. Account locked for %s.", formatDuration(lockDuration)))
				return
			}
			if remaining := h.loginProtection.GetRemainingAttempts(username); remaining > 0 && remaining <= 3 {
				flashError(w, r, h.renderer, routeLogin,
					fmt.Sprintf("Invalid username or password. %d attempts remaining.", remaining))
				return
			}
		}
		flashError(w, r, h.renderer, routeLogin, "Invalid username or password")
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(username)
	}

	// Regenerate the session ID to prevent session fixation.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("session renewal error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user logged in",
		"category", model.EventCategoryAuth, "user_id", user.ID, "username", user.Username)

	flashSuccess(w, r, h.renderer, routeRoot, "Welcome back, "+user.FullName+"!")
}

// Logout destroys the session and returns to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "category", model.EventCategoryAuth, "user_id", userID)

	flashAndRedirect(w, r, h.renderer, routeLogin, "You have been signed out.", "info")
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
