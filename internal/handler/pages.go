// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"libris/internal/catalog"
	"libris/internal/middleware"
	"libris/internal/model"
	"libris/internal/render"
)

// recentBooksLimit caps the homepage "recently added" list.
const recentBooksLimit = 5

// PageHandler handles the homepage, dashboard, and profile pages.
type PageHandler struct {
	svc      *catalog.Service
	renderer *render.Renderer
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(svc *catalog.Service, renderer *render.Renderer) *PageHandler {
	return &PageHandler{svc: svc, renderer: renderer}
}

// homeData feeds the homepage template.
type homeData struct {
	Stats  catalog.Stats
	Recent []model.Book
}

// Home shows the catalog counters and the most recently added books.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, "app/index", render.TemplateData{
		Title: "Home",
		Data: homeData{
			Stats:  h.svc.Stats(r.Context()),
			Recent: h.svc.ListRecentBooks(r.Context(), recentBooksLimit),
		},
		User: middleware.GetUser(r),
	})
}

// dashboardData feeds the dashboard template.
type dashboardData struct {
	Stats catalog.Stats
	Loans []model.BorrowedBook
}

// Dashboard shows the counters alongside every active loan.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, "app/dashboard", render.TemplateData{
		Title: "Dashboard",
		Data: dashboardData{
			Stats: h.svc.Stats(r.Context()),
			Loans: h.svc.ListActiveLoans(r.Context()),
		},
		User: middleware.GetUser(r),
	})
}

// Profile shows the current user's account details.
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, "app/profile", render.TemplateData{
		Title: "Profile",
		User:  middleware.GetUser(r),
	})
}

// NotFound renders the 404 page for unmatched routes.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := h.renderer.Render(w, r, "app/404", render.TemplateData{
		Title: "Not found",
		User:  middleware.GetUser(r),
	}); err != nil {
		// Status is already written; fall back to a plain body.
		_, _ = w.Write([]byte("Not Found"))
	}
}
