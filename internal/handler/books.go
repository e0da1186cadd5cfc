// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"libris/internal/catalog"
	"libris/internal/middleware"
	"libris/internal/model"
	"libris/internal/render"
)

// BookHandler handles catalog browsing, book management, and the
// borrow/return lifecycle.
type BookHandler struct {
	svc      *catalog.Service
	renderer *render.Renderer
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(svc *catalog.Service, renderer *render.Renderer) *BookHandler {
	return &BookHandler{svc: svc, renderer: renderer}
}

// bookFormData feeds the shared add/edit form template.
type bookFormData struct {
	Book   *model.Book
	Action string
}

// List shows the full catalog ordered by title.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books := h.svc.ListBooks(r.Context())

	renderPage(w, r, h.renderer, "app/books", render.TemplateData{
		Title: "Books",
		Data:  books,
		User:  middleware.GetUser(r),
	})
}

// Search shows books whose title or author contains the query. An empty
// query falls back to the full catalog.
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	books := h.svc.SearchBooks(r.Context(), query)

	renderPage(w, r, h.renderer, "app/books", render.TemplateData{
		Title: "Books",
		Data:  books,
		User:  middleware.GetUser(r),
		Query: query,
	})
}

// AddForm renders the empty book form.
func (h *BookHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, "app/book_form", render.TemplateData{
		Title: "Add a book",
		Data:  bookFormData{Action: "/books/add"},
		User:  middleware.GetUser(r),
	})
}

// Add creates a new book from the form submission.
func (h *BookHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, "/books/add") {
		return
	}

	year, ok := parseYear(r.FormValue("year"))
	if !ok {
		flashError(w, r, h.renderer, "/books/add", "Year must be a number")
		return
	}

	title := r.FormValue("title")
	if _, err := h.svc.CreateBook(r.Context(), title, r.FormValue("author"), year); err != nil {
		flashError(w, r, h.renderer, "/books/add", "Could not add book: "+err.Error())
		return
	}

	flashSuccess(w, r, h.renderer, routeBooks, fmt.Sprintf("Added %q to the catalog.", title))
}

// EditForm renders the book form pre-filled with an existing book.
func (h *BookHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		flashError(w, r, h.renderer, routeBooks, "Book not found")
		return
	}

	book, ok := h.svc.GetBook(r.Context(), id)
	if !ok {
		flashError(w, r, h.renderer, routeBooks, "Book not found")
		return
	}

	renderPage(w, r, h.renderer, "app/book_form", render.TemplateData{
		Title: "Edit book",
		Data:  bookFormData{Book: &book, Action: fmt.Sprintf("/books/%d/edit", id)},
		User:  middleware.GetUser(r),
	})
}

// Edit updates a book's bibliographic fields. Availability never changes
// here; only borrow and return touch it.
func (h *BookHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		flashError(w, r, h.renderer, routeBooks, "Book not found")
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, routeBooks) {
		return
	}

	year, ok := parseYear(r.FormValue("year"))
	if !ok {
		flashError(w, r, h.renderer, fmt.Sprintf("/books/%d/edit", id), "Year must be a number")
		return
	}

	if !h.svc.UpdateBook(r.Context(), id, r.FormValue("title"), r.FormValue("author"), year) {
		flashError(w, r, h.renderer, routeBooks, "Could not update book")
		return
	}

	flashSuccess(w, r, h.renderer, routeBooks, "Book updated.")
}

// Delete removes a book and its loan history.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		flashError(w, r, h.renderer, routeBooks, "Book not found")
		return
	}

	if !h.svc.DeleteBook(r.Context(), id) {
		flashError(w, r, h.renderer, routeBooks, "Could not delete book")
		return
	}

	flashSuccess(w, r, h.renderer, routeBooks, "Book deleted.")
}

// bookHistoryData feeds the loan history page.
type bookHistoryData struct {
	Book  model.Book
	Loans []model.Loan
}

// History shows a book's full loan ledger, oldest loan first.
func (h *BookHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		flashError(w, r, h.renderer, routeBooks, "Book not found")
		return
	}

	book, ok := h.svc.GetBook(r.Context(), id)
	if !ok {
		flashError(w, r, h.renderer, routeBooks, "Book not found")
		return
	}

	loans := h.svc.ListBookLoans(r.Context(), id)

	renderPage(w, r, h.renderer, "app/book_history", render.TemplateData{
		Title: book.Title,
		Data:  bookHistoryData{Book: book, Loans: loans},
		User:  middleware.GetUser(r),
	})
}

// BorrowForm lists the books currently on the shelf.
func (h *BookHandler) BorrowForm(w http.ResponseWriter, r *http.Request) {
	books := h.svc.ListAvailableBooks(r.Context())

	renderPage(w, r, h.renderer, "app/borrow", render.TemplateData{
		Title: "Borrow",
		Data:  books,
		User:  middleware.GetUser(r),
	})
}

// Borrow checks a book out to the current user. When two users race for the
// last copy the catalog lets exactly one through; the other lands back here
// with an error flash.
func (h *BookHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		flashError(w, r, h.renderer, routeBorrow, "Book not found")
		return
	}

	book, ok := h.svc.GetBook(r.Context(), id)
	if !ok {
		flashError(w, r, h.renderer, routeBorrow, "Book not found")
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		http.Redirect(w, r, routeLogin, http.StatusSeeOther)
		return
	}

	if !h.svc.Borrow(r.Context(), id, user.DisplayIdentity()) {
		flashError(w, r, h.renderer, routeBorrow, fmt.Sprintf("%q is not available right now.", book.Title))
		return
	}

	flashSuccess(w, r, h.renderer, routeDashboard, fmt.Sprintf("You borrowed %q.", book.Title))
}

// ReturnForm lists the books currently out on loan.
func (h *BookHandler) ReturnForm(w http.ResponseWriter, r *http.Request) {
	loans := h.svc.ListActiveLoans(r.Context())

	renderPage(w, r, h.renderer, "app/return", render.TemplateData{
		Title: "Return",
		Data:  loans,
		User:  middleware.GetUser(r),
	})
}

// Return checks a book back in and closes its open loan.
func (h *BookHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		flashError(w, r, h.renderer, routeReturn, "Book not found")
		return
	}

	book, ok := h.svc.GetBook(r.Context(), id)
	if !ok {
		flashError(w, r, h.renderer, routeReturn, "Book not found")
		return
	}

	if !h.svc.Return(r.Context(), id) {
		flashError(w, r, h.renderer, routeReturn, fmt.Sprintf("%q is not checked out.", book.Title))
		return
	}

	flashSuccess(w, r, h.renderer, routeReturn, fmt.Sprintf("Returned %q. Thanks!", book.Title))
}

// parseYear converts the optional year form field. An empty value is a valid
// null year; a non-numeric value is rejected.
func parseYear(value string) (sql.NullInt64, bool) {
	if value == "" {
		return sql.NullInt64{}, true
	}
	year, err := strconv.ParseInt(value, 10, 64)
	if err != nil || year < 0 {
		return sql.NullInt64{}, false
	}
	return sql.NullInt64{Int64: year, Valid: true}, true
}
