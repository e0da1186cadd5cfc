// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"libris/internal/catalog"
	"libris/internal/middleware"
	"libris/internal/model"
	"libris/internal/render"
)

// eventsPerPage is the number of event log entries shown per page.
const eventsPerPage = 25

// EventHandler serves the admin event log, where WARN and ERROR
// application logs land for review.
type EventHandler struct {
	svc      *catalog.Service
	renderer *render.Renderer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc *catalog.Service, renderer *render.Renderer) *EventHandler {
	return &EventHandler{svc: svc, renderer: renderer}
}

// eventsData feeds the event log template.
type eventsData struct {
	Events   []model.Event
	Total    int64
	Page     int
	Pages    int
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
}

// List shows the event log, newest first, paginated. An out-of-range page
// parameter is clamped rather than rejected.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	total := h.svc.CountEvents(r.Context())
	pages := int((total + eventsPerPage - 1) / eventsPerPage)
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	offset := int64(page-1) * eventsPerPage
	events := h.svc.ListEvents(r.Context(), eventsPerPage, offset)

	renderPage(w, r, h.renderer, "app/events", render.TemplateData{
		Title: "Event log",
		Data: eventsData{
			Events:   events,
			Total:    total,
			Page:     page,
			Pages:    pages,
			HasPrev:  page > 1,
			HasNext:  page < pages,
			PrevPage: page - 1,
			NextPage: page + 1,
		},
		User: middleware.GetUser(r),
	})
}
