// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"time"

	"libris/internal/catalog"
)

// APIHandler serves the small JSON API: health and catalog statistics.
type APIHandler struct {
	svc        *catalog.Service
	credSource string
}

// NewAPIHandler creates a new APIHandler. credSource records where the
// database credentials were resolved from ("keystore" or "env") so health
// checks can surface it.
func NewAPIHandler(svc *catalog.Service, credSource string) *APIHandler {
	return &APIHandler{svc: svc, credSource: credSource}
}

// healthResponse is the GET /api/health payload.
type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Credentials string `json:"credentials"`
	Time        string `json:"time"`
}

// Health reports service and database status. Returns 503 when the database
// is unreachable so load balancers can act on it.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Database:    "ok",
		Credentials: h.credSource,
		Time:        time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := h.svc.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// Stats returns the catalog counters as JSON.
func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}
