// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"libris/internal/catalog"
	"libris/internal/middleware"
	"libris/internal/model"
	"libris/internal/render"
	"libris/internal/store"
	"libris/web"
)

// testEnv wires the full handler stack against a temp database with an
// in-memory session store.
type testEnv struct {
	db       *sql.DB
	svc      *catalog.Service
	sm       *scs.SessionManager
	renderer *render.Renderer

	auth   *AuthHandler
	books  *BookHandler
	users  *UserHandler
	pages  *PageHandler
	events *EventHandler
	api    *APIHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "libris-handler-test-*.db")
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	db, err := store.NewDB(tmpFile.Name())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(tmpFile.Name())
	})

	svc := catalog.New(db)

	// scs defaults to an in-memory store, which is what tests want.
	sm := scs.New()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	require.NoError(t, err)

	return &testEnv{
		db:       db,
		svc:      svc,
		sm:       sm,
		renderer: renderer,
		auth:     NewAuthHandler(svc, renderer, sm, nil),
		books:    NewBookHandler(svc, renderer),
		users:    NewUserHandler(svc, renderer),
		pages:    NewPageHandler(svc, renderer),
		events:   NewEventHandler(svc, renderer),
		api:      NewAPIHandler(svc, "env"),
	}
}

// router mirrors the application's route table without the auth and role
// middleware; tests inject the acting user directly.
func (e *testEnv) router(user *model.User) http.Handler {
	r := chi.NewRouter()
	r.Use(e.sm.LoadAndSave)

	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := context.WithValue(req.Context(), middleware.ContextKeyUser, *user)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}

	r.Get("/login", e.auth.LoginForm)
	r.Post("/login", e.auth.Login)
	r.Get("/logout", e.auth.Logout)

	r.Get("/", e.pages.Home)
	r.Get("/dashboard", e.pages.Dashboard)
	r.Get("/profile", e.pages.Profile)

	r.Get("/books", e.books.List)
	r.Get("/books/search", e.books.Search)
	r.Get("/books/add", e.books.AddForm)
	r.Post("/books/add", e.books.Add)
	r.Get("/books/{id}/edit", e.books.EditForm)
	r.Post("/books/{id}/edit", e.books.Edit)
	r.Post("/books/{id}/delete", e.books.Delete)
	r.Get("/books/{id}/history", e.books.History)
	r.Get("/borrow", e.books.BorrowForm)
	r.Post("/books/{id}/borrow", e.books.Borrow)
	r.Get("/return", e.books.ReturnForm)
	r.Post("/books/{id}/return", e.books.Return)

	r.Get("/users", e.users.List)
	r.Get("/users/add", e.users.AddForm)
	r.Post("/users/add", e.users.Add)
	r.Post("/users/{id}/delete", e.users.Delete)
	r.Get("/events", e.events.List)

	r.Get("/api/health", e.api.Health)
	r.Get("/api/stats", e.api.Stats)

	r.NotFound(e.pages.NotFound)

	return r
}

// get performs a GET as the given user and returns the recorder.
func (e *testEnv) get(t *testing.T, user *model.User, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router(user).ServeHTTP(w, req)
	return w
}

// postForm performs a form POST as the given user and returns the recorder.
func (e *testEnv) postForm(t *testing.T, user *model.User, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router(user).ServeHTTP(w, req)
	return w
}

// mustCreateUser creates an account through the catalog service.
func (e *testEnv) mustCreateUser(t *testing.T, username, password, role, fullName string) *model.User {
	t.Helper()
	require.True(t, e.svc.CreateUser(context.Background(), username, password, role, fullName, sql.NullString{}))
	user, ok := e.svc.Authenticate(context.Background(), username, password)
	require.True(t, ok)
	return user
}

// mustCreateBook adds a book through the catalog service.
func (e *testEnv) mustCreateBook(t *testing.T, title, author string) int64 {
	t.Helper()
	id, err := e.svc.CreateBook(context.Background(), title, author, sql.NullInt64{})
	require.NoError(t, err)
	return id
}

// assertRedirect checks for a 303 to the given location.
func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, location, w.Header().Get("Location"))
}
