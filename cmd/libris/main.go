// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"libris/internal/catalog"
	"libris/internal/config"
	"libris/internal/handler"
	"libris/internal/keystore"
	"libris/internal/logging"
	"libris/internal/middleware"
	"libris/internal/render"
	"libris/internal/session"
	"libris/internal/store"
	"libris/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Libris - Library Catalog System\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LIBRIS_SESSION_SECRET     Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LIBRIS_DB_PATH            SQLite database path (default: ./data/libris.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LIBRIS_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LIBRIS_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LIBRIS_DO_SEED            Seed the demo catalog on first start (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LIBRIS_CREDENTIALS_FILE   Encrypted credentials file (default: ./encrypted_credentials.json)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LIBRIS_CREDENTIALS_KEY    Base64 AES-256 key for the credentials file\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("libris %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Resolve database credentials: encrypted keystore preferred, plain
	// environment fallback. The result is surfaced on /api/health.
	creds := keystore.Resolve(cfg.CredentialsFile, cfg.CredentialsKey)
	slog.Info("database credentials resolved",
		"source", creds.Source, "db_name", creds.Name, "db_user", creds.User)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Seed default accounts (and the demo catalog when enabled)
	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	svc := catalog.New(db)

	// CSRF protection (applied globally, JSON API exempted)
	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	csrfMiddleware := middleware.CSRF(csrfConfig)
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(svc, renderer, sessionManager, loginProtection)
	bookHandler := handler.NewBookHandler(svc, renderer)
	userHandler := handler.NewUserHandler(svc, renderer)
	pageHandler := handler.NewPageHandler(svc, renderer)
	eventHandler := handler.NewEventHandler(svc, renderer)
	apiHandler := handler.NewAPIHandler(svc, creds.Source)

	// Create router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.SkipCSRF("/api/health"))
	r.Use(csrfMiddleware)

	// JSON API: health is public for load balancers, stats needs a session
	r.Get("/api/health", apiHandler.Health)

	// Auth routes (public)
	r.Group(func(r chi.Router) {
		r.Get("/login", authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, svc))

		r.Get("/", pageHandler.Home)
		r.Get("/dashboard", pageHandler.Dashboard)
		r.Get("/profile", pageHandler.Profile)
		r.Get("/api/stats", apiHandler.Stats)

		r.Get("/books", bookHandler.List)
		r.Get("/books/search", bookHandler.Search)
		r.Get("/borrow", bookHandler.BorrowForm)
		r.Post("/books/{id}/borrow", bookHandler.Borrow)
		r.Get("/return", bookHandler.ReturnForm)
		r.Post("/books/{id}/return", bookHandler.Return)

		// Book management (librarian and admin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLibrarian())

			r.Get("/books/add", bookHandler.AddForm)
			r.Post("/books/add", bookHandler.Add)
			r.Get("/books/{id}/edit", bookHandler.EditForm)
			r.Post("/books/{id}/edit", bookHandler.Edit)
			r.Post("/books/{id}/delete", bookHandler.Delete)
			r.Get("/books/{id}/history", bookHandler.History)
		})

		// User administration (admin only)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Get("/users", userHandler.List)
			r.Get("/users/add", userHandler.AddForm)
			r.Post("/users/add", userHandler.Add)
			r.Post("/users/{id}/delete", userHandler.Delete)
			r.Get("/events", eventHandler.List)
		})
	})

	r.NotFound(pageHandler.NotFound)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	slog.Info("server stopped")
	return nil
}
