// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// libris-import migrates a legacy MySQL library database into the SQLite
// store used by the server. Credentials for the source database resolve the
// same way as the server's: encrypted credentials file first, DB_* environment
// variables as fallback, unless an explicit -dsn is given.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"libris/internal/config"
	"libris/internal/importer"
	"libris/internal/keystore"
	"libris/internal/store"
)

func main() {
	dsn := flag.String("dsn", "", "MySQL DSN (user:pass@tcp(host:port)/dbname?parseTime=true); overrides resolved credentials")
	dbPath := flag.String("db", "./data/libris.db", "Destination SQLite database path")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "libris-import - migrate a MySQL library database to SQLite\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*dsn, *dbPath); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(dsn, dbPath string) error {
	_ = godotenv.Load()

	if dsn == "" {
		// Reuse the server's credential bootstrap for the source database.
		var credFile, credKey string
		if cfg, err := config.Load(); err == nil {
			credFile, credKey = cfg.CredentialsFile, cfg.CredentialsKey
		} else {
			credFile = os.Getenv("LIBRIS_CREDENTIALS_FILE")
			credKey = os.Getenv("LIBRIS_CREDENTIALS_KEY")
			if credFile == "" {
				credFile = "./encrypted_credentials.json"
			}
		}
		creds := keystore.Resolve(credFile, credKey)
		dsn = mysqlDSN(creds)
	}

	src, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("opening source database: %w", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := src.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to source database: %w", err)
	}

	dst, err := store.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening destination database: %w", err)
	}
	defer dst.Close()

	if err := store.Migrate(dst); err != nil {
		return fmt.Errorf("migrating destination database: %w", err)
	}

	sum, err := importer.Import(ctx, src, dst)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d users, %d books, %d loans into %s\n", sum.Users, sum.Books, sum.Loans, dbPath)
	return nil
}

// mysqlDSN builds a DSN from resolved credentials. parseTime is required so
// DATETIME columns scan into time.Time.
func mysqlDSN(creds keystore.Credentials) string {
	cfg := mysql.NewConfig()
	cfg.User = creds.User
	cfg.Passwd = creds.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", creds.Host, creds.Port)
	cfg.DBName = creds.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}
