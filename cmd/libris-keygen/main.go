// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// libris-keygen generates an AES-256 credentials key and seals the DB_*
// environment variables into an encrypted credentials file. Print the key
// once, store it in LIBRIS_CREDENTIALS_KEY, and keep the file next to the
// server binary.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"os"

	"libris/internal/keystore"
)

func main() {
	file := flag.String("file", "./encrypted_credentials.json", "Path to write the encrypted credentials file")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "libris-keygen - seal database credentials\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Reads DB_HOST, DB_USER, DB_PASSWORD, DB_NAME, and DB_PORT from the\n")
		_, _ = fmt.Fprintf(os.Stderr, "environment, encrypts them with a fresh AES-256 key, and writes the\n")
		_, _ = fmt.Fprintf(os.Stderr, "credentials file. The key is printed once and never stored.\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*file); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	key, keyID, err := keystore.NewKey()
	if err != nil {
		return err
	}

	creds := keystore.FromEnv()
	if err := keystore.Save(path, key, keyID, creds); err != nil {
		return err
	}

	fmt.Printf("Credentials file written to %s (key id %s)\n\n", path, keyID)
	fmt.Printf("Set this in the server environment; it is not stored anywhere:\n\n")
	fmt.Printf("  LIBRIS_CREDENTIALS_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
	return nil
}
