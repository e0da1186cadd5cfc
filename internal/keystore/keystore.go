// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package keystore loads database credentials from an encrypted credentials
// file, falling back to plain environment variables when the file or its key
// is unavailable. The encrypted source is always preferred.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// Credentials holds the database connection parameters supplied to the store.
// Resolved once at startup; never mutated afterwards.
type Credentials struct {
	Host     string `json:"DB_HOST"`
	User     string `json:"DB_USER"`
	Password string `json:"DB_PASSWORD"`
	Name     string `json:"DB_NAME"`
	Port     string `json:"DB_PORT"`

	// Source records where the credentials came from: "keystore" or "env".
	Source string `json:"-"`
}

// credentialsFile is the on-disk format: a key identifier plus one base64
// AES-GCM ciphertext per credential field.
type credentialsFile struct {
	KeyID  string            `json:"key_id"`
	Fields map[string]string `json:"fields"`
}

// ParseKey decodes a base64 key and validates its length.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding credentials key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("credentials key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// NewKey generates a random AES-256 key and a uuid key identifier.
func NewKey() (key []byte, keyID string, err error) {
	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, "", fmt.Errorf("generating key: %w", err)
	}
	return key, uuid.NewString(), nil
}

// Encrypt encrypts plaintext with AES-GCM and returns base64(nonce||ciphertext).
func Encrypt(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(key []byte, encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating gcm: %w", err)
	}

	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plaintext), nil
}

// Save encrypts each non-empty credential field and writes the credentials
// file. The key identifier is recorded so operators can tell which key a file
// was sealed with.
func Save(path string, key []byte, keyID string, creds Credentials) error {
	file := credentialsFile{
		KeyID:  keyID,
		Fields: make(map[string]string),
	}

	plain := map[string]string{
		"DB_HOST":     creds.Host,
		"DB_USER":     creds.User,
		"DB_PASSWORD": creds.Password,
		"DB_NAME":     creds.Name,
		"DB_PORT":     creds.Port,
	}
	for field, value := range plain {
		if value == "" {
			continue
		}
		sealed, err := Encrypt(key, value)
		if err != nil {
			return fmt.Errorf("encrypting %s: %w", field, err)
		}
		file.Fields[field] = sealed
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// Load reads and decrypts the credentials file.
func Load(path string, key []byte) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("reading credentials file: %w", err)
	}

	var file credentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return creds, fmt.Errorf("parsing credentials file: %w", err)
	}

	decrypted := make(map[string]string, len(file.Fields))
	for field, sealed := range file.Fields {
		plain, err := Decrypt(key, sealed)
		if err != nil {
			return creds, fmt.Errorf("decrypting %s: %w", field, err)
		}
		decrypted[field] = plain
	}

	creds = Credentials{
		Host:     decrypted["DB_HOST"],
		User:     decrypted["DB_USER"],
		Password: decrypted["DB_PASSWORD"],
		Name:     decrypted["DB_NAME"],
		Port:     decrypted["DB_PORT"],
		Source:   "keystore",
	}
	return creds, nil
}

// FromEnv assembles credentials from the plain DB_* environment variables.
func FromEnv() Credentials {
	return Credentials{
		Host:     envOr("DB_HOST", "localhost"),
		User:     envOr("DB_USER", "admin"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     envOr("DB_NAME", "library_db"),
		Port:     envOr("DB_PORT", "3306"),
		Source:   "env",
	}
}

// Resolve returns credentials from the encrypted file when both the file and
// key are usable, otherwise from environment variables. The selection is
// logged so operators know which source is live.
func Resolve(path, encodedKey string) Credentials {
	if encodedKey != "" {
		key, err := ParseKey(encodedKey)
		if err == nil {
			creds, err := Load(path, key)
			if err == nil {
				slog.Info("credentials loaded from keystore", "path", path)
				return creds
			}
			slog.Warn("keystore unavailable, falling back to environment", "error", err)
		} else {
			slog.Warn("invalid credentials key, falling back to environment", "error", err)
		}
	}

	slog.Info("credentials loaded from environment")
	return FromEnv()
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
