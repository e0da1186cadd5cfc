// Copyright (c) 2026 Libris contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth provides password hashing and verification using argon2id,
// with read-only support for the legacy unsalted SHA-256 digests found in
// databases imported from the old system.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended second choice: m=19456, t=2, p=1)
const (
	Argon2Time    = 2
	Argon2Memory  = 19 * 1024
	Argon2Threads = 1
	Argon2KeyLen  = 32
	Argon2SaltLen = 16
)

// legacyHashLen is the hex length of an unsalted SHA-256 digest.
const legacyHashLen = 64

// HashPassword creates an argon2id hash of the password.
// Returns an encoded hash in format: $argon2id$v=19$m=19456,t=2,p=1$salt$hash
func HashPassword(password string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Argon2Memory, Argon2Time, Argon2Threads, b64Salt, b64Hash), nil
}

// CheckPassword verifies a password against a stored hash. Both argon2id
// encoded hashes and legacy unsalted SHA-256 hex digests are accepted;
// comparison is constant time in both cases.
func CheckPassword(password, storedHash string) (bool, error) {
	if isLegacyHash(storedHash) {
		return checkLegacy(password, storedHash), nil
	}
	return verifyArgon2(password, storedHash)
}

// NeedsRehash reports whether a stored hash should be re-created: legacy
// SHA-256 digests always, argon2id hashes when their parameters differ from
// the current defaults. Callers rehash transparently after a successful login.
func NeedsRehash(storedHash string) bool {
	if isLegacyHash(storedHash) {
		return true
	}

	parts := strings.Split(storedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return true
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return true
	}

	return memory != Argon2Memory || timeCost != Argon2Time || threads != Argon2Threads
}

// isLegacyHash reports whether the stored hash is an unsalted SHA-256 hex
// digest as produced by the old system.
func isLegacyHash(storedHash string) bool {
	if len(storedHash) != legacyHashLen {
		return false
	}
	_, err := hex.DecodeString(storedHash)
	return err == nil
}

// checkLegacy compares against a legacy SHA-256 hex digest.
func checkLegacy(password, storedHash string) bool {
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedHash)) == 1
}

// verifyArgon2 verifies a password against an argon2id encoded hash.
func verifyArgon2(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported hash type: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing version: %w", err)
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, fmt.Errorf("parsing parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1, nil
}

// LegacyHash produces the old system's unsalted SHA-256 hex digest.
// Only used by the MySQL importer and tests; new hashes are always argon2id.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
