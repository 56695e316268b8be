package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a store key.
const MaxKeyLength = 512

// Sentinel errors for store operations.
var (
	ErrInvalidKey = errors.New("store: key is invalid")
	ErrKeyTooLong = errors.New("store: key exceeds max length")
)

// Store is the key-value contract shared by the in-memory and remote
// backends.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; operational failures degrade to a miss.
//   Set and Remove are best-effort and report nothing; a backend that
//   cannot serve them drops the operation after logging.
// - Blocking: no method may block waiting for a connection to appear.
type Store interface {
	// Get retrieves a cached value. Returns ("", false) on miss or on any
	// operational failure.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores a value. Expiration is advisory: zero means no expiration,
	// and backends without expiration support ignore it entirely.
	Set(ctx context.Context, key, value string, expiration time.Duration)

	// Remove deletes a value. Idempotent - removing an absent key is a no-op.
	Remove(ctx context.Context, key string)

	// Shutdown releases the backend's resources. Idempotent and safe to
	// call multiple times; it returns once the backend is fully released.
	Shutdown(ctx context.Context) error
}

// ValidateKey checks if a key is valid for storage.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
