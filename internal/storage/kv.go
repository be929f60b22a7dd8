package storage

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// KVEngine defines the interface for embedded key-value storage.
//
// Implementation requirements:
//   - Thread-safe: concurrent reads/writes must be safe
//   - Per-key atomicity: Set/Delete/Increment on one key serialize,
//     so a deleted token cannot be resurrected by a stale write
//   - Durable (for persistent engines): data survives process restarts
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Increment atomically increments the counter stored at key and
	// returns the new value. A missing key counts from zero.
	Increment(ctx context.Context, key []byte) (uint64, error)

	// Scan iterates over keys with a given prefix.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// Stats returns engine statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close gracefully shuts down the engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalKeys is the approximate number of keys.
	TotalKeys uint64

	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size in bytes (LSM engines only).
	LSMSize uint64

	// ValueLogSize is the value log size in bytes (LSM engines only).
	ValueLogSize uint64
}
