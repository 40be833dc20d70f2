// Package checkpoint defines the pluggable, key-addressed state store used
// by the dialog engine and HITL controller, and ships four backends:
// in-memory, Redis, SQL, and plain file. Every backend implements the same
// compare-and-set contract so the higher layers never know which one is
// live.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when key does not exist.
var ErrNotFound = errors.New("checkpoint: not found")

// ErrVersionConflict is returned by CAS when expectedVersion does not match
// the currently stored version.
var ErrVersionConflict = errors.New("checkpoint: version conflict")

// Entry is one stored checkpoint payload plus its CAS version.
type Entry struct {
	Key     string
	Payload []byte
	Version int64
	// ExpiresAt is zero when the entry has no TTL.
	ExpiresAt time.Time
}

// Store is the single interface every checkpoint backend implements.
// Version numbers start at 1 on first Save and increment by 1 on every
// successful CAS.
type Store interface {
	// Save writes payload under key, creating it if absent or overwriting
	// it unconditionally otherwise, and returns the new version. A zero
	// ttl means no expiry.
	Save(ctx context.Context, key string, payload []byte, ttl time.Duration) (version int64, err error)

	// Load returns the payload and version stored under key, or
	// ErrNotFound.
	Load(ctx context.Context, key string) (Entry, error)

	// CAS atomically replaces the payload stored under key, but only if
	// its current version equals expectedVersion. Returns ErrVersionConflict
	// otherwise. Succeeds with version=1 when key does not yet exist and
	// expectedVersion is 0.
	CAS(ctx context.Context, key string, payload []byte, expectedVersion int64, ttl time.Duration) (newVersion int64, err error)

	// List returns every entry whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Delete removes key, returning whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// SweepExpired deletes every entry whose TTL has elapsed and returns
	// the count removed.
	SweepExpired(ctx context.Context) (int, error)
}
