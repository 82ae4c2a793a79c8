// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the narrow abstract interface the ledger
// engine uses to persist entries. spec.md §1 is explicit that storage
// backend choice — memory, SQLite, eventually Postgres — is
// irrelevant to the core's semantics; this interface is the seam that
// keeps it that way. Two implementations ship in this module:
// memstore (in-process, for tests and single-process deployments) and
// sqlitestore (durable, zombiezen.com/go/sqlite-backed).
package storage

import (
	"context"
	"errors"
)

// Record is the persisted representation of one LedgerEntry, matching
// the abstract layout spec.md §6 describes: one row per
// (container_id, sequence), append-only, no updates or deletes.
type Record struct {
	ContainerID      string
	Sequence         uint64
	EntryHash        string
	PreviousHash     string
	LinkSigningBytes []byte
	LinkSignature    string
	AuthorPubkey     string
	IntentClass      string
	PhysicsDelta     int64
	Timestamp        int64
}

// ErrStorageUnavailable indicates the backend could not service a
// request (connection lost, disk full, etc). It is transient: the
// caller may retry after backoff, per spec.md §7. It is distinct from
// any validation rejection, which is deterministic and never retried.
var ErrStorageUnavailable = errors.New("storage: unavailable")

// ErrSequenceConflict indicates an attempt to append a record whose
// (container_id, sequence) already exists. The ledger engine's
// per-container lock should make this unreachable in normal
// operation; a backend returns it as defense in depth, matching
// spec.md §5's requirement that concurrent commits at the same
// expected_sequence never both succeed.
var ErrSequenceConflict = errors.New("storage: sequence conflict")

// Store is the append-only persistence interface. Implementations
// must never allow a reader to observe a partially written Record: a
// call to Append either durably commits the entire record or returns
// an error with nothing persisted.
type Store interface {
	// Append persists rec. rec.Sequence must be exactly the current
	// count of entries for rec.ContainerID (enforced by the ledger
	// engine's lock before calling Append; a conforming backend also
	// enforces it itself via ErrSequenceConflict).
	Append(ctx context.Context, rec Record) error

	// Tail returns the most recently appended record for
	// containerID, or ok=false if the container has no entries yet.
	Tail(ctx context.Context, containerID string) (rec Record, ok bool, err error)

	// Count returns the number of entries persisted for containerID
	// (the container's next expected sequence number).
	Count(ctx context.Context, containerID string) (uint64, error)

	// Range returns records for containerID with sequence in [lo,
	// hi] inclusive, ordered by ascending sequence. Used by
	// ledger.Engine.VerifyRange for offline auditing.
	Range(ctx context.Context, containerID string, lo, hi uint64) ([]Record, error)
}
