// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitestore is a durable storage.Store backed by
// zombiezen.com/go/sqlite, adapted from the teacher's lib/sqlitepool
// connection-pooling recipe (WAL mode, busy_timeout, a schema applied
// to each connection in the pool's PrepareConn hook). Records are persisted as CBOR-encoded blobs using
// package internal/codec's deterministic encoding, one row per
// (container_id, sequence) with a UNIQUE constraint enforcing
// spec.md §6's append-only, no-duplicate-sequence invariant as a
// second line of defense beneath the ledger engine's per-container
// lock.
package sqlitestore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/danvoulez/UBL-Containers/internal/codec"
	"github.com/danvoulez/UBL-Containers/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entry (
	container_id TEXT NOT NULL,
	sequence     INTEGER NOT NULL,
	payload      BLOB NOT NULL,
	PRIMARY KEY (container_id, sequence)
);
`

// Store is a pooled SQLite-backed storage.Store.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
}

// Config configures Open. Path is required; use ":memory:" for an
// ephemeral database (tests only — each in-memory connection is
// independent, so PoolSize is forced to 1 in that case).
type Config struct {
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitestore: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if cfg.Path == ":memory:" {
		poolSize = 1
	} else if poolSize <= 0 {
		poolSize = 4
	}

	dsn := cfg.Path
	if dsn == ":memory:" {
		dsn = "file::memory:?mode=memory&cache=shared"
	}

	pool, err := sqlitex.NewPool(dsn, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite ledger store opened", "path", cfg.Path, "pool_size", poolSize)
	return &Store{pool: pool, logger: logger}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=OFF",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitestore: pragma %q: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteScript(conn, schema, nil)
}

func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("sqlitestore: close: %w", err)
	}
	return nil
}

func (s *Store) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	return conn, nil
}

func (s *Store) Append(ctx context.Context, rec storage.Record) error {
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	payload, err := codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlitestore: encoding record: %w", err)
	}

	err = sqlitex.Execute(conn, `INSERT INTO ledger_entry (container_id, sequence, payload) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{rec.ContainerID, int64(rec.Sequence), payload}})
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrSequenceConflict
		}
		return fmt.Errorf("%w: insert: %v", storage.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Tail(ctx context.Context, containerID string) (storage.Record, bool, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return storage.Record{}, false, err
	}
	defer s.pool.Put(conn)

	var rec storage.Record
	found := false
	err = sqlitex.Execute(conn, `SELECT payload FROM ledger_entry WHERE container_id = ? ORDER BY sequence DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{containerID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				buf := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, buf)
				if decodeErr := codec.Unmarshal(buf, &rec); decodeErr != nil {
					return decodeErr
				}
				found = true
				return nil
			},
		})
	if err != nil {
		return storage.Record{}, false, fmt.Errorf("%w: tail: %v", storage.ErrStorageUnavailable, err)
	}
	return rec, found, nil
}

func (s *Store) Count(ctx context.Context, containerID string) (uint64, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	var count int64
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM ledger_entry WHERE container_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{containerID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", storage.ErrStorageUnavailable, err)
	}
	return uint64(count), nil
}

func (s *Store) Range(ctx context.Context, containerID string, lo, hi uint64) ([]storage.Record, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var records []storage.Record
	var decodeErr error
	err = sqlitex.Execute(conn, `SELECT payload FROM ledger_entry WHERE container_id = ? AND sequence BETWEEN ? AND ? ORDER BY sequence ASC`,
		&sqlitex.ExecOptions{
			Args: []any{containerID, int64(lo), int64(hi)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				buf := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, buf)
				var rec storage.Record
				if err := codec.Unmarshal(buf, &rec); err != nil {
					decodeErr = err
					return err
				}
				records = append(records, rec)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("%w: range: %v", storage.ErrStorageUnavailable, err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("sqlitestore: decoding record: %w", decodeErr)
	}
	return records, nil
}

func isUniqueConstraintError(err error) bool {
	code := sqlite.ErrCode(err)
	return code == sqlite.ResultConstraintUnique || code == sqlite.ResultConstraintPrimaryKey
}
