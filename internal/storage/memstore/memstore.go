// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package memstore is an in-process implementation of storage.Store,
// used by tests and single-process default configuration. It holds
// each container's entries as an append-only slice guarded by a
// mutex; readers receive copies, so a returned slice is never
// mutated by a subsequent Append.
package memstore

import (
	"context"
	"sync"

	"github.com/danvoulez/UBL-Containers/internal/storage"
)

type Store struct {
	mu         sync.RWMutex
	containers map[string][]storage.Record
}

func New() *Store {
	return &Store{containers: make(map[string][]storage.Record)}
}

func (s *Store) Append(ctx context.Context, rec storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.containers[rec.ContainerID]
	if uint64(len(entries)) != rec.Sequence {
		return storage.ErrSequenceConflict
	}
	s.containers[rec.ContainerID] = append(entries, rec)
	return nil
}

func (s *Store) Tail(ctx context.Context, containerID string) (storage.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.containers[containerID]
	if len(entries) == 0 {
		return storage.Record{}, false, nil
	}
	return entries[len(entries)-1], true, nil
}

func (s *Store) Count(ctx context.Context, containerID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.containers[containerID])), nil
}

func (s *Store) Range(ctx context.Context, containerID string, lo, hi uint64) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.containers[containerID]
	if lo > hi || lo >= uint64(len(entries)) {
		return nil, nil
	}
	if hi >= uint64(len(entries)) {
		hi = uint64(len(entries)) - 1
	}
	out := make([]storage.Record, hi-lo+1)
	copy(out, entries[lo:hi+1])
	return out, nil
}
