// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

import (
	"context"
	"errors"
	"testing"

	"github.com/danvoulez/UBL-Containers/internal/storage"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSqliteAppendTailCount(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, ok, err := s.Tail(ctx, "c1"); err != nil || ok {
		t.Fatalf("expected empty tail, got ok=%v err=%v", ok, err)
	}

	if err := s.Append(ctx, storage.Record{ContainerID: "c1", Sequence: 0, EntryHash: "h0", IntentClass: "entropy", PhysicsDelta: 1000}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, storage.Record{ContainerID: "c1", Sequence: 1, EntryHash: "h1", IntentClass: "conservation", PhysicsDelta: -100}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec, ok, err := s.Tail(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("tail: ok=%v err=%v", ok, err)
	}
	if rec.EntryHash != "h1" || rec.PhysicsDelta != -100 {
		t.Fatalf("unexpected tail record: %+v", rec)
	}

	count, err := s.Count(ctx, "c1")
	if err != nil || count != 2 {
		t.Fatalf("count = %d, err = %v", count, err)
	}
}

func TestSqliteAppendRejectsDuplicateSequence(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.Append(ctx, storage.Record{ContainerID: "c1", Sequence: 0}); err != nil {
		t.Fatal(err)
	}
	err := s.Append(ctx, storage.Record{ContainerID: "c1", Sequence: 0})
	if !errors.Is(err, storage.ErrSequenceConflict) {
		t.Fatalf("expected ErrSequenceConflict, got %v", err)
	}
}

func TestSqliteRange(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for i := uint64(0); i < 4; i++ {
		if err := s.Append(ctx, storage.Record{ContainerID: "c1", Sequence: i, EntryHash: "h"}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.Range(ctx, "c1", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Sequence != 1 || records[1].Sequence != 2 {
		t.Fatalf("unexpected range result: %+v", records)
	}
}
