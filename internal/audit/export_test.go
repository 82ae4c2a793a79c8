// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"testing"

	"github.com/danvoulez/UBL-Containers/internal/ledger"
	"github.com/danvoulez/UBL-Containers/internal/storage"
)

func TestExportImportRoundTrip(t *testing.T) {
	bundle := Bundle{
		Report: ledger.VerificationReport{
			ContainerID: "wallet_alice",
			Lo:          0,
			Hi:          1,
			Count:       2,
			MerkleRoot:  "deadbeef",
			Valid:       true,
		},
		Records: []storage.Record{
			{ContainerID: "wallet_alice", Sequence: 0, EntryHash: "h0"},
			{ContainerID: "wallet_alice", Sequence: 1, EntryHash: "h1"},
		},
	}

	blob, err := Export(bundle)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(blob) == 0 {
		t.Fatal("expected non-empty export")
	}

	got, err := Import(blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.Report != bundle.Report {
		t.Fatalf("report mismatch: got %+v, want %+v", got.Report, bundle.Report)
	}
	if len(got.Records) != 2 || got.Records[1].EntryHash != "h1" {
		t.Fatalf("unexpected records: %+v", got.Records)
	}
}

func TestImportRejectsCorruptBlob(t *testing.T) {
	if _, err := Import([]byte("not a zstd frame")); err == nil {
		t.Fatal("expected error for corrupt blob")
	}
}
