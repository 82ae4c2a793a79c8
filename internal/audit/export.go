// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit exports an offline verification report as a
// zstd-compressed CBOR blob, for handing a container's history to a
// party that only needs to check it, not run the core. Compression
// uses github.com/klauspost/compress/zstd at the default level — the
// same library the teacher's artifact pipeline already pulls in for
// large payloads — rather than stdlib compress/gzip, since the other
// examples in this corpus consistently reach for zstd over gzip for
// new wire formats.
package audit

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/danvoulez/UBL-Containers/internal/codec"
	"github.com/danvoulez/UBL-Containers/internal/ledger"
	"github.com/danvoulez/UBL-Containers/internal/storage"
)

// Bundle is the exported payload: the independently-recomputed
// verification report plus the raw records it was computed over, so a
// recipient can re-verify without a live connection to the core.
type Bundle struct {
	Report  ledger.VerificationReport
	Records []storage.Record
}

// Export CBOR-encodes bundle using package codec's deterministic
// encoding, then compresses it with zstd.
func Export(bundle Bundle) ([]byte, error) {
	encoded, err := codec.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("audit: encoding bundle: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("audit: creating zstd writer: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(encoded, nil), nil
}

// Import decompresses and decodes a blob produced by Export.
func Import(blob []byte) (Bundle, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return Bundle{}, fmt.Errorf("audit: creating zstd reader: %w", err)
	}
	defer decoder.Close()

	decoded, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		return Bundle{}, fmt.Errorf("audit: decompressing bundle: %w", err)
	}

	var bundle Bundle
	if err := codec.Unmarshal(decoded, &bundle); err != nil {
		return Bundle{}, fmt.Errorf("audit: decoding bundle: %w", err)
	}
	return bundle, nil
}

// WriteTo writes an exported bundle to w. Convenience wrapper for
// cmd/ubl-audit, which streams the export directly to a file.
func WriteTo(w io.Writer, bundle Bundle) error {
	blob, err := Export(bundle)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(blob))
	return err
}
