// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec wraps fxamacker/cbor with Core Deterministic Encoding
// (RFC 8949 §4.2), the same recipe as the teacher's lib/codec: sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Used by the storage backends to persist storage.Record values —
// this is an implementation-internal wire format, distinct from and
// unrelated to package canon's atom/signing-bytes canonicalization,
// which is a protocol-level concern shared across implementations.
package codec

import "github.com/fxamacker/cbor/v2"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
