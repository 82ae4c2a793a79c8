// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package ubcrypto provides the core's domain-separated BLAKE3 hashing
// and Ed25519 signature operations. Hashing follows the same recipe
// as the teacher's lib/artifact.HashChunk/HashFile: a fixed domain
// prefix folded into the hash so the same input bytes never collide
// across unrelated uses.
//
// Two hash domains exist: "ubl:atom" for canonicalized payload bytes,
// and "ubl:link" for LinkCommit signing bytes. A third, "ubl:mrk", is
// used internally by MerkleRoot for internal tree nodes. Unlike
// lib/artifact (which uses BLAKE3 keyed mode with a 32-byte key), this
// domain separation is done by prefixing the domain string plus a
// single newline to the message before hashing with unkeyed BLAKE3,
// per spec.
package ubcrypto

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

const (
	domainAtom   = "ubl:atom\n"
	domainLink   = "ubl:link\n"
	domainMerkle = "ubl:mrk\n"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// ZeroHash is the all-zero hash used as previous_hash for genesis
// entries and as the empty chain's Merkle root.
var ZeroHash Hash

// HashAtom computes the atom-domain hash of canonical atom bytes.
func HashAtom(atomBytes []byte) Hash {
	return domainHash(domainAtom, atomBytes)
}

// HashLink computes the link-domain hash of LinkCommit signing bytes.
// This is the value persisted as a LedgerEntry's entry_hash.
func HashLink(signingBytes []byte) Hash {
	return domainHash(domainLink, signingBytes)
}

func domainHash(domain string, data []byte) Hash {
	h := blake3.New()
	h.Write([]byte(domain))
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Hex returns the lowercase hex encoding of h.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// ParseHash decodes a 64-character lowercase hex string into a Hash.
// It rejects anything that is not exactly 32 bytes of hex, including
// uppercase hex (the wire format is lowercase-only per spec).
func ParseHash(s string) (Hash, bool) {
	if len(s) != 64 {
		return Hash{}, false
	}
	for _, c := range s {
		if !isLowerHexDigit(c) {
			return Hash{}, false
		}
	}
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != 32 {
		return Hash{}, false
	}
	var h Hash
	copy(h[:], decoded)
	return h, true
}

// IsLowerHex64 reports whether s is exactly 64 lowercase hex
// characters, without decoding it into a Hash. Used by membrane rule
// V6, which only needs the format check, not the parsed value.
func IsLowerHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !isLowerHexDigit(c) {
			return false
		}
	}
	return true
}

func isLowerHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
