// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope defines LinkCommit, the record that crosses the
// trust boundary from an untrusted client into the ledger, and its
// signing-bytes encoding — the canonical pre-image for both the
// client's Ed25519 signature and the entry_hash computed on
// acceptance.
package envelope

import (
	"fmt"

	"github.com/danvoulez/UBL-Containers/internal/canon"
)

// IntentClass is the closed physics-class enum controlling how
// PhysicsDelta is checked against container state (membrane rule V7).
type IntentClass string

const (
	Observation  IntentClass = "observation"
	Conservation IntentClass = "conservation"
	Entropy      IntentClass = "entropy"
	Evolution    IntentClass = "evolution"
)

// Valid reports whether c is one of the four defined intent classes.
func (c IntentClass) Valid() bool {
	switch c {
	case Observation, Conservation, Entropy, Evolution:
		return true
	default:
		return false
	}
}

// RequiresAuthority reports whether this intent class is high-risk
// enough that a container opting into pact-gated authority (§4 of
// SPEC_FULL.md) must see a valid PactProof before accepting a commit
// of this class. Observation and Conservation never require one.
func (c IntentClass) RequiresAuthority() bool {
	return c == Entropy || c == Evolution
}

// LinkCommit is the fixed envelope a client builds, signs, and submits
// to target a container. Every field except Signature participates in
// SigningBytes.
type LinkCommit struct {
	Version          int
	ContainerID      string
	ExpectedSequence uint64
	PreviousHash     string // 64 lowercase hex chars, or 64 zeros for genesis
	AtomHash         string // 64 lowercase hex chars
	IntentClass      IntentClass
	PhysicsDelta     int64
	AuthorPubkey     string // lowercase hex Ed25519 public key
	Signature        string // lowercase hex Ed25519 signature over SigningBytes

	// PactProof is optional authority evidence for Entropy/Evolution
	// commits against containers that have registered one or more
	// Pacts (SPEC_FULL.md §4). It does not participate in
	// SigningBytes or entry_hash — it authorizes the commit, it does
	// not alter the commit's identity. nil for containers with no
	// registered pacts, or for Observation/Conservation commits.
	PactProof *PactProofRef
}

// PactProofRef avoids an import cycle between envelope and pact: the
// membrane and ledger resolve this into a pact.PactProof by
// PactID/Signatures when pact-gating applies.
type PactProofRef struct {
	PactID     string
	Signatures []PactSignatureRef
}

type PactSignatureRef struct {
	Pubkey    string
	Signature string
}

// SigningBytes returns the canonical encoding of every LinkCommit
// field except Signature, with object keys sorted per package canon's
// rules. This is what the author signs, and what HashLink is applied
// to in order to obtain entry_hash.
func (l LinkCommit) SigningBytes() ([]byte, error) {
	if !l.IntentClass.Valid() {
		return nil, fmt.Errorf("envelope: invalid intent_class %q", l.IntentClass)
	}

	v := canon.Object(
		canon.Member{Key: "version", Value: canon.Int(int64(l.Version))},
		canon.Member{Key: "container_id", Value: canon.String(l.ContainerID)},
		canon.Member{Key: "expected_sequence", Value: canon.Int(int64(l.ExpectedSequence))},
		canon.Member{Key: "previous_hash", Value: canon.String(l.PreviousHash)},
		canon.Member{Key: "atom_hash", Value: canon.String(l.AtomHash)},
		canon.Member{Key: "intent_class", Value: canon.String(string(l.IntentClass))},
		canon.Member{Key: "physics_delta", Value: canon.Int(l.PhysicsDelta)},
		canon.Member{Key: "author_pubkey", Value: canon.String(l.AuthorPubkey)},
	)
	return canon.Canonicalize(v)
}
