// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package membrane implements the pure, deterministic commit
// validator: seven rules (V1–V7) from spec.md, plus the additive V8
// authority rule for containers that have opted into pact-gating
// (SPEC_FULL.md §4). Validation never mutates state and never
// performs I/O; it is given a read-only ContainerState snapshot and a
// candidate LinkCommit and returns either Accept or a Rejection
// naming exactly one failing rule.
package membrane

import (
	"fmt"

	"github.com/danvoulez/UBL-Containers/internal/envelope"
	"github.com/danvoulez/UBL-Containers/internal/pact"
	"github.com/danvoulez/UBL-Containers/internal/ubcrypto"
)

// Code names the specific rule a candidate commit failed.
type Code string

const (
	CodeInvalidVersion         Code = "V1_INVALID_VERSION"
	CodeContainerMismatch      Code = "V2_CONTAINER_MISMATCH"
	CodeSignatureInvalid       Code = "V3_SIGNATURE_INVALID"
	CodeRealityDrift           Code = "V4_REALITY_DRIFT"
	CodeSequenceMismatch       Code = "V5_SEQUENCE_MISMATCH"
	CodeInvalidAtomHash        Code = "V6_INVALID_ATOM_HASH"
	CodeConservationViolation  Code = "V7_CONSERVATION_VIOLATION"
	CodeObservationMustBeZero  Code = "V7_OBSERVATION_MUST_BE_ZERO"
	CodeAuthorityRequired      Code = "V8_AUTHORITY_REQUIRED"
	CodeMalformedEnvelope      Code = "MALFORMED_ENVELOPE"
)

// Rejection is returned for any candidate that fails validation. It
// carries exactly one Code and a human-readable Message — never more
// than one rule fires, because evaluation short-circuits on the first
// failure in the fixed order V1..V8.
type Rejection struct {
	Code    Code
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// State is the minimal read-only snapshot of container state the
// membrane needs. It mirrors ledger.ContainerState's fields the
// membrane cares about, kept separate so this package has no
// dependency on the ledger engine's storage concerns.
type State struct {
	ContainerID     string
	Sequence        uint64
	LastHash        string
	PhysicalBalance int64
}

// PactSource resolves a container's Pact registry for rule V8.
// *pact.Registry implements this directly.
type PactSource interface {
	HasAny(containerID string) bool
	Validate(proof pact.Proof, class envelope.IntentClass, now int64, signingBytes []byte) error
}

// Validate runs V1–V8 against link and state, in the fixed evaluation
// order spec.md §4.4 defines, short-circuiting on the first failure.
// now is the Unix-seconds clock value used for V8's pact time-window
// check; pacts may be nil, in which case V8 never fires (a container
// with no registered pacts relies on bare self-authority, unchanged
// from spec.md's original V7 semantics).
func Validate(link envelope.LinkCommit, state State, pacts PactSource, now int64) *Rejection {
	// V1: version.
	if link.Version != 1 {
		return reject(CodeInvalidVersion, "version %d, want 1", link.Version)
	}

	// V2: container match.
	if link.ContainerID != state.ContainerID {
		return reject(CodeContainerMismatch, "link targets %q, container is %q", link.ContainerID, state.ContainerID)
	}

	// V3: signature. Cheap checks (V1/V2) run first so malformed
	// envelopes never pay for elliptic-curve verification.
	signingBytes, err := link.SigningBytes()
	if err != nil {
		return reject(CodeMalformedEnvelope, "%v", err)
	}
	if !ubcrypto.Verify(link.AuthorPubkey, link.Signature, signingBytes) {
		return reject(CodeSignatureInvalid, "signature does not verify against signing bytes")
	}

	// V4: reality drift. Checked before V5 so a client on stale state
	// learns it is out of date before being told its sequence is wrong.
	if link.PreviousHash != state.LastHash {
		return reject(CodeRealityDrift, "previous_hash %s does not match chain tip %s", link.PreviousHash, state.LastHash)
	}

	// V5: sequence continuity.
	if link.ExpectedSequence != state.Sequence {
		return reject(CodeSequenceMismatch, "expected_sequence %d, chain is at %d", link.ExpectedSequence, state.Sequence)
	}

	// V6: atom hash format.
	if !ubcrypto.IsLowerHex64(link.AtomHash) {
		return reject(CodeInvalidAtomHash, "atom_hash must be 64 lowercase hex characters")
	}

	// V7: physics rules, dispatched on the closed intent-class enum.
	switch link.IntentClass {
	case envelope.Observation:
		if link.PhysicsDelta != 0 {
			return reject(CodeObservationMustBeZero, "observation commits must carry physics_delta 0, got %d", link.PhysicsDelta)
		}
	case envelope.Conservation:
		if state.PhysicalBalance+link.PhysicsDelta < 0 {
			return reject(CodeConservationViolation, "balance %d + delta %d would go negative", state.PhysicalBalance, link.PhysicsDelta)
		}
	case envelope.Entropy, envelope.Evolution:
		// Any delta permitted; V8 below is where authority is enforced.
	default:
		return reject(CodeMalformedEnvelope, "unrecognized intent_class %q", link.IntentClass)
	}

	// V8: authority. Additive over spec.md's V1–V7: only applies when
	// the container has opted into pact-gating by registering at
	// least one Pact, and only for the two risk-bearing classes.
	if pacts != nil && link.IntentClass.RequiresAuthority() && pacts.HasAny(link.ContainerID) {
		if link.PactProof == nil {
			return reject(CodeAuthorityRequired, "container requires a pact proof for %s commits", link.IntentClass)
		}
		proof := pact.Proof{PactID: link.PactProof.PactID}
		for _, s := range link.PactProof.Signatures {
			proof.Signatures = append(proof.Signatures, pact.Signature{Pubkey: s.Pubkey, Signature: s.Signature})
		}
		if err := pacts.Validate(proof, link.IntentClass, now, signingBytes); err != nil {
			return reject(CodeAuthorityRequired, "%v", err)
		}
	}

	return nil
}
