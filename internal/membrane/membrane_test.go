// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package membrane

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/danvoulez/UBL-Containers/internal/envelope"
	"github.com/danvoulez/UBL-Containers/internal/pact"
	"github.com/danvoulez/UBL-Containers/internal/ubcrypto"
)

const containerID = "wallet_alice"

func zeroHash() string { return strings.Repeat("0", 64) }

type fixture struct {
	pub  string
	priv ed25519.PrivateKey
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	return fixture{pub: hex.EncodeToString(pub), priv: priv}
}

// signed returns a LinkCommit with a valid signature over its own
// signing bytes, built from the given mutator so tests can construct
// "everything valid except the one rule under test".
func (f fixture) signed(t *testing.T, mutate func(*envelope.LinkCommit)) envelope.LinkCommit {
	t.Helper()
	link := envelope.LinkCommit{
		Version:          1,
		ContainerID:      containerID,
		ExpectedSequence: 0,
		PreviousHash:     zeroHash(),
		AtomHash:         strings.Repeat("a", 64),
		IntentClass:      envelope.Observation,
		PhysicsDelta:     0,
		AuthorPubkey:     f.pub,
	}
	if mutate != nil {
		mutate(&link)
	}
	signingBytes, err := link.SigningBytes()
	if err != nil {
		t.Fatalf("signing bytes: %v", err)
	}
	sig, err := ubcrypto.Sign(f.priv, signingBytes)
	if err != nil {
		t.Fatal(err)
	}
	link.Signature = sig
	return link
}

func genesisState() State {
	return State{ContainerID: containerID, Sequence: 0, LastHash: zeroHash(), PhysicalBalance: 0}
}

func TestAcceptsValidGenesisObservation(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, nil)
	if r := Validate(link, genesisState(), nil, 0); r != nil {
		t.Fatalf("expected accept, got %v", r)
	}
}

func TestV1InvalidVersion(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, func(l *envelope.LinkCommit) { l.Version = 2 })
	r := Validate(link, genesisState(), nil, 0)
	if r == nil || r.Code != CodeInvalidVersion {
		t.Fatalf("expected %s, got %v", CodeInvalidVersion, r)
	}
}

func TestV2ContainerMismatch(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, func(l *envelope.LinkCommit) { l.ContainerID = "wallet_bob" })
	r := Validate(link, genesisState(), nil, 0)
	if r == nil || r.Code != CodeContainerMismatch {
		t.Fatalf("expected %s, got %v", CodeContainerMismatch, r)
	}
}

func TestV3SignatureInvalid(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, nil)
	// Flip a bit in the signature after it was computed correctly.
	sigBytes, _ := hex.DecodeString(link.Signature)
	sigBytes[0] ^= 1
	link.Signature = hex.EncodeToString(sigBytes)

	r := Validate(link, genesisState(), nil, 0)
	if r == nil || r.Code != CodeSignatureInvalid {
		t.Fatalf("expected %s, got %v", CodeSignatureInvalid, r)
	}
}

func TestV4RealityDrift(t *testing.T) {
	f := newFixture(t)
	state := State{ContainerID: containerID, Sequence: 1, LastHash: strings.Repeat("b", 64), PhysicalBalance: 0}
	// Correct expected_sequence but stale (zero) previous_hash.
	link := f.signed(t, func(l *envelope.LinkCommit) { l.ExpectedSequence = 1 })
	r := Validate(link, state, nil, 0)
	if r == nil || r.Code != CodeRealityDrift {
		t.Fatalf("expected %s, got %v", CodeRealityDrift, r)
	}
}

func TestV5SequenceMismatch(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, func(l *envelope.LinkCommit) { l.ExpectedSequence = 2 })
	r := Validate(link, genesisState(), nil, 0)
	if r == nil || r.Code != CodeSequenceMismatch {
		t.Fatalf("expected %s, got %v", CodeSequenceMismatch, r)
	}
}

func TestV6InvalidAtomHash(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, func(l *envelope.LinkCommit) { l.AtomHash = "not-hex" })
	r := Validate(link, genesisState(), nil, 0)
	if r == nil || r.Code != CodeInvalidAtomHash {
		t.Fatalf("expected %s, got %v", CodeInvalidAtomHash, r)
	}
}

func TestV7ObservationMustBeZero(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, func(l *envelope.LinkCommit) {
		l.IntentClass = envelope.Observation
		l.PhysicsDelta = 5
	})
	r := Validate(link, genesisState(), nil, 0)
	if r == nil || r.Code != CodeObservationMustBeZero {
		t.Fatalf("expected %s, got %v", CodeObservationMustBeZero, r)
	}
}

func TestV7ConservationViolation(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, func(l *envelope.LinkCommit) {
		l.IntentClass = envelope.Conservation
		l.PhysicsDelta = -50
	})
	r := Validate(link, genesisState(), nil, 0)
	if r == nil || r.Code != CodeConservationViolation {
		t.Fatalf("expected %s, got %v", CodeConservationViolation, r)
	}
}

func TestV7EntropyAllowsAnyDelta(t *testing.T) {
	f := newFixture(t)
	link := f.signed(t, func(l *envelope.LinkCommit) {
		l.IntentClass = envelope.Entropy
		l.PhysicsDelta = 1_000_000
	})
	if r := Validate(link, genesisState(), nil, 0); r != nil {
		t.Fatalf("expected accept, got %v", r)
	}
}

func TestV8AuthorityRequiredWhenPactRegistered(t *testing.T) {
	f := newFixture(t)
	signer := newFixture(t)
	reg := pact.NewRegistry()
	reg.Register(pact.Pact{
		PactID:      "p1",
		Scope:       pact.ScopeContainer,
		Threshold:   1,
		Signers:     map[string]struct{}{signer.pub: {}},
		Window:      pact.TimeWindow{NotBefore: 0, NotAfter: 1 << 40},
		RiskLevel:   pact.L5,
		ContainerID: containerID,
	})

	link := f.signed(t, func(l *envelope.LinkCommit) {
		l.IntentClass = envelope.Entropy
		l.PhysicsDelta = 500
	})

	// No pact proof attached: must be rejected once a pact exists.
	r := Validate(link, genesisState(), reg, 1000)
	if r == nil || r.Code != CodeAuthorityRequired {
		t.Fatalf("expected %s, got %v", CodeAuthorityRequired, r)
	}

	signingBytes, err := link.SigningBytes()
	if err != nil {
		t.Fatal(err)
	}
	proofSig, err := ubcrypto.Sign(signer.priv, signingBytes)
	if err != nil {
		t.Fatal(err)
	}
	link.PactProof = &envelope.PactProofRef{
		PactID:     "p1",
		Signatures: []envelope.PactSignatureRef{{Pubkey: signer.pub, Signature: proofSig}},
	}
	if r := Validate(link, genesisState(), reg, 1000); r != nil {
		t.Fatalf("expected accept with valid pact proof, got %v", r)
	}
}

func TestV8NotRequiredWithoutRegisteredPact(t *testing.T) {
	f := newFixture(t)
	reg := pact.NewRegistry() // empty: no pacts registered for this container
	link := f.signed(t, func(l *envelope.LinkCommit) {
		l.IntentClass = envelope.Entropy
		l.PhysicsDelta = 500
	})
	if r := Validate(link, genesisState(), reg, 1000); r != nil {
		t.Fatalf("expected accept (no pact opted in), got %v", r)
	}
}

func TestEndToEndGenesisEntropyThenConservation(t *testing.T) {
	f := newFixture(t)
	genesis := f.signed(t, func(l *envelope.LinkCommit) {
		l.IntentClass = envelope.Entropy
		l.PhysicsDelta = 1000
	})
	if r := Validate(genesis, genesisState(), nil, 0); r != nil {
		t.Fatalf("genesis should be accepted, got %v", r)
	}

	signingBytes, _ := genesis.SigningBytes()
	entryHash := ubcrypto.HashLink(signingBytes)
	stateAfterGenesis := State{ContainerID: containerID, Sequence: 1, LastHash: entryHash.Hex(), PhysicalBalance: 1000}

	withdrawal := f.signed(t, func(l *envelope.LinkCommit) {
		l.ExpectedSequence = 1
		l.PreviousHash = entryHash.Hex()
		l.IntentClass = envelope.Conservation
		l.PhysicsDelta = -100
	})
	if r := Validate(withdrawal, stateAfterGenesis, nil, 0); r != nil {
		t.Fatalf("conservation withdrawal should be accepted, got %v", r)
	}
}
