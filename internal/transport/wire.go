// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/danvoulez/UBL-Containers/internal/envelope"

// commitRequest is the wire shape POST /commit accepts. It mirrors
// envelope.LinkCommit field-for-field; a separate type keeps the wire
// format decoupled from the core type so adding a transport-only field
// (idempotency keys, request IDs) never touches package envelope.
type commitRequest struct {
	Version          int                  `json:"version"`
	ContainerID      string               `json:"container_id"`
	ExpectedSequence uint64               `json:"expected_sequence"`
	PreviousHash     string               `json:"previous_hash"`
	AtomHash         string               `json:"atom_hash"`
	IntentClass      string               `json:"intent_class"`
	PhysicsDelta     int64                `json:"physics_delta"`
	AuthorPubkey     string               `json:"author_pubkey"`
	Signature        string               `json:"signature"`
	PactProof        *pactProofRequest    `json:"pact_proof,omitempty"`
}

type pactProofRequest struct {
	PactID     string                  `json:"pact_id"`
	Signatures []pactSignatureRequest  `json:"signatures"`
}

type pactSignatureRequest struct {
	Pubkey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

func (r commitRequest) toLinkCommit() envelope.LinkCommit {
	link := envelope.LinkCommit{
		Version:          r.Version,
		ContainerID:      r.ContainerID,
		ExpectedSequence: r.ExpectedSequence,
		PreviousHash:     r.PreviousHash,
		AtomHash:         r.AtomHash,
		IntentClass:      envelope.IntentClass(r.IntentClass),
		PhysicsDelta:     r.PhysicsDelta,
		AuthorPubkey:     r.AuthorPubkey,
		Signature:        r.Signature,
	}
	if r.PactProof != nil {
		ref := &envelope.PactProofRef{PactID: r.PactProof.PactID}
		for _, sig := range r.PactProof.Signatures {
			ref.Signatures = append(ref.Signatures, envelope.PactSignatureRef{Pubkey: sig.Pubkey, Signature: sig.Signature})
		}
		link.PactProof = ref
	}
	return link
}

type stateBody struct {
	ContainerID     string `json:"container_id"`
	Sequence        uint64 `json:"sequence"`
	LastHash        string `json:"last_hash"`
	PhysicalBalance int64  `json:"physical_balance"`
	MerkleRoot      string `json:"merkle_root"`
}

// receiptBody mirrors spec.md §6's commit wire contract: ACCEPTED
// carries receipt and omits error/code, REJECTED carries error/code
// and omits receipt.
type receiptBody struct {
	Status  string         `json:"status"`
	Receipt *receiptFields `json:"receipt,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
}

type receiptFields struct {
	EntryHash   string `json:"entry_hash"`
	Sequence    uint64 `json:"sequence"`
	Timestamp   int64  `json:"timestamp"`
	ContainerID string `json:"container_id"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// validateBody mirrors spec.md §6's validate wire contract.
type validateBody struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}
