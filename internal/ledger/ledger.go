// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger is the append-only engine: it owns the
// read-validate-append triple for every container, delegating pure
// validation to package membrane and durable persistence to a
// storage.Store. It also derives ContainerState (the projected
// sequence/last_hash/physical_balance/merkle_root a client needs to
// build its next LinkCommit — the State Projector) and offers
// VerifyRange, an offline audit that independently recomputes a
// container's hash chain, entry hashes, signatures, and Merkle root
// from stored entries without trusting the engine's own cache.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/danvoulez/UBL-Containers/internal/clock"
	"github.com/danvoulez/UBL-Containers/internal/envelope"
	"github.com/danvoulez/UBL-Containers/internal/membrane"
	"github.com/danvoulez/UBL-Containers/internal/pact"
	"github.com/danvoulez/UBL-Containers/internal/storage"
	"github.com/danvoulez/UBL-Containers/internal/ubcrypto"
)

// ContainerState is the public, read-only projection of a container's
// chain tip (spec.md §3's ContainerState / §4.6's State Projector):
// exactly the fields a client needs to build its next LinkCommit, plus
// the Merkle root over every accepted entry_hash so far.
type ContainerState struct {
	ContainerID     string
	Sequence        uint64
	LastHash        string
	PhysicalBalance int64
	MerkleRoot      string
}

// stateEntry is the engine's internal cache of a container's
// projection. The Merkle root is the one field that isn't cheap to
// update incrementally on every Commit, so it is recomputed on demand
// rather than on every append: a Commit appends the new entry_hash and
// marks the root dirty; the root is only rebuilt the next time
// something actually asks for it.
type stateEntry struct {
	ContainerState
	hashes      []ubcrypto.Hash
	merkleDirty bool
}

// merkleRoot returns the entry's Merkle root, recomputing and caching
// it first if a Commit has appended an entry since the last call.
func (s *stateEntry) merkleRoot() string {
	if s.merkleDirty {
		s.MerkleRoot = ubcrypto.MerkleRoot(s.hashes).Hex()
		s.merkleDirty = false
	}
	return s.MerkleRoot
}

// Receipt is returned to the caller on a successful Commit.
type Receipt struct {
	ContainerID string
	Sequence    uint64
	EntryHash   string
	Timestamp   int64
}

// VerificationReport summarizes an offline VerifyRange audit.
type VerificationReport struct {
	ContainerID string
	Lo, Hi      uint64
	Count       int
	MerkleRoot  string
	Valid       bool
	FirstError  string
}

// Engine is the ledger core. It is safe for concurrent use: commits
// against different containers never block each other, and commits
// against the same container are serialized by a per-container mutex
// rather than one global lock (spec.md §5).
type Engine struct {
	store storage.Store
	pacts *pact.Registry
	clk   clock.Clock

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	statesMu sync.Mutex
	states   map[string]*stateEntry
}

// New constructs an Engine. pacts may be nil, in which case membrane
// rule V8 never fires for any container (bare self-authority only,
// unchanged from spec.md's original V1–V7). clk may be nil, in which
// case clock.Real{} is used.
func New(store storage.Store, pacts *pact.Registry, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{
		store:  store,
		pacts:  pacts,
		clk:    clk,
		locks:  make(map[string]*sync.Mutex),
		states: make(map[string]*stateEntry),
	}
}

func (e *Engine) containerLock(containerID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[containerID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[containerID] = l
	}
	return l
}

// GetState returns containerID's current projected state. Callers use
// this to learn the expected_sequence and previous_hash their next
// LinkCommit must carry.
func (e *Engine) GetState(ctx context.Context, containerID string) (ContainerState, error) {
	lock := e.containerLock(containerID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.currentState(ctx, containerID)
	if err != nil {
		return ContainerState{}, err
	}
	state.MerkleRoot = state.merkleRoot()
	return state.ContainerState, nil
}

// Validate runs link through membrane.Validate against containerID's
// current state without appending anything, for clients that want to
// check a candidate commit before submitting it for real. It takes the
// same per-container lock Commit does, so the answer reflects a
// consistent snapshot rather than racing a concurrent Commit.
func (e *Engine) Validate(ctx context.Context, link envelope.LinkCommit) (*membrane.Rejection, error) {
	lock := e.containerLock(link.ContainerID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.currentState(ctx, link.ContainerID)
	if err != nil {
		return nil, err
	}

	var pacts membrane.PactSource
	if e.pacts != nil {
		pacts = e.pacts
	}
	mstate := membrane.State{
		ContainerID:     state.ContainerID,
		Sequence:        state.Sequence,
		LastHash:        state.LastHash,
		PhysicalBalance: state.PhysicalBalance,
	}
	return membrane.Validate(link, mstate, pacts, e.clk.Now()), nil
}

// Commit runs link through membrane.Validate against containerID's
// current state and, if accepted, appends the resulting entry and
// updates the cached projection in O(1). A validation failure is
// returned as a *membrane.Rejection satisfying the error interface;
// callers should use errors.As to inspect the failing rule's Code.
func (e *Engine) Commit(ctx context.Context, link envelope.LinkCommit) (Receipt, error) {
	lock := e.containerLock(link.ContainerID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.currentState(ctx, link.ContainerID)
	if err != nil {
		return Receipt{}, err
	}

	now := e.clk.Now()

	var pacts membrane.PactSource
	if e.pacts != nil {
		pacts = e.pacts
	}
	mstate := membrane.State{
		ContainerID:     state.ContainerID,
		Sequence:        state.Sequence,
		LastHash:        state.LastHash,
		PhysicalBalance: state.PhysicalBalance,
	}
	if rej := membrane.Validate(link, mstate, pacts, now); rej != nil {
		return Receipt{}, rej
	}

	signingBytes, err := link.SigningBytes()
	if err != nil {
		return Receipt{}, fmt.Errorf("ledger: %w", err)
	}
	entryHash := ubcrypto.HashLink(signingBytes)
	entryHashHex := entryHash.Hex()

	rec := storage.Record{
		ContainerID:      link.ContainerID,
		Sequence:         link.ExpectedSequence,
		EntryHash:        entryHashHex,
		PreviousHash:     link.PreviousHash,
		LinkSigningBytes: signingBytes,
		LinkSignature:    link.Signature,
		AuthorPubkey:     link.AuthorPubkey,
		IntentClass:      string(link.IntentClass),
		PhysicsDelta:     link.PhysicsDelta,
		Timestamp:        now,
	}
	if err := e.store.Append(ctx, rec); err != nil {
		return Receipt{}, fmt.Errorf("ledger: append: %w", err)
	}

	// The per-container lock is held for the whole triple, so this
	// update is the only writer and needs no further synchronization.
	state.Sequence++
	state.LastHash = entryHashHex
	state.PhysicalBalance += link.PhysicsDelta
	state.hashes = append(state.hashes, entryHash)
	state.merkleDirty = true

	return Receipt{
		ContainerID: link.ContainerID,
		Sequence:    rec.Sequence,
		EntryHash:   entryHashHex,
		Timestamp:   now,
	}, nil
}

// currentState returns the cached projection for containerID,
// reconstructing it from storage on first touch. Callers must hold
// containerID's lock.
func (e *Engine) currentState(ctx context.Context, containerID string) (*stateEntry, error) {
	e.statesMu.Lock()
	cached, ok := e.states[containerID]
	e.statesMu.Unlock()
	if ok {
		return cached, nil
	}

	loaded, err := e.loadState(ctx, containerID)
	if err != nil {
		return nil, err
	}

	e.statesMu.Lock()
	defer e.statesMu.Unlock()
	if cached, ok := e.states[containerID]; ok {
		return cached, nil
	}
	e.states[containerID] = loaded
	return loaded, nil
}

// loadState replays every persisted entry for containerID to
// reconstruct its projection, including the ordered hash list the
// Merkle root is derived from. This is the one place cost is O(n)
// rather than O(1): once cached, every subsequent Commit updates the
// projection incrementally.
func (e *Engine) loadState(ctx context.Context, containerID string) (*stateEntry, error) {
	count, err := e.store.Count(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("ledger: loading state for %s: %w", containerID, err)
	}
	if count == 0 {
		return &stateEntry{
			ContainerState: ContainerState{
				ContainerID: containerID,
				Sequence:    0,
				LastHash:    ubcrypto.ZeroHash.Hex(),
			},
		}, nil
	}

	records, err := e.store.Range(ctx, containerID, 0, count-1)
	if err != nil {
		return nil, fmt.Errorf("ledger: replaying %s: %w", containerID, err)
	}

	var balance int64
	hashes := make([]ubcrypto.Hash, 0, len(records))
	for _, r := range records {
		balance += r.PhysicsDelta
		h, ok := ubcrypto.ParseHash(r.EntryHash)
		if !ok {
			return nil, fmt.Errorf("ledger: replaying %s: entry %d: malformed entry_hash %q", containerID, r.Sequence, r.EntryHash)
		}
		hashes = append(hashes, h)
	}
	tail := records[len(records)-1]

	return &stateEntry{
		ContainerState: ContainerState{
			ContainerID:     containerID,
			Sequence:        count,
			LastHash:        tail.EntryHash,
			PhysicalBalance: balance,
		},
		hashes:      hashes,
		merkleDirty: true,
	}, nil
}

// VerifyRange independently recomputes and checks the hash chain and
// entry hashes for containerID over [lo, hi], without relying on the
// engine's cached projection. It is the audit entry point: sequence
// continuity, previous_hash linkage, and entry_hash recomputation from
// the stored signing bytes are all checked from scratch, and the
// Merkle root over the range's entry hashes is returned so an external
// verifier can compare it against an independently held value.
func (e *Engine) VerifyRange(ctx context.Context, containerID string, lo, hi uint64) (VerificationReport, error) {
	records, err := e.store.Range(ctx, containerID, lo, hi)
	if err != nil {
		return VerificationReport{}, fmt.Errorf("ledger: verify range: %w", err)
	}

	report := VerificationReport{ContainerID: containerID, Lo: lo, Hi: hi, Count: len(records), Valid: true}
	if len(records) == 0 {
		report.MerkleRoot = ubcrypto.ZeroHash.Hex()
		return report, nil
	}

	hashes := make([]ubcrypto.Hash, 0, len(records))
	prevHash := records[0].PreviousHash
	prevSeq := records[0].Sequence

	for i, rec := range records {
		if i > 0 {
			if rec.Sequence != prevSeq+1 {
				report.Valid = false
				report.FirstError = fmt.Sprintf("sequence gap: entry %d follows entry %d", rec.Sequence, prevSeq)
				break
			}
			if rec.PreviousHash != prevHash {
				report.Valid = false
				report.FirstError = fmt.Sprintf("chain break at sequence %d: previous_hash %s does not match prior entry_hash %s", rec.Sequence, rec.PreviousHash, prevHash)
				break
			}
		}

		recomputed := ubcrypto.HashLink(rec.LinkSigningBytes)
		if recomputed.Hex() != rec.EntryHash {
			report.Valid = false
			report.FirstError = fmt.Sprintf("entry_hash mismatch at sequence %d: stored %s, recomputed %s", rec.Sequence, rec.EntryHash, recomputed.Hex())
			break
		}

		if !ubcrypto.Verify(rec.AuthorPubkey, rec.LinkSignature, rec.LinkSigningBytes) {
			report.Valid = false
			report.FirstError = fmt.Sprintf("signature invalid at sequence %d", rec.Sequence)
			break
		}

		hashes = append(hashes, recomputed)
		prevHash = rec.EntryHash
		prevSeq = rec.Sequence
	}

	report.MerkleRoot = ubcrypto.MerkleRoot(hashes).Hex()
	return report, nil
}
