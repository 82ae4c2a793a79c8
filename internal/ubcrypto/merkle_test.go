// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package ubcrypto

import "testing"

func TestMerkleRootEmpty(t *testing.T) {
	if got := MerkleRoot(nil); got != ZeroHash {
		t.Fatalf("empty chain should yield the zero hash, got %x", got)
	}
}

func TestMerkleRootSingleLeaf(t *testing.T) {
	h := HashAtom([]byte("leaf"))
	if got := MerkleRoot([]Hash{h}); got != h {
		t.Fatalf("single-leaf root should equal the leaf itself")
	}
}

func TestMerkleRootDeterministic(t *testing.T) {
	leaves := makeLeaves(5)
	a := MerkleRoot(leaves)
	b := MerkleRoot(leaves)
	if a != b {
		t.Fatalf("MerkleRoot is not deterministic across calls")
	}
}

func TestMerkleRootOddPromotionNotDuplication(t *testing.T) {
	// Three leaves: pair(0,1) hashed, leaf 2 promoted unhashed to the
	// next level, then the level-1 pair (hash01, leaf2) is hashed.
	leaves := makeLeaves(3)
	want := hashNodePair(hashNodePair(leaves[0], leaves[1]), leaves[2])
	got := MerkleRoot(leaves)
	if got != want {
		t.Fatalf("odd-node promotion mismatch: got %x, want %x", got, want)
	}
}

func TestMerkleRootSensitiveToOrder(t *testing.T) {
	leaves := makeLeaves(4)
	reordered := []Hash{leaves[1], leaves[0], leaves[2], leaves[3]}
	if MerkleRoot(leaves) == MerkleRoot(reordered) {
		t.Fatalf("reordering leaves should change the root")
	}
}

func makeLeaves(n int) []Hash {
	leaves := make([]Hash, n)
	for i := 0; i < n; i++ {
		leaves[i] = HashAtom([]byte{byte(i)})
	}
	return leaves
}
