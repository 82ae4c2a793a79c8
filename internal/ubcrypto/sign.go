// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package ubcrypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// Sign signs message (the LinkCommit's signing bytes) with an Ed25519
// private key and returns the lowercase-hex-encoded signature.
func Sign(private ed25519.PrivateKey, message []byte) (string, error) {
	if len(private) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("ubcrypto: private key has %d bytes, want %d", len(private), ed25519.PrivateKeySize)
	}
	sig := ed25519.Sign(private, message)
	return hex.EncodeToString(sig), nil
}

// Verify checks an Ed25519 signature over message. It fails closed on
// any malformed input: wrong-length public key, wrong-length or
// non-hex signature, or a signature that does not verify — including
// signatures over points that are not valid curve elements, which
// ed25519.Verify itself rejects.
//
// pubkeyHex and signatureHex are both lowercase hex strings, per the
// LinkCommit wire format.
func Verify(pubkeyHex, signatureHex string, message []byte) bool {
	pub, err := hex.DecodeString(pubkeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}
