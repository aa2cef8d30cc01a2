// Copyright 2025 smart-bench-go
package signer

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// DefaultSeed is the fixed seed used to derive the per-call signer
// sequence when the caller does not supply one explicitly. Keeping it
// fixed (rather than random) makes a per-call-signer run reproducible:
// re-running with the same seed submits exactly one transaction per
// derived key, every time.
var DefaultSeed = []byte("smart-bench-go/per-call-signer/v1")

// DeriveKeyMaterial derives 32 bytes of deterministic key material for
// call index i from seed, via HKDF-SHA3-256. The output is interpreted
// by the platform adapter as a secp256k1 private key (EVM) or an
// sr25519 mini-secret key (Wasm); this package has no opinion on which.
func DeriveKeyMaterial(seed []byte, index uint64) ([32]byte, error) {
	var out [32]byte
	var info [8]byte
	binary.BigEndian.PutUint64(info[:], index)

	kdf := hkdf.New(sha3.New256, seed, nil, info[:])
	if _, err := io.ReadFull(kdf, out[:]); err != nil {
		return out, fmt.Errorf("signer: derive key material for index %d: %w", index, err)
	}
	return out, nil
}
