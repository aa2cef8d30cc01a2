// Copyright 2025 smart-bench-go
package wasm

import (
	"fmt"

	"github.com/ChainSafe/go-schnorrkel"
	"golang.org/x/crypto/blake2b"
)

// substrateSigningContext is the fixed label Substrate chains use when
// hashing a transaction payload into an sr25519 signing transcript.
var substrateSigningContext = schnorrkel.NewSigningContext([]byte("substrate"))

// KeyPair is an sr25519 signer: the minimal surface the Wasm adapter
// needs to sign an extrinsic payload and report its 32-byte account id.
type KeyPair struct {
	secret *schnorrkel.SecretKey
	public [32]byte
}

// NewKeyPair derives an sr25519 keypair from 32 bytes of seed material,
// shared with the EVM adapter's secp256k1 derivation via
// signer.DeriveKeyMaterial so both platforms consume the same per-call
// signer sequence.
func NewKeyPair(seed [32]byte) (*KeyPair, error) {
	mini, err := schnorrkel.NewMiniSecretKeyFromRaw(seed)
	if err != nil {
		return nil, fmt.Errorf("wasm: derive sr25519 key: %w", err)
	}
	secret := mini.ExpandEd25519()
	pub, err := secret.Public()
	if err != nil {
		return nil, fmt.Errorf("wasm: derive sr25519 public key: %w", err)
	}
	return &KeyPair{secret: secret, public: pub.Encode()}, nil
}

// AccountID returns the 32-byte account id (the raw sr25519 public
// key) used as the signer's address and as the deployer input to
// contract address derivation.
func (k *KeyPair) AccountID() [32]byte {
	return k.public
}

// Sign produces a 64-byte sr25519 signature over payload under the
// standard Substrate "substrate" signing context.
func (k *KeyPair) Sign(payload []byte) ([64]byte, error) {
	transcript := substrateSigningContext.Bytes(payload)
	sig, err := k.secret.Sign(transcript)
	if err != nil {
		return [64]byte{}, fmt.Errorf("wasm: sign payload: %w", err)
	}
	return sig.Encode(), nil
}

// blake2b256 is the hash function Substrate uses for extrinsic hashes
// and contract address derivation.
func blake2b256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}
