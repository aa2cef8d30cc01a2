// Copyright 2025 smart-bench-go
package evm

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// KeyPair is a secp256k1 signer, derived from the same 32 bytes of
// seed material the Wasm adapter turns into an sr25519 key: both
// platforms consume signer.DeriveKeyMaterial's output, interpreted
// differently per curve.
type KeyPair struct {
	private *ecdsa.PrivateKey
}

// NewKeyPair builds a secp256k1 keypair from seed.
func NewKeyPair(seed [32]byte) (*KeyPair, error) {
	priv, err := crypto.ToECDSA(seed[:])
	if err != nil {
		return nil, fmt.Errorf("evm: derive secp256k1 key: %w", err)
	}
	return &KeyPair{private: priv}, nil
}

// Address is the keypair's Ethereum address.
func (k *KeyPair) Address() [20]byte {
	return crypto.PubkeyToAddress(k.private.PublicKey)
}
