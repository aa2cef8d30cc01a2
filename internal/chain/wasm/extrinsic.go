// Copyright 2025 smart-bench-go
//
// extrinsic.go builds signed contracts-pallet extrinsics
// (instantiate_with_code / call) and derives their hash and the
// deployed contract address.
package wasm

import (
	"fmt"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/scale"
)

// Pallet/call indices for a recent pallet-contracts-bearing runtime.
// A real deployment would read these from the node's metadata instead;
// fixing them here keeps the driver self-contained, at the cost of
// only working against a chain whose metadata matches these indices.
// See DESIGN.md for the tradeoff.
const (
	contractsPalletIndex   = 8
	callInstantiateWithCode = 0
	callCall                = 6
)

// immortalEra encodes an immortal transaction era: a single zero
// byte, meaning the extrinsic never expires.
var immortalEra = []byte{0x00}

// buildInstantiateCall SCALE-encodes the instantiate_with_code call
// body (pallet index, call index, and arguments): value is always
// zero, storage-deposit-limit unlimited.
func buildInstantiateCall(code, ctorData []byte, salt [16]byte, gas chain.Gas) []byte {
	e := scale.NewEncoder()
	e.PutUint8(contractsPalletIndex)
	e.PutUint8(callInstantiateWithCode)
	e.PutCompact(0) // value
	e.PutCompact(gas.Weight.RefTime)
	e.PutCompact(gas.Weight.ProofSize)
	e.PutOptionNone() // storage_deposit_limit: unlimited
	e.PutBytes(code)
	e.PutBytes(ctorData)
	e.PutRaw(salt[:])
	return e.Bytes()
}

// buildCallCall SCALE-encodes the contracts.call call body.
func buildCallCall(target chain.Address, callData []byte, gas chain.Gas) []byte {
	e := scale.NewEncoder()
	e.PutUint8(contractsPalletIndex)
	e.PutUint8(callCall)
	e.PutUint8(0x00) // MultiAddress::Id variant
	e.PutRaw(target[:])
	e.PutCompact(0) // value
	e.PutCompact(gas.Weight.RefTime)
	e.PutCompact(gas.Weight.ProofSize)
	e.PutOptionNone() // storage_deposit_limit: unlimited
	e.PutBytes(callData)
	return e.Bytes()
}

// signedExtrinsic wraps callBody in a signed extrinsic v4 envelope:
// version byte, signer MultiAddress, sr25519 MultiSignature, immortal
// era, compact nonce, zero tip, then the call itself. The whole output
// (including its own compact length prefix) is what gets hashed and
// submitted, matching how Substrate's UncheckedExtrinsic::encode works.
func signedExtrinsic(signer *KeyPair, nonce uint64, callBody []byte) ([]byte, error) {
	body := scale.NewEncoder()
	body.PutUint8(0x84) // signed (0x80) | version 4
	body.PutUint8(0x00) // MultiAddress::Id
	account := signer.AccountID()
	body.PutRaw(account[:])
	body.PutUint8(0x01) // MultiSignature::Sr25519

	sigPayload := signaturePayload(callBody, nonce)
	sig, err := signer.Sign(sigPayload)
	if err != nil {
		return nil, fmt.Errorf("wasm: sign extrinsic: %w", err)
	}
	body.PutRaw(sig[:])
	body.PutRaw(immortalEra)
	body.PutCompact(nonce)
	body.PutCompact(0) // tip
	body.PutRaw(callBody)

	full := scale.NewEncoder()
	full.PutBytes(body.Bytes())
	return full.Bytes(), nil
}

// signaturePayload builds the bytes an sr25519 signature covers: the
// call plus its signed extension data (era, nonce, tip), which is what
// real Substrate runtimes sign. Additional signed extensions
// (spec-version, genesis hash, ...) are not included.
func signaturePayload(callBody []byte, nonce uint64) []byte {
	e := scale.NewEncoder()
	e.PutRaw(callBody)
	e.PutRaw(immortalEra)
	e.PutCompact(nonce)
	e.PutCompact(0)
	return e.Bytes()
}

// extrinsicHash is the blake2-256 hash of the fully encoded extrinsic,
// which is the submission hash used to identify it on the Wasm chain.
func extrinsicHash(encoded []byte) chain.Hash {
	return chain.Hash(blake2b256(encoded))
}

// deriveContractAddress computes the pallet-contracts deterministic
// instance address: blake2-256(deployer_account_id || code_hash ||
// salt), matching the on-chain derivation. The deployment engine does
// not call it; it takes instance addresses from the watcher's events.
func deriveContractAddress(deployer [32]byte, code []byte, salt [16]byte) chain.Address {
	codeHash := blake2b256(code)
	buf := make([]byte, 0, 32+32+16)
	buf = append(buf, deployer[:]...)
	buf = append(buf, codeHash[:]...)
	buf = append(buf, salt[:]...)
	return chain.Address(blake2b256(buf))
}
