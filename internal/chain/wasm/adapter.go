// Copyright 2025 smart-bench-go
//
// Package wasm implements the contracts-pallet chain adapter, covering
// both the ink-wasm and sol-wasm dialects: they differ only in the
// contract bytecode/metadata the loader hands in, not in how extrinsics
// are built, signed, or submitted.
package wasm

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/scale"
	"github.com/smart-bench-go/smart-bench/internal/signer"
)

// Adapter drives a contracts-pallet chain over the shared JSON-RPC
// client.
type Adapter struct {
	rpc     rpcCaller
	watcher *instanceWatcher
	keys    map[string]*KeyPair
}

// New wraps rpc (already Dial'd) as a chain.Adapter.
func New(rpc rpcCaller) *Adapter {
	return &Adapter{
		rpc:     rpc,
		watcher: newInstanceWatcher(rpc),
		keys:    make(map[string]*KeyPair),
	}
}

// Watcher exposes the deployment-event watcher (C4) for the caller to
// start before submitting a batch of instantiate extrinsics.
func (a *Adapter) Watcher() chain.InstanceWatcher {
	return a.watcher
}

// keyFor resolves keyID (opaque derived key material, or a
// well-known single-signer id) to an sr25519 keypair, caching it.
func (a *Adapter) keyFor(keyID string) (*KeyPair, error) {
	if kp, ok := a.keys[keyID]; ok {
		return kp, nil
	}
	var seed [32]byte
	copy(seed[:], []byte(keyID))
	kp, err := NewKeyPair(seed)
	if err != nil {
		return nil, err
	}
	a.keys[keyID] = kp
	return kp, nil
}

// Deploy builds, signs, and submits an instantiate_with_code
// extrinsic, returning its hash.
func (a *Adapter) Deploy(ctx context.Context, code, ctorData []byte, salt [16]byte, keyID string, nonce uint64, gas chain.Gas) (chain.Hash, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Hash{}, err
	}
	callBody := buildInstantiateCall(code, ctorData, salt, gas)
	encoded, err := signedExtrinsic(kp, nonce, callBody)
	if err != nil {
		return chain.Hash{}, err
	}
	if err := a.submit(ctx, encoded); err != nil {
		return chain.Hash{}, err
	}
	return extrinsicHash(encoded), nil
}

// Call builds, signs, and submits a contracts.call extrinsic.
func (a *Adapter) Call(ctx context.Context, target chain.Address, callData []byte, keyID string, nonce uint64, gas chain.Gas) (chain.Hash, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Hash{}, err
	}
	callBody := buildCallCall(target, callData, gas)
	encoded, err := signedExtrinsic(kp, nonce, callBody)
	if err != nil {
		return chain.Hash{}, err
	}
	if err := a.submit(ctx, encoded); err != nil {
		return chain.Hash{}, err
	}
	return extrinsicHash(encoded), nil
}

func (a *Adapter) submit(ctx context.Context, encoded []byte) error {
	hexTx := "0x" + hex.EncodeToString(encoded)
	var ignored string
	if err := a.rpc.Call(ctx, "author_submitExtrinsic", []any{hexTx}, &ignored); err != nil {
		return fmt.Errorf("wasm: submit extrinsic: %w", err)
	}
	return nil
}

// dryRunResult is the subset of ContractExecResult this driver reads:
// the two Weight fields pallet-contracts places first in the struct.
// Everything after (storage_deposit, debug_message, result, events) is
// skipped rather than fully decoded, since only the gas figures feed
// into the benchmark's submitted extrinsics. See DESIGN.md.
type dryRunResult struct {
	GasConsumed chain.Weight
	GasRequired chain.Weight
}

func decodeDryRunResult(raw []byte) (dryRunResult, error) {
	d := scale.NewDecoder(raw)
	var r dryRunResult
	var err error
	if r.GasConsumed.RefTime, err = d.Uint64(); err != nil {
		return r, fmt.Errorf("wasm: decode dry-run gas_consumed.ref_time: %w", err)
	}
	if r.GasConsumed.ProofSize, err = d.Uint64(); err != nil {
		return r, fmt.Errorf("wasm: decode dry-run gas_consumed.proof_size: %w", err)
	}
	if r.GasRequired.RefTime, err = d.Uint64(); err != nil {
		return r, fmt.Errorf("wasm: decode dry-run gas_required.ref_time: %w", err)
	}
	if r.GasRequired.ProofSize, err = d.Uint64(); err != nil {
		return r, fmt.Errorf("wasm: decode dry-run gas_required.proof_size: %w", err)
	}
	return r, nil
}

// stateCall invokes a runtime API via state_call, hex-decoding its
// SCALE-encoded response.
func (a *Adapter) stateCall(ctx context.Context, method string, params []byte) ([]byte, error) {
	var resultHex string
	hexParams := "0x" + hex.EncodeToString(params)
	if err := a.rpc.Call(ctx, "state_call", []any{method, hexParams}, &resultHex); err != nil {
		return nil, fmt.Errorf("wasm: state_call %s: %w", method, err)
	}
	trimmed := resultHex
	if len(trimmed) >= 2 && trimmed[0:2] == "0x" {
		trimmed = trimmed[2:]
	}
	return hex.DecodeString(trimmed)
}

// EstimateDeployGas dry-runs ContractsApi_instantiate and returns its
// gas_required, the figure pallet-contracts computes as sufficient
// with its own internal safety margin.
func (a *Adapter) EstimateDeployGas(ctx context.Context, code, ctorData []byte, keyID string) (chain.Gas, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Gas{}, err
	}
	origin := kp.AccountID()

	e := scale.NewEncoder()
	e.PutRaw(origin[:])
	e.PutCompact(0) // value
	e.PutOptionNone() // gas_limit: None, let the node estimate
	e.PutOptionNone() // storage_deposit_limit: unlimited
	e.PutBytes(code)
	e.PutBytes(ctorData)
	e.PutBytes(nil) // salt: irrelevant to gas estimation

	raw, err := a.stateCall(ctx, "ContractsApi_instantiate", e.Bytes())
	if err != nil {
		return chain.Gas{}, err
	}
	r, err := decodeDryRunResult(raw)
	if err != nil {
		return chain.Gas{}, err
	}
	return chain.Gas{Weight: r.GasRequired}, nil
}

// EstimateCallGas dry-runs ContractsApi_call.
func (a *Adapter) EstimateCallGas(ctx context.Context, target chain.Address, callData []byte, keyID string) (chain.Gas, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Gas{}, err
	}
	origin := kp.AccountID()

	e := scale.NewEncoder()
	e.PutRaw(origin[:])
	e.PutRaw(target[:])
	e.PutCompact(0) // value
	e.PutOptionNone() // gas_limit: None
	e.PutOptionNone() // storage_deposit_limit: unlimited
	e.PutBytes(callData)

	raw, err := a.stateCall(ctx, "ContractsApi_call", e.Bytes())
	if err != nil {
		return chain.Gas{}, err
	}
	r, err := decodeDryRunResult(raw)
	if err != nil {
		return chain.Gas{}, err
	}
	return chain.Gas{Weight: r.GasRequired}, nil
}

// FetchNonce returns keyID's current on-chain nonce via
// system_accountNextIndex. Callers pass in the same keyID convention
// used by Deploy/Call (derived material or a fixed string), which this
// adapter turns into the matching SS58-less raw account id expressed
// as 0x-hex, since this node's accountNextIndex accepts either form.
func (a *Adapter) FetchNonce(ctx context.Context, keyID string) (uint64, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return 0, err
	}
	account := kp.AccountID()
	var nonce uint64
	addr := "0x" + hex.EncodeToString(account[:])
	if err := a.rpc.Call(ctx, "system_accountNextIndex", []any{addr}, &nonce); err != nil {
		return 0, fmt.Errorf("wasm: fetch nonce for %s: %w", keyID, err)
	}
	return nonce, nil
}

// AsNonceFetcher adapts FetchNonce to signer.NonceFetcher.
func (a *Adapter) AsNonceFetcher() signer.NonceFetcher {
	return a.FetchNonce
}

// blockStatsNote is the payload of one contracts_unstable_blockStats
// notification: the node's own per-block weight/PoV telemetry, derived
// from its own accounting rather than reconstructed by this driver
// from raw storage proofs.
type blockStatsNote struct {
	Number           uint64  `json:"number"`
	Hash             string  `json:"hash"`
	PoVSizeBytes     uint64  `json:"povSizeBytes"`
	PoVSizePercent   float64 `json:"povSizePercent"`
	RefTimeNanos     uint64  `json:"refTimeNanos"`
	RefTimePercent   float64 `json:"refTimePercent"`
	ProofSizeBytes   uint64  `json:"proofSizeBytes"`
	ProofSizePercent float64 `json:"proofSizePercent"`
	WitnessSizeBytes uint64  `json:"witnessSizeBytes"`
	TotalSizeBytes   uint64  `json:"totalSizeBytes"`
	NumExtrinsics    int     `json:"numExtrinsics"`
}

// SubscribeBlockStats opens the block/stats telemetry subscription and
// streams BlockStats until ctx is canceled.
func (a *Adapter) SubscribeBlockStats(ctx context.Context) (<-chan chain.BlockStats, error) {
	notes, unsubscribe, err := a.rpc.Subscribe(ctx, "contracts_unstable_subscribeBlockStats", []any{})
	if err != nil {
		return nil, fmt.Errorf("wasm: subscribe to block stats: %w", err)
	}

	out := make(chan chain.BlockStats, 64)
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-notes:
				if !ok {
					return
				}
				var note blockStatsNote
				if err := json.Unmarshal(raw, &note); err != nil {
					continue
				}
				var h [32]byte
				if decoded, err := hex.DecodeString(trimHex0x(note.Hash)); err == nil && len(decoded) == 32 {
					copy(h[:], decoded)
				}
				select {
				case out <- chain.BlockStats{
					Number:           note.Number,
					Hash:             h,
					PoVSizeBytes:     note.PoVSizeBytes,
					PoVSizePercent:   note.PoVSizePercent,
					RefTimeNanos:     note.RefTimeNanos,
					RefTimePercent:   note.RefTimePercent,
					ProofSizeBytes:   note.ProofSizeBytes,
					ProofSizePercent: note.ProofSizePercent,
					WitnessSizeBytes: note.WitnessSizeBytes,
					TotalSizeBytes:   note.TotalSizeBytes,
					NumExtrinsics:    note.NumExtrinsics,
				}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// getBlockResult is the shape of chain_getBlock's result this driver
// reads: the block's extrinsics, each a 0x-hex SCALE-encoded blob.
type getBlockResult struct {
	Block struct {
		Extrinsics []string `json:"extrinsics"`
	} `json:"block"`
}

// ResolveBlock fetches blockHash's body, hashes each extrinsic to
// recover the set of submission hashes it contains, and extracts the
// block timestamp from the mandatory timestamp.set inherent, which
// every contracts-pallet-bearing runtime includes as its first
// extrinsic.
func (a *Adapter) ResolveBlock(ctx context.Context, blockHash [32]byte) (timestampMs uint64, hashes []chain.Hash, err error) {
	var result getBlockResult
	hexHash := "0x" + hex.EncodeToString(blockHash[:])
	if callErr := a.rpc.Call(ctx, "chain_getBlock", []any{hexHash}, &result); callErr != nil {
		return 0, nil, fmt.Errorf("wasm: chain_getBlock %x: %w", blockHash, callErr)
	}

	hashes = make([]chain.Hash, 0, len(result.Block.Extrinsics))
	for i, hexExt := range result.Block.Extrinsics {
		raw, decErr := hex.DecodeString(trimHex0x(hexExt))
		if decErr != nil {
			continue
		}
		hashes = append(hashes, extrinsicHash(raw))
		if i == 0 {
			if ts, ok := decodeTimestampInherent(raw); ok {
				timestampMs = ts
			}
		}
	}
	return timestampMs, hashes, nil
}

// Close releases the underlying RPC connection.
func (a *Adapter) Close() error {
	if closer, ok := a.rpc.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func trimHex0x(s string) string {
	if len(s) >= 2 && s[0:2] == "0x" {
		return s[2:]
	}
	return s
}

// timestampPalletIndex/callSet are the pallet/call indices for
// timestamp.set, the unsigned inherent every block begins with.
const (
	timestampPalletIndex = 3
	timestampCallSet     = 0
)

// decodeTimestampInherent decodes a raw extrinsic as an unsigned
// timestamp.set(now: compact<u64>) call and returns its argument in
// milliseconds. ok is false if ext is not a timestamp.set call (e.g.
// it is the decoded signed extrinsic submitted by this driver, not the
// inherent; callers only pass extrinsic index 0, which is always the
// inherent on a contracts-pallet-bearing runtime).
func decodeTimestampInherent(ext []byte) (ms uint64, ok bool) {
	d := scale.NewDecoder(ext)
	// Outer compact length prefix, as produced by the encoder's own
	// full-extrinsic wrapping.
	if _, err := d.Compact(); err != nil {
		return 0, false
	}
	version, err := d.Uint8()
	if err != nil || version&0x80 != 0 {
		return 0, false // signed extrinsic, not an inherent
	}
	palletIdx, err := d.Uint8()
	if err != nil || palletIdx != timestampPalletIndex {
		return 0, false
	}
	callIdx, err := d.Uint8()
	if err != nil || callIdx != timestampCallSet {
		return 0, false
	}
	now, err := d.Compact()
	if err != nil {
		return 0, false
	}
	return now, true
}
