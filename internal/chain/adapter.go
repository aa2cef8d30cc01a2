// Copyright 2025 smart-bench-go
//
// Package chain defines the back-end-agnostic adapter surface that the
// deployment and call-burst engines drive. The two concrete
// implementations live in chain/wasm and chain/evm.
package chain

import "context"

// Hash is a 32-byte opaque submission id: an extrinsic hash on the
// Wasm chain, an Ethereum transaction hash on EVM.
type Hash [32]byte

// Address is an opaque fixed-width account identifier: 32 bytes on the
// Wasm chain, 20 bytes (right-padded) on EVM.
type Address [32]byte

// EVMAddress narrows an Address to the 20 bytes an EVM adapter cares
// about.
func (a Address) EVMAddress() [20]byte {
	var out [20]byte
	copy(out[:], a[:20])
	return out
}

// Weight is the Wasm chain's two-dimensional execution cost.
type Weight struct {
	RefTime   uint64
	ProofSize uint64
}

// Gas is a back-end-agnostic gas/weight figure: EVM adapters use only
// Units; the Wasm adapter carries the full two-dimensional weight in
// addition, since its dry-run RPC returns both.
type Gas struct {
	Units  uint64
	Weight Weight
}

// BlockStats is one block's telemetry row.
type BlockStats struct {
	Number           uint64
	Hash             [32]byte
	PoVSizeBytes     uint64
	PoVSizePercent   float64
	RefTimeNanos     uint64
	RefTimePercent   float64
	ProofSizeBytes   uint64
	ProofSizePercent float64
	WitnessSizeBytes uint64
	TotalSizeBytes   uint64
	NumExtrinsics    int
}

// BlockInfo is a BlockStats item enriched with the set of relevant
// submission hashes it contains and its on-chain timestamp.
type BlockInfo struct {
	Stats       BlockStats
	Hashes      map[Hash]struct{}
	TimestampMs uint64
}

// DispatchError is a decoded fatal on-chain failure: an
// ExtrinsicFailed event on the Wasm chain, or a non-Succeed exit
// reason surfaced via an Executed event on EVM.
type DispatchError struct {
	Reason string
}

func (e *DispatchError) Error() string {
	return "chain: dispatch failed: " + e.Reason
}

// Adapter is the uniform surface both back-ends implement, letting the
// deployment and call-burst engines stay platform-agnostic.
type Adapter interface {
	// Deploy submits an instantiate transaction for code with ctorData
	// as constructor arguments, under the given signer/nonce, and
	// returns its submission hash.
	Deploy(ctx context.Context, code, ctorData []byte, salt [16]byte, keyID string, nonce uint64, gas Gas) (Hash, error)

	// Call submits a message call against target with callData, under
	// the given signer/nonce, and returns its submission hash. Value is
	// always zero.
	Call(ctx context.Context, target Address, callData []byte, keyID string, nonce uint64, gas Gas) (Hash, error)

	// EstimateDeployGas dry-runs an instantiate call to obtain the gas
	// required. The deployment engine submits this figure unchanged:
	// unlike call gas, deploy gas carries no cushion.
	EstimateDeployGas(ctx context.Context, code, ctorData []byte, keyID string) (Gas, error)

	// EstimateCallGas dry-runs a message call to obtain the gas
	// required.
	EstimateCallGas(ctx context.Context, target Address, callData []byte, keyID string) (Gas, error)

	// FetchNonce returns keyID's current on-chain nonce. Exposed both
	// directly and via signer.NonceFetcher.
	FetchNonce(ctx context.Context, keyID string) (uint64, error)

	// SubscribeBlockStats opens the block/stats telemetry subscription
	// (C6) and streams BlockStats until ctx is canceled or the
	// returned channel is drained to closure.
	SubscribeBlockStats(ctx context.Context) (<-chan BlockStats, error)

	// ResolveBlock returns the block's on-chain timestamp and the set
	// of submission hashes it contains.
	ResolveBlock(ctx context.Context, blockHash [32]byte) (timestampMs uint64, hashes []Hash, err error)

	// Close releases the underlying RPC connection.
	Close() error
}

// DeploymentEvent is one event observed while watching for deployed
// instances (C4): either a successfully instantiated address or a
// fatal dispatch failure.
type DeploymentEvent struct {
	Address Address
	Err     error // non-nil carries a *DispatchError
}

// InstanceWatcher streams DeploymentEvents while C4 is instantiating:
// the Wasm adapter reads a node-side instantiation subscription, the
// EVM adapter polls receipts of the deploy transactions it submitted.
type InstanceWatcher interface {
	Watch(ctx context.Context, expect int) (<-chan DeploymentEvent, error)
}
