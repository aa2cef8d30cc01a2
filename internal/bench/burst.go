// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"fmt"
	"sync"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/pool"
	"github.com/smart-bench-go/smart-bench/internal/signer"
)

// callGasInflationNumer/Denom apply a +5% cushion to per-call gas
// estimates: deployment gas carries no such cushion, an asymmetry
// preserved deliberately rather than unified (see DESIGN.md).
const (
	callGasInflationNumer = 105
	callGasInflationDenom = 100
)

// SignerFor resolves the signer key a planned call at plan index idx
// should use: either the pool's fixed single signer, or (for per-call
// pools) a freshly derived key for that call index.
type SignerFor func(ctx context.Context, idx int) (signer.Lease, error)

// SingleSignerFor builds a SignerFor that always leases from pool
// (expected to have been constructed with signer.NewSingle).
func SingleSignerFor(pool *signer.Pool) SignerFor {
	return func(ctx context.Context, idx int) (signer.Lease, error) {
		return pool.Lease(ctx)
	}
}

// PerCallSignerFor builds a SignerFor that derives a fresh key per
// call index via signer.DeriveKeyMaterial over seed, leasing from pool
// (expected to have been constructed with signer.NewPerCall).
func PerCallSignerFor(pool *signer.Pool, seed []byte) SignerFor {
	return func(ctx context.Context, idx int) (signer.Lease, error) {
		material, err := signer.DeriveKeyMaterial(seed, uint64(idx))
		if err != nil {
			return signer.Lease{}, fmt.Errorf("bench: derive per-call signer %d: %w", idx, err)
		}
		return pool.LeaseFor(ctx, string(material[:]))
	}
}

// RunBurst submits every call in plan through a bounded-concurrency
// pool, collecting the resulting submission hashes. Any single
// submission failure aborts the whole burst with the offending index
// and underlying cause; the burst does not wait for inclusion, only
// for the node's submission-accept acknowledgment.
func RunBurst(ctx context.Context, adapter chain.Adapter, execPool *pool.Pool, signerFor SignerFor, plan []PlannedCall) (map[chain.Hash]struct{}, error) {
	hashes := make(map[chain.Hash]struct{}, len(plan))
	var mu sync.Mutex

	tasks := make([]func(context.Context) error, len(plan))
	for i, call := range plan {
		i, call := i, call
		tasks[i] = func(ctx context.Context) error {
			lease, err := signerFor(ctx, i)
			if err != nil {
				return fmt.Errorf("bench: call %d: %w", i, err)
			}
			gas, err := adapter.EstimateCallGas(ctx, call.Instance, call.Message.Data, lease.KeyID)
			if err != nil {
				return fmt.Errorf("bench: call %d: estimate gas: %w", i, err)
			}
			gas.Units = gas.Units * callGasInflationNumer / callGasInflationDenom
			gas.Weight.RefTime = gas.Weight.RefTime * callGasInflationNumer / callGasInflationDenom
			gas.Weight.ProofSize = gas.Weight.ProofSize * callGasInflationNumer / callGasInflationDenom

			hash, err := adapter.Call(ctx, call.Instance, call.Message.Data, lease.KeyID, lease.Nonce, gas)
			if err != nil {
				return fmt.Errorf("bench: call %d: submit: %w", i, err)
			}

			mu.Lock()
			hashes[hash] = struct{}{}
			mu.Unlock()
			return nil
		}
	}

	if err := execPool.Run(ctx, tasks); err != nil {
		return nil, err
	}
	return hashes, nil
}
