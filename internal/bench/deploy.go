// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"errors"
	"fmt"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/contract"
	"github.com/smart-bench-go/smart-bench/internal/signer"
	"github.com/smart-bench-go/smart-bench/internal/wasmcode"
)

// ErrInsufficientInstantiations is returned when the deployment event
// stream drains before every requested instance was observed.
var ErrInsufficientInstantiations = errors.New("bench: block stream ended before every instance was instantiated")

// Watcher is the subset of chain.InstanceWatcher the deployment engine
// needs; satisfied by the value an adapter's Watcher() method returns.
type Watcher interface {
	Watch(ctx context.Context, expect int) (<-chan chain.DeploymentEvent, error)
}

// DeployInstances instantiates count copies of desc's code. For the
// Wasm platforms each copy is uniquified with salt+i before submission
// so the chain does not collapse them into a single code hash;
// isWasm is false for the EVM adapter, where the raw init code is
// submitted unmodified (CREATE already derives a fresh address per
// nonce).
func DeployInstances(ctx context.Context, adapter chain.Adapter, watcher Watcher, desc *contract.Descriptor, count uint32, salt [16]byte, isWasm bool) ([]Instance, error) {
	ctorMsg, err := desc.Constructor()
	if err != nil {
		return nil, fmt.Errorf("bench: build constructor for %q: %w", desc.Name, err)
	}

	deployKeyID := deployerKeyID(desc.Name)
	pool := signer.NewSingle(deployKeyID, adapter.FetchNonce)
	gas, err := adapter.EstimateDeployGas(ctx, desc.Code, ctorMsg.Data, deployKeyID)
	if err != nil {
		return nil, fmt.Errorf("bench: estimate deploy gas for %q: %w", desc.Name, err)
	}

	events, err := watcher.Watch(ctx, int(count))
	if err != nil {
		return nil, fmt.Errorf("bench: watch deployment events for %q: %w", desc.Name, err)
	}

	for i := uint32(0); i < count; i++ {
		instanceSalt := wasmcode.SaltFromUint64(saltBase(salt), i)
		code := desc.Code
		if isWasm {
			code, err = wasmcode.Uniquify(desc.Code, instanceSalt)
			if err != nil {
				return nil, fmt.Errorf("bench: uniquify instance %d of %q: %w", i, desc.Name, err)
			}
		}

		lease, err := pool.Lease(ctx)
		if err != nil {
			return nil, fmt.Errorf("bench: lease signer for instance %d of %q: %w", i, desc.Name, err)
		}
		if _, err := adapter.Deploy(ctx, code, ctorMsg.Data, instanceSalt, lease.KeyID, lease.Nonce, gas); err != nil {
			return nil, fmt.Errorf("bench: submit deploy for instance %d of %q: %w", i, desc.Name, err)
		}
	}

	instances := make([]Instance, 0, count)
	for ev := range events {
		if ev.Err != nil {
			return nil, fmt.Errorf("bench: deployment of %q failed: %w", desc.Name, ev.Err)
		}
		instances = append(instances, Instance{ContractName: desc.Name, Address: ev.Address})
		if len(instances) == int(count) {
			return instances, nil
		}
	}
	return nil, fmt.Errorf("%w: got %d of %d for %q", ErrInsufficientInstantiations, len(instances), count, desc.Name)
}

// deployerKeyID is the fixed per-contract signer identity used both as
// the dry-run origin and as the key that signs every deploy of that
// contract.
func deployerKeyID(contractName string) string {
	return "deploy:" + contractName
}

// saltBase folds the 16-byte run salt into the 64-bit base that
// SaltFromUint64 takes, so bytes 8..15 (the contract index) still
// distinguish the result.
func saltBase(salt [16]byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(salt[i]^salt[i+8]) << (8 * i)
	}
	return v
}
