// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/contract"
	"github.com/smart-bench-go/smart-bench/internal/pool"
	"github.com/smart-bench-go/smart-bench/internal/signer"
)

// fakeCallAdapter implements chain.Adapter, recording every Call's
// inflated gas figure and handing back a distinct hash per call.
type fakeCallAdapter struct {
	mu        sync.Mutex
	nextHash  uint8
	calls     []chain.Gas
	failOnIdx int32 // -1 disables
	failCalls int32
}

func (f *fakeCallAdapter) Deploy(context.Context, []byte, []byte, [16]byte, string, uint64, chain.Gas) (chain.Hash, error) {
	return chain.Hash{}, nil
}
func (f *fakeCallAdapter) Call(ctx context.Context, target chain.Address, data []byte, keyID string, nonce uint64, gas chain.Gas) (chain.Hash, error) {
	if atomic.AddInt32(&f.failCalls, 1) == f.failOnIdx {
		return chain.Hash{}, fmt.Errorf("injected failure")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, gas)
	f.nextHash++
	var h chain.Hash
	h[0] = f.nextHash
	return h, nil
}
func (f *fakeCallAdapter) EstimateDeployGas(context.Context, []byte, []byte, string) (chain.Gas, error) {
	return chain.Gas{}, nil
}
func (f *fakeCallAdapter) EstimateCallGas(context.Context, chain.Address, []byte, string) (chain.Gas, error) {
	return chain.Gas{Units: 100, Weight: chain.Weight{RefTime: 1000, ProofSize: 200}}, nil
}
func (f *fakeCallAdapter) FetchNonce(context.Context, string) (uint64, error) { return 0, nil }
func (f *fakeCallAdapter) SubscribeBlockStats(context.Context) (<-chan chain.BlockStats, error) {
	return nil, nil
}
func (f *fakeCallAdapter) ResolveBlock(context.Context, [32]byte) (uint64, []chain.Hash, error) {
	return 0, nil, nil
}
func (f *fakeCallAdapter) Close() error { return nil }

func planOf(n int) []PlannedCall {
	plan := make([]PlannedCall, n)
	for i := range plan {
		plan[i] = PlannedCall{
			ContractName: "c",
			Instance:     chain.Address{byte(i)},
			Message:      contract.EncodedMessage{Kind: contract.KindCall, Data: []byte{byte(i)}},
		}
	}
	return plan
}

func TestRunBurstAppliesGasCushionAndCollectsHashes(t *testing.T) {
	adapter := &fakeCallAdapter{failOnIdx: -1}
	p := signer.NewSingle("k", adapter.FetchNonce)

	hashes, err := RunBurst(context.Background(), adapter, pool.New(4), SingleSignerFor(p), planOf(3))
	if err != nil {
		t.Fatalf("RunBurst: %v", err)
	}
	if len(hashes) != 3 {
		t.Fatalf("len(hashes) = %d, want 3", len(hashes))
	}

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	for _, gas := range adapter.calls {
		if gas.Units != 105 {
			t.Errorf("gas.Units = %d, want 105 (100 * 1.05)", gas.Units)
		}
		if gas.Weight.RefTime != 1050 {
			t.Errorf("gas.Weight.RefTime = %d, want 1050", gas.Weight.RefTime)
		}
		if gas.Weight.ProofSize != 210 {
			t.Errorf("gas.Weight.ProofSize = %d, want 210", gas.Weight.ProofSize)
		}
	}
}

func TestRunBurstAbortsOnFirstFailure(t *testing.T) {
	adapter := &fakeCallAdapter{failOnIdx: 2}
	p := signer.NewSingle("k", adapter.FetchNonce)

	_, err := RunBurst(context.Background(), adapter, pool.New(1), SingleSignerFor(p), planOf(5))
	if err == nil {
		t.Fatal("expected RunBurst to propagate the injected failure")
	}
}

func TestPerCallSignerForDerivesDistinctKeysPerIndex(t *testing.T) {
	adapter := &fakeCallAdapter{failOnIdx: -1}
	p := signer.NewPerCall(adapter.FetchNonce)
	signerFor := PerCallSignerFor(p, []byte("seed"))

	l0, err := signerFor(context.Background(), 0)
	if err != nil {
		t.Fatalf("signerFor(0): %v", err)
	}
	l1, err := signerFor(context.Background(), 1)
	if err != nil {
		t.Fatalf("signerFor(1): %v", err)
	}
	if l0.KeyID == l1.KeyID {
		t.Fatal("expected distinct derived key material for distinct call indices")
	}
}
