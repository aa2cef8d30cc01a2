// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smart-bench-go/smart-bench/internal/chain"
)

// fakeBlockAdapter implements chain.Adapter, exercising only the two
// methods StreamBlockInfo drives.
type fakeBlockAdapter struct {
	stats       chan chain.BlockStats
	resolveErr  map[[32]byte]error
	resolveHash map[[32]byte][]chain.Hash
	resolveTS   map[[32]byte]uint64
}

func (f *fakeBlockAdapter) Deploy(context.Context, []byte, []byte, [16]byte, string, uint64, chain.Gas) (chain.Hash, error) {
	return chain.Hash{}, nil
}
func (f *fakeBlockAdapter) Call(context.Context, chain.Address, []byte, string, uint64, chain.Gas) (chain.Hash, error) {
	return chain.Hash{}, nil
}
func (f *fakeBlockAdapter) EstimateDeployGas(context.Context, []byte, []byte, string) (chain.Gas, error) {
	return chain.Gas{}, nil
}
func (f *fakeBlockAdapter) EstimateCallGas(context.Context, chain.Address, []byte, string) (chain.Gas, error) {
	return chain.Gas{}, nil
}
func (f *fakeBlockAdapter) FetchNonce(context.Context, string) (uint64, error) { return 0, nil }
func (f *fakeBlockAdapter) SubscribeBlockStats(ctx context.Context) (<-chan chain.BlockStats, error) {
	return f.stats, nil
}
func (f *fakeBlockAdapter) ResolveBlock(ctx context.Context, h [32]byte) (uint64, []chain.Hash, error) {
	if err, ok := f.resolveErr[h]; ok {
		return 0, nil, err
	}
	return f.resolveTS[h], f.resolveHash[h], nil
}
func (f *fakeBlockAdapter) Close() error { return nil }

func TestStreamBlockInfoMergesStatsAndResolve(t *testing.T) {
	h1 := [32]byte{1}
	h2 := [32]byte{2}
	adapter := &fakeBlockAdapter{
		stats: make(chan chain.BlockStats, 4),
		resolveHash: map[[32]byte][]chain.Hash{
			h1: {{0xaa}},
			h2: {{0xbb}, {0xcc}},
		},
		resolveTS: map[[32]byte]uint64{h1: 1000, h2: 2000},
	}
	adapter.stats <- chain.BlockStats{Number: 1, Hash: h1}
	adapter.stats <- chain.BlockStats{Number: 2, Hash: h2}
	close(adapter.stats)

	out, err := StreamBlockInfo(context.Background(), adapter)
	if err != nil {
		t.Fatalf("StreamBlockInfo: %v", err)
	}

	first := recvOrTimeout(t, out)
	if first.Stats.Number != 1 || first.TimestampMs != 1000 || len(first.Hashes) != 1 {
		t.Errorf("first block = %+v", first)
	}
	second := recvOrTimeout(t, out)
	if second.Stats.Number != 2 || second.TimestampMs != 2000 || len(second.Hashes) != 2 {
		t.Errorf("second block = %+v", second)
	}

	if _, ok := <-out; ok {
		t.Fatal("expected channel to close once the stats subscription ends")
	}
}

func TestStreamBlockInfoSkipsBlocksThatFailToResolve(t *testing.T) {
	h1 := [32]byte{1}
	h2 := [32]byte{2}
	adapter := &fakeBlockAdapter{
		stats:       make(chan chain.BlockStats, 4),
		resolveErr:  map[[32]byte]error{h1: fmt.Errorf("transient rpc error")},
		resolveHash: map[[32]byte][]chain.Hash{h2: {{0xdd}}},
		resolveTS:   map[[32]byte]uint64{h2: 5000},
	}
	adapter.stats <- chain.BlockStats{Number: 1, Hash: h1}
	adapter.stats <- chain.BlockStats{Number: 2, Hash: h2}
	close(adapter.stats)

	out, err := StreamBlockInfo(context.Background(), adapter)
	if err != nil {
		t.Fatalf("StreamBlockInfo: %v", err)
	}

	only := recvOrTimeout(t, out)
	if only.Stats.Number != 2 {
		t.Fatalf("expected block 1 to be skipped, got block %d first", only.Stats.Number)
	}
	if _, ok := <-out; ok {
		t.Fatal("expected channel to close after the one resolvable block")
	}
}

func recvOrTimeout(t *testing.T, ch <-chan chain.BlockInfo) chain.BlockInfo {
	t.Helper()
	select {
	case info := <-ch:
		return info
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for BlockInfo")
		return chain.BlockInfo{}
	}
}
