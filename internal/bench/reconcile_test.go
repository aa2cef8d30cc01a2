// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"testing"
	"time"

	"github.com/smart-bench-go/smart-bench/internal/chain"
)

func TestReconcileClosesWhenAllSubmittedHashesSeen(t *testing.T) {
	h1, h2 := chain.Hash{1}, chain.Hash{2}
	submitted := map[chain.Hash]struct{}{h1: {}, h2: {}}

	blocks := make(chan chain.BlockInfo, 4)
	blocks <- chain.BlockInfo{Stats: chain.BlockStats{Number: 1}, Hashes: map[chain.Hash]struct{}{h1: {}}}
	blocks <- chain.BlockInfo{Stats: chain.BlockStats{Number: 2}, Hashes: map[chain.Hash]struct{}{{9}: {}}}
	blocks <- chain.BlockInfo{Stats: chain.BlockStats{Number: 3}, Hashes: map[chain.Hash]struct{}{h2: {}}}
	blocks <- chain.BlockInfo{Stats: chain.BlockStats{Number: 4}, Hashes: map[chain.Hash]struct{}{{1}: {}}}

	out := Reconcile(context.Background(), blocks, submitted)

	var numbers []uint64
	for info := range out {
		numbers = append(numbers, info.Stats.Number)
	}
	if want := []uint64{1, 2, 3}; !equalUint64(numbers, want) {
		t.Fatalf("observed blocks = %v, want %v (block 4 should not have been forwarded)", numbers, want)
	}
}

func TestReconcileWithNoSubmissionsClosesImmediately(t *testing.T) {
	blocks := make(chan chain.BlockInfo)
	out := Reconcile(context.Background(), blocks, map[chain.Hash]struct{}{})

	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected immediately closed channel for zero submitted hashes")
		}
	case <-time.After(time.Second):
		t.Fatal("Reconcile did not close immediately for an empty submitted set")
	}
}

func TestReconcileStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocks := make(chan chain.BlockInfo)
	out := Reconcile(ctx, blocks, map[chain.Hash]struct{}{{1}: {}})

	cancel()
	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected channel to close after context cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("Reconcile did not observe context cancellation")
	}
}

func equalUint64(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
