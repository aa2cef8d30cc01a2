// Copyright 2025 smart-bench-go
package bench

import (
	"context"

	"github.com/smart-bench-go/smart-bench/internal/chain"
)

// StreamBlockInfo merges the adapter's BlockStats subscription with a
// per-block resolve into the combined BlockInfo stream the
// reconciliation driver consumes. The channel closes when ctx is
// canceled or the stats subscription ends.
func StreamBlockInfo(ctx context.Context, adapter chain.Adapter) (<-chan chain.BlockInfo, error) {
	stats, err := adapter.SubscribeBlockStats(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan chain.BlockInfo, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-stats:
				if !ok {
					return
				}
				timestampMs, hashList, err := adapter.ResolveBlock(ctx, s.Hash)
				if err != nil {
					continue // a transient resolve failure skips one block; the reconciliation keeps waiting
				}
				hashSet := make(map[chain.Hash]struct{}, len(hashList))
				for _, h := range hashList {
					hashSet[h] = struct{}{}
				}
				info := chain.BlockInfo{Stats: s, Hashes: hashSet, TimestampMs: timestampMs}
				select {
				case out <- info:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
