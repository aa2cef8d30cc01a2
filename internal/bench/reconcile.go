// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"sync"

	"github.com/smart-bench-go/smart-bench/internal/chain"
)

// Reconcile is a take-while-non-empty filter over blocks: it removes
// each incoming BlockInfo's hashes from the shared remaining set,
// forwards every block downstream regardless of whether it contained
// any target hash, and closes the output the instant the remaining
// set becomes empty. It tolerates blocks containing none of the
// driver's hashes (just forwarded) and blocks containing hashes the
// driver never submitted (ignored — someone else's traffic on a
// shared chain).
func Reconcile(ctx context.Context, blocks <-chan chain.BlockInfo, submitted map[chain.Hash]struct{}) <-chan chain.BlockInfo {
	remaining := make(map[chain.Hash]struct{}, len(submitted))
	for h := range submitted {
		remaining[h] = struct{}{}
	}
	var mu sync.Mutex

	out := make(chan chain.BlockInfo, 16)
	go func() {
		defer close(out)
		if len(remaining) == 0 {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case info, ok := <-blocks:
				if !ok {
					return
				}
				mu.Lock()
				for h := range info.Hashes {
					delete(remaining, h)
				}
				done := len(remaining) == 0
				mu.Unlock()

				select {
				case out <- info:
				case <-ctx.Done():
					return
				}
				if done {
					return
				}
			}
		}
	}()
	return out
}
