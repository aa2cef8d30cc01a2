// Copyright 2025 smart-bench-go
package wasm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smart-bench-go/smart-bench/internal/chain"
)

// instanceNote is the payload of one contracts_unstable_instantiations
// notification: the node's own record of an Instantiated or
// ExtrinsicFailed event, emitted as it is included in a finalized
// block. This is a deliberately non-standard subscription: decoding
// Instantiated/ExtrinsicFailed from raw SCALE-encoded event records
// would require the full runtime metadata this driver otherwise has no
// use for, so the deployment engine asks the node to do that decoding
// and hand back just the two outcomes it cares about. See DESIGN.md.
type instanceNote struct {
	Address *[32]byte `json:"address,omitempty"`
	Failed  *string   `json:"dispatchError,omitempty"`
}

// instanceWatcher implements chain.InstanceWatcher over that
// subscription.
type instanceWatcher struct {
	rpc rpcCaller
}

// rpcCaller is the subset of *rpc.Client the wasm package depends on,
// kept as an interface so adapter and watcher tests can fake it.
type rpcCaller interface {
	Call(ctx context.Context, method string, params any, out any) error
	Subscribe(ctx context.Context, method string, params any) (<-chan json.RawMessage, func(), error)
}

func newInstanceWatcher(rpc rpcCaller) *instanceWatcher {
	return &instanceWatcher{rpc: rpc}
}

// Watch streams up to expect DeploymentEvents (one per instantiate
// extrinsic the caller submitted), then closes the returned channel. It
// closes earlier if ctx is canceled or the subscription ends.
func (w *instanceWatcher) Watch(ctx context.Context, expect int) (<-chan chain.DeploymentEvent, error) {
	notes, unsubscribe, err := w.rpc.Subscribe(ctx, "contracts_unstable_subscribeInstantiations", []any{})
	if err != nil {
		return nil, fmt.Errorf("wasm: subscribe to instantiation events: %w", err)
	}

	out := make(chan chain.DeploymentEvent, expect)
	go func() {
		defer close(out)
		defer unsubscribe()
		seen := 0
		for seen < expect {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-notes:
				if !ok {
					return
				}
				var note instanceNote
				if err := json.Unmarshal(raw, &note); err != nil {
					continue
				}
				ev := decodeInstanceNote(note)
				out <- ev
				seen++
			}
		}
	}()
	return out, nil
}

func decodeInstanceNote(note instanceNote) chain.DeploymentEvent {
	if note.Failed != nil {
		return chain.DeploymentEvent{Err: &chain.DispatchError{Reason: *note.Failed}}
	}
	var addr chain.Address
	if note.Address != nil {
		copy(addr[:], note.Address[:])
	}
	return chain.DeploymentEvent{Address: addr}
}
