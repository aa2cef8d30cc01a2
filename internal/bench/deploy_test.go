// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"testing"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/contract"
)

// fakeDeployAdapter implements chain.Adapter, recording submitted
// deploy payloads and handing back a fixed gas estimate.
type fakeDeployAdapter struct {
	deployed [][]byte // code observed per Deploy call
}

func (f *fakeDeployAdapter) Deploy(ctx context.Context, code, ctorData []byte, salt [16]byte, keyID string, nonce uint64, gas chain.Gas) (chain.Hash, error) {
	f.deployed = append(f.deployed, code)
	return chain.Hash{}, nil
}
func (f *fakeDeployAdapter) Call(context.Context, chain.Address, []byte, string, uint64, chain.Gas) (chain.Hash, error) {
	return chain.Hash{}, nil
}
func (f *fakeDeployAdapter) EstimateDeployGas(context.Context, []byte, []byte, string) (chain.Gas, error) {
	return chain.Gas{Units: 1}, nil
}
func (f *fakeDeployAdapter) EstimateCallGas(context.Context, chain.Address, []byte, string) (chain.Gas, error) {
	return chain.Gas{}, nil
}
func (f *fakeDeployAdapter) FetchNonce(context.Context, string) (uint64, error) { return 0, nil }
func (f *fakeDeployAdapter) SubscribeBlockStats(context.Context) (<-chan chain.BlockStats, error) {
	return nil, nil
}
func (f *fakeDeployAdapter) ResolveBlock(context.Context, [32]byte) (uint64, []chain.Hash, error) {
	return 0, nil, nil
}
func (f *fakeDeployAdapter) Close() error { return nil }

// fakeWatcher hands back a fixed, pre-populated channel of events.
type fakeWatcher struct {
	events chan chain.DeploymentEvent
}

func (w *fakeWatcher) Watch(ctx context.Context, expect int) (<-chan chain.DeploymentEvent, error) {
	return w.events, nil
}

func descriptorFor(name string) *contract.Descriptor {
	return &contract.Descriptor{
		Name: name,
		Code: []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		Constructor: func() (contract.EncodedMessage, error) {
			return contract.EncodedMessage{Kind: contract.KindConstructor, Data: []byte{0xca, 0xfe}}, nil
		},
		Messages: []contract.MessageBuilder{
			func() (contract.EncodedMessage, error) {
				return contract.EncodedMessage{Kind: contract.KindCall, Data: []byte{0x01}}, nil
			},
		},
	}
}

func TestDeployInstancesUniquifiesEachWasmCopy(t *testing.T) {
	adapter := &fakeDeployAdapter{}
	events := make(chan chain.DeploymentEvent, 3)
	events <- chain.DeploymentEvent{Address: chain.Address{1}}
	events <- chain.DeploymentEvent{Address: chain.Address{2}}
	events <- chain.DeploymentEvent{Address: chain.Address{3}}
	close(events)

	instances, err := DeployInstances(context.Background(), adapter, &fakeWatcher{events: events}, descriptorFor("flipper"), 3, [16]byte{9}, true)
	if err != nil {
		t.Fatalf("DeployInstances: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("len(instances) = %d, want 3", len(instances))
	}
	if len(adapter.deployed) != 3 {
		t.Fatalf("len(adapter.deployed) = %d, want 3", len(adapter.deployed))
	}
	seen := map[string]bool{}
	for _, code := range adapter.deployed {
		key := string(code)
		if seen[key] {
			t.Fatal("two instances were deployed with identical uniquified code")
		}
		seen[key] = true
	}
}

func TestDeployInstancesPropagatesDispatchFailure(t *testing.T) {
	adapter := &fakeDeployAdapter{}
	events := make(chan chain.DeploymentEvent, 1)
	events <- chain.DeploymentEvent{Err: &chain.DispatchError{Reason: "OutOfGas"}}
	close(events)

	_, err := DeployInstances(context.Background(), adapter, &fakeWatcher{events: events}, descriptorFor("flipper"), 1, [16]byte{}, true)
	if err == nil {
		t.Fatal("expected DeployInstances to surface the dispatch failure")
	}
}

func TestDeployInstancesErrorsWhenEventStreamEndsEarly(t *testing.T) {
	adapter := &fakeDeployAdapter{}
	events := make(chan chain.DeploymentEvent, 1)
	events <- chain.DeploymentEvent{Address: chain.Address{1}}
	close(events)

	_, err := DeployInstances(context.Background(), adapter, &fakeWatcher{events: events}, descriptorFor("flipper"), 2, [16]byte{}, true)
	if err == nil {
		t.Fatal("expected an error when the event stream ends before every instance was observed")
	}
}

func TestDeployInstancesDoesNotUniquifyForEVM(t *testing.T) {
	adapter := &fakeDeployAdapter{}
	events := make(chan chain.DeploymentEvent, 1)
	events <- chain.DeploymentEvent{Address: chain.Address{1}}
	close(events)

	desc := descriptorFor("erc20")
	_, err := DeployInstances(context.Background(), adapter, &fakeWatcher{events: events}, desc, 1, [16]byte{}, false)
	if err != nil {
		t.Fatalf("DeployInstances: %v", err)
	}
	if len(adapter.deployed) != 1 {
		t.Fatalf("len(adapter.deployed) = %d, want 1", len(adapter.deployed))
	}
	if string(adapter.deployed[0]) != string(desc.Code) {
		t.Fatal("EVM deployment must submit the raw init code unmodified")
	}
}
