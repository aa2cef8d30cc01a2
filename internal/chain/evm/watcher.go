// Copyright 2025 smart-bench-go
package evm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smart-bench-go/smart-bench/internal/chain"
)

// receiptPollInterval is the interval between polls while waiting on a
// transaction receipt.
const receiptPollInterval = 500 * time.Millisecond

// Watcher returns an InstanceWatcher that resolves the contract
// address of each deployment submitted through this Adapter by
// polling for its receipt, the same bind.WaitMined-style pattern used
// to await a single transaction.
func (a *Adapter) Watcher() chain.InstanceWatcher {
	return &deployWatcher{adapter: a}
}

type deployWatcher struct {
	adapter *Adapter
}

// Watch drains the adapter's record of submitted deploy transaction
// hashes, waits for each receipt, and reports the deployed address or
// a dispatch failure if the transaction reverted.
func (w *deployWatcher) Watch(ctx context.Context, expect int) (<-chan chain.DeploymentEvent, error) {
	out := make(chan chain.DeploymentEvent, expect)
	go func() {
		defer close(out)
		resolved := 0
		ticker := time.NewTicker(receiptPollInterval)
		defer ticker.Stop()
		for resolved < expect {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hash, ok := w.adapter.nextPendingDeploy()
				if !ok {
					continue
				}
				ev := w.waitReceipt(ctx, hash)
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				resolved++
			}
		}
	}()
	return out, nil
}

func (w *deployWatcher) waitReceipt(ctx context.Context, hash [32]byte) chain.DeploymentEvent {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := w.adapter.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return chain.DeploymentEvent{Err: &chain.DispatchError{Reason: w.revertReason(ctx, hash, receipt)}}
			}
			var addr chain.Address
			copy(addr[:20], receipt.ContractAddress[:])
			return chain.DeploymentEvent{Address: addr}
		}
		select {
		case <-ctx.Done():
			return chain.DeploymentEvent{Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// revertReason recovers the real exit reason for a reverted deployment,
// the Go-RPC equivalent of decoding an ethereum.Executed event's
// exit_reason field: eth_getTransactionReceipt carries no revert data
// on its own, so the transaction is replayed as an eth_call against the
// block it landed in and the resulting revert payload is unpacked with
// abi.UnpackRevert. Falls back to a generic reason if the replay itself
// fails or the node returns no decodable revert data.
func (w *deployWatcher) revertReason(ctx context.Context, hash common.Hash, receipt *types.Receipt) string {
	const fallback = "transaction reverted"

	tx, isPending, err := w.adapter.client.TransactionByHash(ctx, hash)
	if err != nil || isPending {
		return fallback
	}
	from, err := types.Sender(types.NewEIP155Signer(w.adapter.chainID), tx)
	if err != nil {
		return fallback
	}
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	_, callErr := w.adapter.client.CallContract(ctx, msg, receipt.BlockNumber)
	if callErr == nil {
		return fallback
	}
	if reason, ok := decodeRevertReason(callErr); ok {
		return reason
	}
	return callErr.Error()
}

// decodeRevertReason extracts a Solidity revert string from the
// hex-encoded error data a JSON-RPC node attaches to a failed eth_call,
// when the node implements the de-facto rpc.DataError convention.
func decodeRevertReason(err error) (string, bool) {
	type dataError interface {
		ErrorData() interface{}
	}
	de, ok := err.(dataError)
	if !ok {
		return "", false
	}
	hexData, ok := de.ErrorData().(string)
	if !ok {
		return "", false
	}
	data, derr := hexutil.Decode(hexData)
	if derr != nil || len(data) == 0 {
		return "", false
	}
	reason, derr := abi.UnpackRevert(data)
	if derr != nil {
		return "", false
	}
	return reason, true
}

// nextPendingDeploy pops the oldest recorded deploy hash, if any.
func (a *Adapter) nextPendingDeploy() ([32]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pendingDeploy) == 0 {
		return [32]byte{}, false
	}
	h := a.pendingDeploy[0]
	a.pendingDeploy = a.pendingDeploy[1:]
	return h, true
}
