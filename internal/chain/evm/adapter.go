// Copyright 2025 smart-bench-go
//
// Package evm implements the EVM chain adapter over go-ethereum's
// ethclient for RPC access, deployment, and gas estimation.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/signer"
)

// gasPriceInflationNumer/Denom apply a +12.5% cushion on top of
// eth_gasPrice's suggestion, the same margin go-ethereum's own
// transaction-pool repricing logic uses for a replacement transaction
// to be accepted, which keeps a benchmark run's transactions competing
// well for inclusion under load.
const (
	gasPriceInflationNumer = 9
	gasPriceInflationDenom = 8
)

// Adapter drives an EVM-compatible chain.
type Adapter struct {
	client  *ethclient.Client
	chainID *big.Int
	keys    map[string]*KeyPair

	mu            sync.Mutex
	pendingDeploy []common.Hash
}

// Dial connects to an EVM JSON-RPC endpoint and reads its chain id.
func Dial(ctx context.Context, url string) (*Adapter, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", url, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("evm: fetch chain id: %w", err)
	}
	return &Adapter{
		client:  client,
		chainID: chainID,
		keys:    make(map[string]*KeyPair),
	}, nil
}

func (a *Adapter) keyFor(keyID string) (*KeyPair, error) {
	if kp, ok := a.keys[keyID]; ok {
		return kp, nil
	}
	var seed [32]byte
	copy(seed[:], []byte(keyID))
	kp, err := NewKeyPair(seed)
	if err != nil {
		return nil, err
	}
	a.keys[keyID] = kp
	return kp, nil
}

// gasPrice returns eth_gasPrice inflated by the standard cushion.
func (a *Adapter) gasPrice(ctx context.Context) (*big.Int, error) {
	suggested, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm: suggest gas price: %w", err)
	}
	return new(big.Int).Div(new(big.Int).Mul(suggested, big.NewInt(gasPriceInflationNumer)), big.NewInt(gasPriceInflationDenom)), nil
}

// Deploy builds, signs, and submits a contract-creation transaction
// (code is the init code, ctorData is appended constructor arguments
// already ABI-encoded by the catalog layer).
func (a *Adapter) Deploy(ctx context.Context, code, ctorData []byte, salt [16]byte, keyID string, nonce uint64, gas chain.Gas) (chain.Hash, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Hash{}, err
	}
	price, err := a.gasPrice(ctx)
	if err != nil {
		return chain.Hash{}, err
	}
	data := append(append([]byte{}, code...), ctorData...)
	tx := types.NewContractCreation(nonce, big.NewInt(0), gas.Units, price, data)

	signed, err := types.SignTx(tx, types.NewEIP155Signer(a.chainID), kp.private)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("evm: sign deploy tx: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return chain.Hash{}, fmt.Errorf("evm: send deploy tx: %w", err)
	}

	a.mu.Lock()
	a.pendingDeploy = append(a.pendingDeploy, signed.Hash())
	a.mu.Unlock()

	return chain.Hash(signed.Hash()), nil
}

// Call builds, signs, and submits a message-call transaction. Value is
// always zero.
func (a *Adapter) Call(ctx context.Context, target chain.Address, callData []byte, keyID string, nonce uint64, gas chain.Gas) (chain.Hash, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Hash{}, err
	}
	price, err := a.gasPrice(ctx)
	if err != nil {
		return chain.Hash{}, err
	}
	to := common.Address(target.EVMAddress())
	tx := types.NewTransaction(nonce, to, big.NewInt(0), gas.Units, price, callData)

	signed, err := types.SignTx(tx, types.NewEIP155Signer(a.chainID), kp.private)
	if err != nil {
		return chain.Hash{}, fmt.Errorf("evm: sign call tx: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return chain.Hash{}, fmt.Errorf("evm: send call tx: %w", err)
	}
	return chain.Hash(signed.Hash()), nil
}

// EstimateDeployGas calls eth_estimateGas for a contract-creation
// message.
func (a *Adapter) EstimateDeployGas(ctx context.Context, code, ctorData []byte, keyID string) (chain.Gas, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Gas{}, err
	}
	data := append(append([]byte{}, code...), ctorData...)
	units, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From: kp.Address(),
		Data: data,
	})
	if err != nil {
		return chain.Gas{}, fmt.Errorf("evm: estimate deploy gas: %w", err)
	}
	return chain.Gas{Units: units}, nil
}

// EstimateCallGas calls eth_estimateGas for a message call.
func (a *Adapter) EstimateCallGas(ctx context.Context, target chain.Address, callData []byte, keyID string) (chain.Gas, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return chain.Gas{}, err
	}
	to := common.Address(target.EVMAddress())
	units, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From: kp.Address(),
		To:   &to,
		Data: callData,
	})
	if err != nil {
		return chain.Gas{}, fmt.Errorf("evm: estimate call gas: %w", err)
	}
	return chain.Gas{Units: units}, nil
}

// FetchNonce returns keyID's pending nonce.
func (a *Adapter) FetchNonce(ctx context.Context, keyID string) (uint64, error) {
	kp, err := a.keyFor(keyID)
	if err != nil {
		return 0, err
	}
	nonce, err := a.client.PendingNonceAt(ctx, kp.Address())
	if err != nil {
		return 0, fmt.Errorf("evm: fetch nonce for %s: %w", keyID, err)
	}
	return nonce, nil
}

// AsNonceFetcher adapts FetchNonce to signer.NonceFetcher.
func (a *Adapter) AsNonceFetcher() signer.NonceFetcher {
	return a.FetchNonce
}

// SubscribeBlockStats streams one BlockStats row per new head. EVM has
// no Weight/PoV split, so this adapter fills NumExtrinsics and a
// gas-based analogue of RefTime (GasUsed against the block gas limit)
// and leaves the Wasm-specific PoV/witness fields at zero.
func (a *Adapter) SubscribeBlockStats(ctx context.Context) (<-chan chain.BlockStats, error) {
	heads := make(chan *types.Header, 64)
	sub, err := a.client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return nil, fmt.Errorf("evm: subscribe new heads: %w", err)
	}

	out := make(chan chain.BlockStats, 64)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					return
				}
			case head, ok := <-heads:
				if !ok {
					return
				}
				block, err := a.client.BlockByHash(ctx, head.Hash())
				if err != nil {
					continue
				}
				stats := chain.BlockStats{
					Number:        block.NumberU64(),
					Hash:          block.Hash(),
					RefTimeNanos:  block.GasUsed(),
					NumExtrinsics: len(block.Transactions()),
				}
				if limit := block.GasLimit(); limit > 0 {
					stats.RefTimePercent = float64(block.GasUsed()) / float64(limit) * 100
				}
				select {
				case out <- stats:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// ResolveBlock returns the block's timestamp and the hashes of every
// transaction it contains.
func (a *Adapter) ResolveBlock(ctx context.Context, blockHash [32]byte) (timestampMs uint64, hashes []chain.Hash, err error) {
	block, err := a.client.BlockByHash(ctx, common.Hash(blockHash))
	if err != nil {
		return 0, nil, fmt.Errorf("evm: fetch block %x: %w", blockHash, err)
	}
	hashes = make([]chain.Hash, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		hashes = append(hashes, chain.Hash(tx.Hash()))
	}
	return block.Time() * 1000, hashes, nil
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	a.client.Close()
	return nil
}
