// Copyright 2025 smart-bench-go
package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/chain/evm"
	"github.com/smart-bench-go/smart-bench/internal/chain/wasm"
	"github.com/smart-bench-go/smart-bench/internal/config"
	"github.com/smart-bench-go/smart-bench/internal/contract"
	"github.com/smart-bench-go/smart-bench/internal/metrics"
	"github.com/smart-bench-go/smart-bench/internal/pool"
	"github.com/smart-bench-go/smart-bench/internal/report"
	"github.com/smart-bench-go/smart-bench/internal/rpc"
	"github.com/smart-bench-go/smart-bench/internal/signer"
)

// watcherAdapter is what the deployment engine needs from a chain
// adapter beyond chain.Adapter itself: a way to start watching for
// instantiation events before submitting the deploy batch.
type watcherAdapter interface {
	chain.Adapter
	Watcher() chain.InstanceWatcher
}

// Run executes one full benchmark: dial the selected platform's
// adapter, deploy every contract's instances in declaration order,
// build and submit the interleaved call plan, then stream and
// reconcile blocks until every submitted call has been observed. The
// reporter is built here, once the call burst's target hash set is
// known, rather than handed in from outside.
func Run(ctx context.Context, cfg *config.Config, reg *metrics.Registry, out io.Writer, log zerolog.Logger) error {
	adapter, err := dialAdapter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bench: dial %s adapter: %w", cfg.Platform, err)
	}
	defer adapter.Close()

	return runWithAdapter(ctx, adapter, cfg, reg, out, log)
}

// runWithAdapter is Run's body against an already-dialed adapter,
// split out so the orchestration sequence (in particular, opening the
// block-stats subscription before the call burst) can be exercised
// against a fake adapter in tests without a live chain.
func runWithAdapter(ctx context.Context, adapter watcherAdapter, cfg *config.Config, reg *metrics.Registry, out io.Writer, log zerolog.Logger) error {
	saltEpoch := uint64(time.Now().UnixNano())

	runs := make([]*ContractRun, 0, len(cfg.Contracts))
	for i, name := range cfg.Contracts {
		desc, err := contract.Load(cfg.ContractsDir, string(cfg.Platform), name)
		if err != nil {
			return fmt.Errorf("bench: load contract %q: %w", name, err)
		}

		salt := deploymentSalt(saltEpoch, i)
		log.Info().Str("contract", name).Uint32("count", cfg.InstanceCount).Msg("deploying instances")
		instances, err := DeployInstances(ctx, adapter, adapter.Watcher(), desc, cfg.InstanceCount, salt, cfg.Platform.IsWasm())
		if err != nil {
			if reg != nil {
				reg.SubmissionErrors.WithLabelValues(string(cfg.Platform), name, "deploy").Inc()
			}
			return fmt.Errorf("bench: deploy %q: %w", name, err)
		}
		if reg != nil {
			reg.Submissions.WithLabelValues(string(cfg.Platform), name, "deploy").Add(float64(len(instances)))
		}
		runs = append(runs, &ContractRun{Descriptor: desc, Instances: instances})
	}

	plan, err := BuildPlan(runs, cfg.CallCount)
	if err != nil {
		return fmt.Errorf("bench: build call plan: %w", err)
	}
	log.Info().Int("calls", len(plan)).Msg("submitting call burst")

	signerFor, err := buildSignerFor(cfg, adapter)
	if err != nil {
		return err
	}

	// The block-stats subscription must be live before the first call is
	// submitted: SubscribeBlockStats only delivers blocks from the moment
	// of subscription forward, so opening it after the burst would miss
	// any block that finalizes while the burst is still submitting.
	blocks, err := StreamBlockInfo(ctx, adapter)
	if err != nil {
		return fmt.Errorf("bench: stream block info: %w", err)
	}

	execPool := pool.New(pool.DefaultMaxInFlight)
	hashes, err := RunBurst(ctx, adapter, execPool, signerFor, plan)
	if err != nil {
		if reg != nil {
			reg.SubmissionErrors.WithLabelValues(string(cfg.Platform), "*", "call").Inc()
		}
		return fmt.Errorf("bench: run call burst: %w", err)
	}
	if reg != nil {
		reg.Submissions.WithLabelValues(string(cfg.Platform), "*", "call").Add(float64(len(hashes)))
		reg.Outstanding.Set(float64(len(hashes)))
	}

	reporter := report.New(out, cfg.JSONReport, hashes)
	reconciled := Reconcile(ctx, blocks, hashes)
	outstanding := make(map[chain.Hash]struct{}, len(hashes))
	for h := range hashes {
		outstanding[h] = struct{}{}
	}
	for info := range reconciled {
		if reg != nil {
			reg.Outstanding.Set(float64(remainingAfter(info, outstanding)))
		}
		if err := reporter.Observe(info); err != nil {
			return fmt.Errorf("bench: report block %d: %w", info.Stats.Number, err)
		}
	}
	return reporter.Finish()
}

// remainingAfter removes info's hashes from outstanding (the run's
// target hashes not yet seen in any block) and returns how many remain,
// the value the Outstanding gauge reports.
func remainingAfter(info chain.BlockInfo, outstanding map[chain.Hash]struct{}) int {
	for h := range info.Hashes {
		delete(outstanding, h)
	}
	return len(outstanding)
}

func dialAdapter(ctx context.Context, cfg *config.Config) (watcherAdapter, error) {
	if cfg.Platform.IsWasm() {
		client, err := rpc.Dial(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return wasm.New(client), nil
	}
	return evm.Dial(ctx, cfg.URL)
}

func buildSignerFor(cfg *config.Config, adapter chain.Adapter) (SignerFor, error) {
	if cfg.SingleSigner {
		p := signer.NewSingle("single-signer", adapter.FetchNonce)
		return SingleSignerFor(p), nil
	}
	p := signer.NewPerCall(adapter.FetchNonce)
	return PerCallSignerFor(p, signer.DefaultSeed), nil
}

// deploymentSalt derives a 16-byte salt base from a run-start timestamp
// (epochNanos, snapshotted once per Run) combined with the contract's
// position in the run: the timestamp keeps repeated runs against the
// same chain and contract set from reusing an identical salt sequence
// and colliding on code hashes left over from a prior run, while the
// contract index keeps two contracts in the same run distinct.
func deploymentSalt(epochNanos uint64, contractIndex int) [16]byte {
	var salt [16]byte
	for i := 0; i < 8; i++ {
		salt[i] = byte(epochNanos >> (8 * i))
	}
	salt[8] = byte(contractIndex)
	salt[9] = byte(contractIndex >> 8)
	return salt
}
