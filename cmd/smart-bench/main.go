// Copyright 2025 smart-bench-go
//
// smart-bench drives a smart-contract benchmark against a
// contracts-pallet (ink-wasm/sol-wasm) or EVM chain: deploy N
// instances of each named contract, submit M calls per instance, and
// report per-block PoV/weight stats and throughput.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smart-bench-go/smart-bench/internal/bench"
	"github.com/smart-bench-go/smart-bench/internal/config"
	"github.com/smart-bench-go/smart-bench/internal/logging"
	"github.com/smart-bench-go/smart-bench/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "smart-bench: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a run failure to the CLI's exit status: 2 for a
// configuration error caught before any submission, 1 for everything
// else (dial failure, submission failure, a dispatch error surfaced
// mid-run).
func exitCodeFor(err error) int {
	if _, ok := err.(*configError); ok {
		return 2
	}
	return 1
}

// configError wraps a config.Validate failure so main can distinguish
// it from a run-time failure for exit-code purposes.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	cfg := config.Defaults()
	v := viper.New()
	v.SetEnvPrefix("SMART_BENCH")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "smart-bench",
		Short: "Benchmark a smart-contract chain's deploy/call throughput",
	}
	root.PersistentFlags().StringVar(&cfg.URL, "url", cfg.URL, "node RPC endpoint")
	root.PersistentFlags().Uint32Var(&cfg.InstanceCount, "instance-count", 0, "number of contract instances to deploy")
	root.PersistentFlags().Uint32Var(&cfg.CallCount, "call-count", 0, "number of calls to submit per instance")
	root.PersistentFlags().BoolVar(&cfg.SingleSigner, "single-signer", false, "submit every call from one signer instead of one signer per call")
	root.PersistentFlags().StringVar(&cfg.ContractsDir, "contracts-dir", cfg.ContractsDir, "root directory of contract bundles")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	root.PersistentFlags().BoolVar(&cfg.JSONReport, "json", false, "also emit JSON report lines alongside the text report")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(
		platformCmd(cfg, v, config.PlatformInkWasm, "ink-wasm", "Benchmark an ink!-on-contracts-pallet chain"),
		platformCmd(cfg, v, config.PlatformSolWasm, "sol-wasm", "Benchmark a solang-on-contracts-pallet chain"),
		platformCmd(cfg, v, config.PlatformEVM, "evm", "Benchmark an EVM-compatible chain"),
	)
	return root
}

func platformCmd(cfg *config.Config, v *viper.Viper, platform config.Platform, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CONTRACT [CONTRACT...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Platform = platform
			cfg.Contracts = args
			applyViperOverrides(cfg, v)

			if err := cfg.Validate(); err != nil {
				return &configError{err: err}
			}
			return runCommand(cmd.Context(), cfg)
		},
	}
}

// applyViperOverrides lets SMART_BENCH_* environment variables take
// over any flag left at its zero value, the same override order the
// driver's own env-first contracts-dir default already follows.
func applyViperOverrides(cfg *config.Config, v *viper.Viper) {
	if u := v.GetString("url"); u != "" {
		cfg.URL = u
	}
	if n := v.GetUint32("instance-count"); n != 0 {
		cfg.InstanceCount = n
	}
	if n := v.GetUint32("call-count"); n != 0 {
		cfg.CallCount = n
	}
	if v.GetBool("single-signer") {
		cfg.SingleSigner = true
	}
	if d := v.GetString("contracts-dir"); d != "" {
		cfg.ContractsDir = d
	}
}

func runCommand(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(cfg.LogLevel, os.Stderr)
	log = logging.WithRun(log, string(cfg.Platform), fmt.Sprintf("%v", cfg.Contracts))
	runID := uuid.New().String()
	log = log.With().Str("run_id", runID).Logger()

	reg := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := reg.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	return bench.Run(ctx, cfg, reg, os.Stdout, log)
}
