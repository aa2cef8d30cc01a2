// Copyright 2025 smart-bench-go
//
// Package metrics exposes Prometheus instrumentation for the benchmark
// driver: counts and latencies of the RPC round-trips the core makes,
// so a long-running sTPS sweep can be watched from a dashboard rather
// than just the terminal reporter.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the metrics the driver updates during a run.
type Registry struct {
	Submissions      *prometheus.CounterVec
	SubmissionErrors *prometheus.CounterVec
	DryRunLatency    *prometheus.HistogramVec
	InclusionLatency prometheus.Histogram
	Outstanding      prometheus.Gauge

	registerer *prometheus.Registry
}

// New registers and returns a fresh Registry against its own registerer,
// so repeated runs in the same process (e.g. tests) never collide on
// duplicate registration.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smart_bench",
			Name:      "submissions_total",
			Help:      "Number of calls/deployments submitted to the node.",
		}, []string{"platform", "contract", "kind"}),
		SubmissionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smart_bench",
			Name:      "submission_errors_total",
			Help:      "Number of RPC submissions that returned an error.",
		}, []string{"platform", "contract", "kind"}),
		DryRunLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smart_bench",
			Name:      "dry_run_latency_seconds",
			Help:      "Latency of gas-estimation dry-run RPC calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform", "kind"}),
		InclusionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smart_bench",
			Name:      "inclusion_latency_seconds",
			Help:      "Time from submission to observation in a finalized block.",
			Buckets:   prometheus.DefBuckets,
		}),
		Outstanding: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "smart_bench",
			Name:      "outstanding_hashes",
			Help:      "Submitted hashes not yet observed in a block.",
		}),
		registerer: reg,
	}
}

// Serve starts an HTTP server exposing /metrics on addr until ctx is
// canceled. A blank addr disables metrics serving entirely.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registerer, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
