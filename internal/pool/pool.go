// Copyright 2025 smart-bench-go
//
// Package pool implements the bounded-concurrency executor the call
// burst engine submits work through: up to a fixed
// number of submissions in flight at once, built on
// golang.org/x/sync's errgroup and semaphore.Weighted so the first
// failing task can cancel the rest via a shared context.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight caps the number of concurrent in-flight
// submissions at 100.
const DefaultMaxInFlight = 100

// Pool runs tasks with bounded concurrency.
type Pool struct {
	sem *semaphore.Weighted
}

// New builds a Pool that allows at most maxInFlight tasks to run
// concurrently. maxInFlight <= 0 falls back to DefaultMaxInFlight.
func New(maxInFlight int) *Pool {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Pool{sem: semaphore.NewWeighted(int64(maxInFlight))}
}

// Run submits every task to the pool, bounded by the pool's
// concurrency limit, and waits for them all to finish. The first task
// to return a non-nil error cancels the group's context; Run returns
// that first error (subsequent errors are dropped, matching
// errgroup.Group's own behavior).
func (p *Pool) Run(ctx context.Context, tasks []func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	var acquireErr error
	for _, task := range tasks {
		task := task
		if err := p.sem.Acquire(gctx, 1); err != nil {
			// gctx was canceled by an earlier task's failure or by ctx.
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return task(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return acquireErr
}
