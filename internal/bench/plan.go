// Copyright 2025 smart-bench-go
//
// Package bench implements the driver core: the deployment engine
// (C4), call-burst engine (C5), block/stats stream (C6), reconciliation
// driver (C7), and run orchestrator (C9). The reporter lives separately
// in internal/report (C8).
package bench

import (
	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/contract"
)

// Instance is one deployed contract copy.
type Instance struct {
	ContractName string
	Address      chain.Address
}

// ContractRun pairs a contract's descriptor with its deployed
// instances, once C4 has placed them.
type ContractRun struct {
	Descriptor *contract.Descriptor
	Instances  []Instance
}

// PlannedCall is one entry in the call plan: a single encoded message
// targeting a single instance.
type PlannedCall struct {
	ContractName string
	Instance     chain.Address
	Message      contract.EncodedMessage
}

// BuildPlan produces the ordered call schedule: for outer in
// 0..callCount, for i in 0..max(len(instances)), for each contract run
// in declaration order, submit a call against its i'th instance if one
// exists. This interleaves different contracts at the transaction-pool
// level so no single contract starves the others.
func BuildPlan(runs []*ContractRun, callCount uint32) ([]PlannedCall, error) {
	maxInstances := 0
	for _, r := range runs {
		if len(r.Instances) > maxInstances {
			maxInstances = len(r.Instances)
		}
	}

	plan := make([]PlannedCall, 0, int(callCount)*maxInstances*len(runs))
	for outer := uint32(0); outer < callCount; outer++ {
		for i := 0; i < maxInstances; i++ {
			for _, r := range runs {
				if i >= len(r.Instances) {
					continue
				}
				if len(r.Descriptor.Messages) == 0 {
					continue
				}
				builder := r.Descriptor.Messages[int(outer)%len(r.Descriptor.Messages)]
				msg, err := builder()
				if err != nil {
					return nil, err
				}
				plan = append(plan, PlannedCall{
					ContractName: r.Descriptor.Name,
					Instance:     r.Instances[i].Address,
					Message:      msg,
				})
			}
		}
	}
	return plan, nil
}
