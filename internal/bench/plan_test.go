// Copyright 2025 smart-bench-go
package bench

import (
	"testing"

	"github.com/smart-bench-go/smart-bench/internal/chain"
	"github.com/smart-bench-go/smart-bench/internal/contract"
)

func messageBuilder(tag byte) contract.MessageBuilder {
	return func() (contract.EncodedMessage, error) {
		return contract.EncodedMessage{Kind: contract.KindCall, Data: []byte{tag}}, nil
	}
}

func TestBuildPlanInterleavesContractsPerInstanceSlot(t *testing.T) {
	a := &ContractRun{
		Descriptor: &contract.Descriptor{Name: "a", Messages: []contract.MessageBuilder{messageBuilder('a')}},
		Instances: []Instance{
			{ContractName: "a", Address: chain.Address{1}},
			{ContractName: "a", Address: chain.Address{2}},
		},
	}
	b := &ContractRun{
		Descriptor: &contract.Descriptor{Name: "b", Messages: []contract.MessageBuilder{messageBuilder('b')}},
		Instances: []Instance{
			{ContractName: "b", Address: chain.Address{3}},
		},
	}

	plan, err := BuildPlan([]*ContractRun{a, b}, 2)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	wantContracts := []string{"a", "b", "a", "a", "b", "a"}
	if len(plan) != len(wantContracts) {
		t.Fatalf("len(plan) = %d, want %d: %+v", len(plan), len(wantContracts), plan)
	}
	for i, want := range wantContracts {
		if plan[i].ContractName != want {
			t.Errorf("plan[%d].ContractName = %q, want %q", i, plan[i].ContractName, want)
		}
	}
	// instance 1 of contract a (index 1) only ever appears at the
	// second middle-loop slot, never interleaved with b's single
	// instance.
	if plan[2].Instance != (chain.Address{2}) {
		t.Errorf("plan[2].Instance = %+v, want instance 1 of contract a", plan[2].Instance)
	}
}

func TestBuildPlanCyclesMessagesByOuterIndex(t *testing.T) {
	run := &ContractRun{
		Descriptor: &contract.Descriptor{
			Name:     "c",
			Messages: []contract.MessageBuilder{messageBuilder(0), messageBuilder(1)},
		},
		Instances: []Instance{{ContractName: "c", Address: chain.Address{9}}},
	}

	plan, err := BuildPlan([]*ContractRun{run}, 3)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("len(plan) = %d, want 3", len(plan))
	}
	wantTags := []byte{0, 1, 0}
	for i, want := range wantTags {
		if got := plan[i].Message.Data[0]; got != want {
			t.Errorf("plan[%d] message tag = %d, want %d", i, got, want)
		}
	}
}

func TestBuildPlanZeroCallsProducesEmptyPlan(t *testing.T) {
	run := &ContractRun{
		Descriptor: &contract.Descriptor{Name: "c", Messages: []contract.MessageBuilder{messageBuilder(0)}},
		Instances:  []Instance{{ContractName: "c", Address: chain.Address{1}}},
	}
	plan, err := BuildPlan([]*ContractRun{run}, 0)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan) != 0 {
		t.Fatalf("len(plan) = %d, want 0", len(plan))
	}
}

func TestBuildPlanSkipsRunsWithNoInstanceAtSlot(t *testing.T) {
	a := &ContractRun{
		Descriptor: &contract.Descriptor{Name: "a", Messages: []contract.MessageBuilder{messageBuilder(0)}},
		Instances: []Instance{
			{ContractName: "a", Address: chain.Address{1}},
			{ContractName: "a", Address: chain.Address{2}},
		},
	}
	b := &ContractRun{
		Descriptor: &contract.Descriptor{Name: "b", Messages: []contract.MessageBuilder{messageBuilder(0)}},
		Instances:  []Instance{{ContractName: "b", Address: chain.Address{3}}},
	}

	plan, err := BuildPlan([]*ContractRun{a, b}, 1)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	// slot 0: a then b; slot 1: only a (b has no second instance).
	if len(plan) != 3 {
		t.Fatalf("len(plan) = %d, want 3: %+v", len(plan), plan)
	}
	if plan[2].ContractName != "a" {
		t.Errorf("plan[2].ContractName = %q, want %q", plan[2].ContractName, "a")
	}
}
