package engine

import (
	"fmt"
	"strings"

	"mad-engine/internal/record"
)

// Partitioner turns the backlog collected from every worker into the next
// tick's per-worker assignments.
type Partitioner interface {
	// ConcurrentPartitionStep runs while the workers execute. It must only
	// touch the buffers the workers are not writing this tick.
	ConcurrentPartitionStep()
	// SingleThreadPartitionStep runs after the barrier and returns the
	// number of work items dispatched for the next tick.
	SingleThreadPartitionStep() int
}

// Policy selects a Partitioner implementation.
type Policy string

const (
	PolicyAdaptive Policy = "adaptive"
	PolicyConstant Policy = "constant"
)

// ParsePolicy validates a configured policy name. An empty name selects the
// adaptive policy.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case "", PolicyAdaptive:
		return PolicyAdaptive, nil
	case PolicyConstant:
		return p, nil
	default:
		return "", fmt.Errorf("engine: unknown partition policy %q", name)
	}
}

// NewPartitioner builds the partitioner for policy over ctx.
func NewPartitioner[Op Operation, R record.Row](policy Policy, ctx *Context[Op, R]) Partitioner {
	if policy == PolicyConstant {
		return NewConstantWidthPartitioner(ctx)
	}
	return NewAdaptiveWidthPartitioner(ctx)
}
