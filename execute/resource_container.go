package execute

import (
	"fmt"
	"sync"

	"github.com/latticeforge/kernel/capability"
)

// ResourceEnforcementKind identifies which primitive a ResourceContainer
// rejected consumption against.
type ResourceEnforcementKind int

const (
	EnforceCPU ResourceEnforcementKind = iota
	EnforceMemory
	EnforceTokens
	EnforceIterations
)

func (k ResourceEnforcementKind) String() string {
	switch k {
	case EnforceCPU:
		return "cpu"
	case EnforceMemory:
		return "memory"
	case EnforceTokens:
		return "tokens"
	default:
		return "iterations"
	}
}

// ResourceEnforcementTriggered is returned when a node's consumption
// exceeds its declared bounds. This is enforcement, not validation: the
// container measures and rejects, it never decides whether the bound
// itself was reasonable — that was already decided at construction.
type ResourceEnforcementTriggered struct {
	Kind     ResourceEnforcementKind
	Bound    uint64
	Consumed uint64
}

func (e *ResourceEnforcementTriggered) Error() string {
	return fmt.Sprintf("execute: resource enforcement triggered: %s bound %d exceeded by %d", e.Kind, e.Bound, e.Consumed)
}

// ResourceContainer enforces a node's declared resource bounds at
// primitive granularity as consumption is reported. It holds no policy
// knowledge of its own; it only measures against the bound it was given.
type ResourceContainer struct {
	bounds capability.ResourceCaps

	mu       sync.Mutex
	consumed capability.ResourceCaps
}

// NewResourceContainer derives a container from a node's declared bounds.
func NewResourceContainer(bounds capability.ResourceCaps) *ResourceContainer {
	return &ResourceContainer{bounds: bounds}
}

// CheckCPU adds ms to cumulative CPU consumption and enforces the bound.
func (c *ResourceContainer) CheckCPU(ms uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumed.CPUMillis += ms
	if c.consumed.CPUMillis > c.bounds.CPUMillis {
		return &ResourceEnforcementTriggered{Kind: EnforceCPU, Bound: c.bounds.CPUMillis, Consumed: c.consumed.CPUMillis}
	}
	return nil
}

// CheckMemory adds bytes to cumulative memory consumption and enforces the bound.
func (c *ResourceContainer) CheckMemory(bytes uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumed.MemoryBytes += bytes
	if c.consumed.MemoryBytes > c.bounds.MemoryBytes {
		return &ResourceEnforcementTriggered{Kind: EnforceMemory, Bound: c.bounds.MemoryBytes, Consumed: c.consumed.MemoryBytes}
	}
	return nil
}

// CheckTokens adds n to cumulative token consumption and enforces the bound.
func (c *ResourceContainer) CheckTokens(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumed.TokenLimit += n
	if c.consumed.TokenLimit > c.bounds.TokenLimit {
		return &ResourceEnforcementTriggered{Kind: EnforceTokens, Bound: c.bounds.TokenLimit, Consumed: c.consumed.TokenLimit}
	}
	return nil
}

// CheckIterations adds n to cumulative iteration consumption and enforces the bound.
func (c *ResourceContainer) CheckIterations(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumed.IterationCap += n
	if c.consumed.IterationCap > c.bounds.IterationCap {
		return &ResourceEnforcementTriggered{Kind: EnforceIterations, Bound: c.bounds.IterationCap, Consumed: c.consumed.IterationCap}
	}
	return nil
}

// Consumed returns a snapshot of cumulative consumption so far.
func (c *ResourceContainer) Consumed() capability.ResourceCaps {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}
