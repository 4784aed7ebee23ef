package construct

import "github.com/latticeforge/kernel/capability"

// ExpansionHint marks a node as a dynamic expansion point, declaring a
// schema tag, resource budget, and depth. Nothing in this module reads it:
// the validator ignores it and no staged-construction type expands it.
type ExpansionHint struct {
	SchemaType     string
	ResourceBudget capability.ResourceCaps
	MaxDepth       int
}

// NodeSpec is a node's immutable specification: its directives, its
// autonomy ceiling, its resource bounds, and an optional dynamic-expansion
// declaration. NodeSpec is immutable once its graph has been validated.
type NodeSpec struct {
	Directives      DirectiveSet
	AutonomyCeiling capability.AutonomyLevel
	ResourceBounds  capability.ResourceCaps
	Expansion       *ExpansionHint
}

// SystemLimits bounds what any single ValidatedGraph may request: the
// highest autonomy ceiling any node may declare, the resource envelope the
// whole graph's nodes may sum to, and coarse node/edge count caps.
type SystemLimits struct {
	MaxAutonomy   capability.AutonomyLevel
	MaxResources  capability.ResourceCaps
	MaxNodes      int
	MaxEdges      int
}

// DefaultSystemLimits returns a generous but finite default, suitable for
// a GraphBuilder that does not supply its own.
func DefaultSystemLimits() SystemLimits {
	return SystemLimits{
		MaxAutonomy: capability.L5,
		MaxResources: capability.ResourceCaps{
			CPUMillis:    600_000,
			MemoryBytes:  4 << 30,
			TokenLimit:   2_000_000,
			IterationCap: 100_000,
		},
		MaxNodes: 10_000,
		MaxEdges: 100_000,
	}
}
