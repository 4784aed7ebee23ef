// Package compose implements the composition strategies that apply batches
// of structural deltas to an artifact under different consistency
// guarantees (single-writer, ordered, commutative, hybrid).
package compose

import (
	"github.com/latticeforge/kernel/artifact"
	"github.com/latticeforge/kernel/symbol"
)

// Parallelism describes how much of a delta batch a strategy may apply concurrently.
type Parallelism int

const (
	ParallelismFull Parallelism = iota
	ParallelismPartial
	ParallelismNone
)

// AllowsParallel reports whether p permits any concurrent application.
func (p Parallelism) AllowsParallel() bool {
	return p != ParallelismNone
}

func (p Parallelism) String() string {
	switch p {
	case ParallelismFull:
		return "full"
	case ParallelismPartial:
		return "partial"
	default:
		return "none"
	}
}

// Granularity describes the unit at which a strategy reasons about conflicts.
type Granularity int

const (
	GranularitySubtree Granularity = iota
	GranularityNode
	GranularityAttribute
)

func (g Granularity) String() string {
	switch g {
	case GranularitySubtree:
		return "subtree"
	case GranularityNode:
		return "node"
	default:
		return "attribute"
	}
}

// TimeComplexity is a coarse cost class for a strategy's validate/compose pass.
type TimeComplexity int

const (
	TimeON TimeComplexity = iota
	TimeONLogN
)

// SpaceComplexity is a coarse cost class for a strategy's memory use.
type SpaceComplexity int

const (
	SpaceON SpaceComplexity = iota
	SpaceOConst
)

// Cost is a strategy's self-reported cost estimate for a validated batch.
type Cost struct {
	Time              TimeComplexity
	Space             SpaceComplexity
	ParallelismFactor float64 // in [0,1]
}

// OrderingConstraint records that the delta at DeltaIndex must be applied
// after every delta index listed in MustFollow.
type OrderingConstraint struct {
	DeltaIndex int
	MustFollow []int
}

// ValidationMetadata carries strategy-specific detail about a validated batch.
type ValidationMetadata struct {
	BatchCount int
	Ordering   []OrderingConstraint
	Custom     map[string]string
}

// Validation is the successful result of Strategy.Validate.
type Validation struct {
	Metadata ValidationMetadata
	Cost     Cost
}

// ConflictKind classifies why a batch failed validation.
type ConflictKind int

const (
	ConflictOverlappingTargets ConflictKind = iota
	ConflictMissingOrdering
	ConflictNonCommutativeOperations
	ConflictInvalidDependencies
	ConflictCapacityExceeded
	ConflictTargetInvariantViolation
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictOverlappingTargets:
		return "overlapping_targets"
	case ConflictMissingOrdering:
		return "missing_ordering"
	case ConflictNonCommutativeOperations:
		return "non_commutative_operations"
	case ConflictInvalidDependencies:
		return "invalid_dependencies"
	case ConflictTargetInvariantViolation:
		return "target_invariant_violation"
	default:
		return "capacity_exceeded"
	}
}

// SuggestionKind discriminates the concrete ResolutionSuggestion payload.
type SuggestionKind int

const (
	SuggestUseSingleWriter SuggestionKind = iota
	SuggestUseOrdered
	SuggestUseCommutative
	SuggestDecomposeTargets
	SuggestAddOrdering
	SuggestMergeAgents
	SuggestUseHybrid
)

// ResolutionSuggestion is one actionable fix for a validation failure.
type ResolutionSuggestion struct {
	Kind SuggestionKind
	// CommonPrefix is set for SuggestDecomposeTargets.
	CommonPrefix symbol.Path
	// SuggestedOrder is set for SuggestAddOrdering: delta index -> proposed order.
	SuggestedOrder map[int]uint32
}

// Diagnostic explains why validation rejected a batch.
type Diagnostic struct {
	Kind            ConflictKind
	InvolvedDeltas  []int
	Description     string
	Suggestions     []ResolutionSuggestion
}

// Strategy is the closed set of composition strategies over content T.
// Applying a delta to content is delegated to an externally-supplied
// Applicator; strategies only decide validity, ordering, and parallelism.
type Strategy[T artifact.Content] interface {
	Validate(deltas []artifact.Delta[T], index *symbol.Index) (Validation, error)
	Compose(base artifact.Artifact[T], deltas []artifact.Delta[T], apply Applicator[T]) (artifact.Artifact[T], error)
	Parallelism() Parallelism
	Granularity() Granularity
	Name() string
}

// Applicator applies one delta's operation to content at a target path. It
// is supplied by the caller (a per-artifact-type adapter); strategies never
// implement content mutation themselves. Exists reports whether target is
// currently addressable within content, and backs the shared pre-application
// existence/absence check every strategy's Compose runs before dispatching
// to Apply.
type Applicator[T artifact.Content] interface {
	Exists(content T, target symbol.Path) bool
	Apply(content T, target symbol.Path, op artifact.Operation[T]) (T, error)
}

// ApplicatorFunc adapts a pair of plain functions to Applicator. ExistsFunc
// may be left nil only if the adapter's content type has no addressable
// sub-structure to report on; a nil ExistsFunc always reports absent, which
// makes every Remove/Replace/Transform fail the invariant check.
type ApplicatorFunc[T artifact.Content] struct {
	ExistsFunc func(content T, target symbol.Path) bool
	ApplyFunc  func(content T, target symbol.Path, op artifact.Operation[T]) (T, error)
}

func (f ApplicatorFunc[T]) Exists(content T, target symbol.Path) bool {
	if f.ExistsFunc == nil {
		return false
	}
	return f.ExistsFunc(content, target)
}

func (f ApplicatorFunc[T]) Apply(content T, target symbol.Path, op artifact.Operation[T]) (T, error) {
	return f.ApplyFunc(content, target, op)
}
