package compose

import (
	"fmt"

	"github.com/latticeforge/kernel/artifact"
	"github.com/latticeforge/kernel/symbol"
)

// Commutative composes a batch whose operations are all Add or Remove and
// whose targets are pairwise unique (exact path equality, not a full
// overlap test — unlike SingleWriter, two targets in an ancestor/descendant
// relationship are permitted here since distinct Add/Remove operations at
// different depths do not interfere). Application order is unconstrained:
// the result must be identical for every permutation of the batch.
type Commutative[T artifact.Content] struct{}

func (Commutative[T]) Name() string            { return "commutative" }
func (Commutative[T]) Parallelism() Parallelism { return ParallelismFull }
func (Commutative[T]) Granularity() Granularity { return GranularityNode }

func (Commutative[T]) Validate(deltas []artifact.Delta[T], _ *symbol.Index) (Validation, error) {
	nonCommutative := make([]int, 0)
	for i, d := range deltas {
		if !artifact.IsCommutative(d.Operation) {
			nonCommutative = append(nonCommutative, i)
		}
	}
	if len(nonCommutative) > 0 {
		return Validation{}, &CompositionError{
			Diagnostic: Diagnostic{
				Kind:           ConflictNonCommutativeOperations,
				InvolvedDeltas: nonCommutative,
				Description:    "commutative strategy requires every operation to be Add or Remove",
				Suggestions: []ResolutionSuggestion{
					{Kind: SuggestUseOrdered}, {Kind: SuggestUseHybrid},
				},
			},
		}
	}

	duplicates := make([]int, 0)
	for i := range deltas {
		for j := i + 1; j < len(deltas); j++ {
			if deltas[i].Target.Equal(deltas[j].Target) {
				duplicates = append(duplicates, i, j)
			}
		}
	}
	if len(duplicates) > 0 {
		return Validation{}, &CompositionError{
			Diagnostic: Diagnostic{
				Kind:           ConflictOverlappingTargets,
				InvolvedDeltas: dedupInts(duplicates),
				Description:    "commutative strategy requires pairwise unique targets",
				Suggestions: []ResolutionSuggestion{
					{Kind: SuggestUseSingleWriter},
				},
			},
		}
	}

	return Validation{
		Metadata: ValidationMetadata{BatchCount: len(deltas)},
		Cost:     Cost{Time: TimeON, Space: SpaceOConst, ParallelismFactor: 1},
	}, nil
}

// Compose applies every delta against the same base snapshot (not a
// rolling result): since targets are pairwise unique and operations are
// Add/Remove, every delta's base_hash is checked against base directly,
// matching how independent writers would each have computed their delta
// from the same starting artifact.
func (c Commutative[T]) Compose(base artifact.Artifact[T], deltas []artifact.Delta[T], apply Applicator[T]) (artifact.Artifact[T], error) {
	if _, err := c.Validate(deltas, nil); err != nil {
		return artifact.Artifact[T]{}, err
	}
	current := base
	for i, d := range deltas {
		if err := d.ValidateBase(base); err != nil {
			return artifact.Artifact[T]{}, fmt.Errorf("commutative: delta %d: %w", i, err)
		}
		next, err := applyOne(current, d, apply)
		if err != nil {
			return artifact.Artifact[T]{}, fmt.Errorf("commutative: delta %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

func commonPrefixOf[T artifact.Content](deltas []artifact.Delta[T]) (symbol.Path, bool) {
	if len(deltas) == 0 {
		return symbol.Root, false
	}
	prefix := deltas[0].Target
	for _, d := range deltas[1:] {
		prefix = prefix.CommonPrefix(d.Target)
	}
	return prefix, true
}

func dedupInts(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
