package compose

import (
	"fmt"
	"sort"

	"github.com/latticeforge/kernel/artifact"
	"github.com/latticeforge/kernel/symbol"
)

// Ordered composes deltas from multiple writers that have each declared an
// explicit position via Delta.Order. Composition applies in ascending
// Order; deltas with equal Order preserve their input position (a stable
// sort), so ties are not an error.
type Ordered[T artifact.Content] struct{}

func (Ordered[T]) Name() string            { return "ordered" }
func (Ordered[T]) Parallelism() Parallelism { return ParallelismNone }
func (Ordered[T]) Granularity() Granularity { return GranularityAttribute }

func (Ordered[T]) Validate(deltas []artifact.Delta[T], _ *symbol.Index) (Validation, error) {
	missing := make([]int, 0)
	for i, d := range deltas {
		if d.Order == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return Validation{}, &CompositionError{
			Diagnostic: Diagnostic{
				Kind:           ConflictMissingOrdering,
				InvolvedDeltas: missing,
				Description:    "ordered strategy requires every delta to declare an explicit Order",
				Suggestions: []ResolutionSuggestion{
					{Kind: SuggestAddOrdering, SuggestedOrder: suggestOrder(deltas)},
				},
			},
		}
	}

	ordering := make([]OrderingConstraint, 0, len(deltas))
	for i := range deltas {
		follow := make([]int, 0)
		for j := range deltas {
			if i == j {
				continue
			}
			if *deltas[j].Order < *deltas[i].Order {
				follow = append(follow, j)
			}
		}
		if len(follow) > 0 {
			ordering = append(ordering, OrderingConstraint{DeltaIndex: i, MustFollow: follow})
		}
	}

	return Validation{
		Metadata: ValidationMetadata{BatchCount: len(deltas), Ordering: ordering},
		Cost:     Cost{Time: TimeONLogN, Space: SpaceOConst, ParallelismFactor: 0},
	}, nil
}

func suggestOrder[T artifact.Content](deltas []artifact.Delta[T]) map[int]uint32 {
	out := make(map[int]uint32, len(deltas))
	for i := range deltas {
		out[i] = uint32(i)
	}
	return out
}

// sortedIndices returns delta indices sorted ascending by Order, ties
// broken by input position (stable).
func sortedIndices[T artifact.Content](deltas []artifact.Delta[T], orderOf func(artifact.Delta[T]) uint32) []int {
	indices := make([]int, len(deltas))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return orderOf(deltas[indices[a]]) < orderOf(deltas[indices[b]])
	})
	return indices
}

// Compose applies every delta against the same base snapshot for the
// purpose of the base-hash check (not the rolling result): like
// Commutative, each delta is assumed to have been computed independently
// by a writer that only ever saw base, with Order alone resolving the
// sequencing between them.
func (o Ordered[T]) Compose(base artifact.Artifact[T], deltas []artifact.Delta[T], apply Applicator[T]) (artifact.Artifact[T], error) {
	if _, err := o.Validate(deltas, nil); err != nil {
		return artifact.Artifact[T]{}, err
	}

	indices := sortedIndices(deltas, func(d artifact.Delta[T]) uint32 { return *d.Order })

	current := base
	for _, idx := range indices {
		d := deltas[idx]
		if err := d.ValidateBase(base); err != nil {
			return artifact.Artifact[T]{}, fmt.Errorf("ordered: delta %d: %w", idx, err)
		}
		next, err := applyOne(current, d, apply)
		if err != nil {
			return artifact.Artifact[T]{}, fmt.Errorf("ordered: delta %d: %w", idx, err)
		}
		current = next
	}
	return current, nil
}
