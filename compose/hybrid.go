package compose

import (
	"fmt"

	"github.com/latticeforge/kernel/artifact"
	"github.com/latticeforge/kernel/symbol"
)

// Hybrid classifies each delta Commutative (Add/Remove) or Ordered(k) (k =
// delta.Order, defaulting to 1), validates the commutative partition under
// Commutative's rules and the ordered partition under Ordered's sequencing,
// then composes in two stages: the commutative phase first, then the
// ordered phase applied against its result.
type Hybrid[T artifact.Content] struct{}

func (Hybrid[T]) Name() string            { return "hybrid" }
func (Hybrid[T]) Parallelism() Parallelism { return ParallelismPartial }
func (Hybrid[T]) Granularity() Granularity { return GranularityAttribute }

type classifiedDelta[T artifact.Content] struct {
	index int
	delta artifact.Delta[T]
}

func (Hybrid[T]) classify(deltas []artifact.Delta[T]) (commutative, ordered []classifiedDelta[T]) {
	for i, d := range deltas {
		if artifact.IsCommutative(d.Operation) {
			commutative = append(commutative, classifiedDelta[T]{index: i, delta: d})
			continue
		}
		ordered = append(ordered, classifiedDelta[T]{index: i, delta: d})
	}
	return commutative, ordered
}

func unwrap[T artifact.Content](cs []classifiedDelta[T]) []artifact.Delta[T] {
	out := make([]artifact.Delta[T], len(cs))
	for i, c := range cs {
		out[i] = c.delta
	}
	return out
}

func orderOrDefault[T artifact.Content](d artifact.Delta[T]) uint32 {
	if d.Order == nil {
		return 1
	}
	return *d.Order
}

func (h Hybrid[T]) Validate(deltas []artifact.Delta[T], index *symbol.Index) (Validation, error) {
	commutative, ordered := h.classify(deltas)

	var cost Cost
	if len(commutative) > 0 {
		v, err := (Commutative[T]{}).Validate(unwrap(commutative), index)
		if err != nil {
			return Validation{}, fmt.Errorf("hybrid: commutative partition: %w", err)
		}
		cost = v.Cost
	}

	orderedDeltas := unwrap(ordered)
	localIndices := sortedIndices(orderedDeltas, orderOrDefault[T])
	ordering := make([]OrderingConstraint, 0, len(ordered))
	for pos, localIdx := range localIndices {
		if pos == 0 {
			continue
		}
		ordering = append(ordering, OrderingConstraint{
			DeltaIndex: ordered[localIdx].index,
			MustFollow: []int{ordered[localIndices[pos-1]].index},
		})
	}

	total := max(1, len(deltas))
	return Validation{
		Metadata: ValidationMetadata{
			BatchCount: len(deltas),
			Ordering:   ordering,
			Custom: map[string]string{
				"commutative_count": fmt.Sprintf("%d", len(commutative)),
				"ordered_count":      fmt.Sprintf("%d", len(ordered)),
			},
		},
		Cost: Cost{
			Time:              maxTime(cost.Time, TimeON),
			Space:             SpaceON,
			ParallelismFactor: float64(len(commutative)) / float64(total),
		},
	}, nil
}

func maxTime(a, b TimeComplexity) TimeComplexity {
	if a == TimeONLogN || b == TimeONLogN {
		return TimeONLogN
	}
	return TimeON
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (h Hybrid[T]) Compose(base artifact.Artifact[T], deltas []artifact.Delta[T], apply Applicator[T]) (artifact.Artifact[T], error) {
	if _, err := h.Validate(deltas, nil); err != nil {
		return artifact.Artifact[T]{}, err
	}

	commutative, ordered := h.classify(deltas)

	current := base
	if len(commutative) > 0 {
		next, err := (Commutative[T]{}).Compose(base, unwrap(commutative), apply)
		if err != nil {
			return artifact.Artifact[T]{}, fmt.Errorf("hybrid: commutative phase: %w", err)
		}
		current = next
	}

	orderedDeltas := unwrap(ordered)
	localIndices := sortedIndices(orderedDeltas, orderOrDefault[T])
	for _, localIdx := range localIndices {
		cd := ordered[localIdx]
		rebased := artifact.Delta[T]{
			Target:      cd.delta.Target,
			Operation:   cd.delta.Operation,
			BaseHash:    current.Hash(),
			Order:       cd.delta.Order,
			Description: cd.delta.Description,
		}
		next, err := applyOne(current, rebased, apply)
		if err != nil {
			return artifact.Artifact[T]{}, fmt.Errorf("hybrid: ordered phase, delta %d: %w", cd.index, err)
		}
		current = next
	}
	return current, nil
}
