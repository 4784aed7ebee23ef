package compose

import (
	"fmt"

	"github.com/latticeforge/kernel/artifact"
	"github.com/latticeforge/kernel/symbol"
)

// SingleWriter is the default, safest strategy: every delta's target must
// be disjoint from every other delta's target in the batch and from any
// existing entry already claimed in the symbol index. Because disjointness
// rules out any shared state between deltas, application order never
// affects the result, so callers may apply the whole batch concurrently.
type SingleWriter[T artifact.Content] struct{}

func (SingleWriter[T]) Name() string            { return "single_writer" }
func (SingleWriter[T]) Parallelism() Parallelism { return ParallelismFull }
func (SingleWriter[T]) Granularity() Granularity { return GranularitySubtree }

func (SingleWriter[T]) Validate(deltas []artifact.Delta[T], index *symbol.Index) (Validation, error) {
	overlapping := make([]int, 0)
	for i := range deltas {
		for j := i + 1; j < len(deltas); j++ {
			if deltas[i].Target.Overlaps(deltas[j].Target) {
				overlapping = append(overlapping, i, j)
			}
		}
		if index != nil && index.HasAnyOverlap(deltas[i].Target) {
			overlapping = append(overlapping, i)
		}
	}
	if len(overlapping) > 0 {
		prefix, _ := commonPrefixOf(deltas)
		return Validation{}, &CompositionError{
			Diagnostic: Diagnostic{
				Kind:           ConflictOverlappingTargets,
				InvolvedDeltas: dedupInts(overlapping),
				Description:    "single-writer strategy requires pairwise disjoint targets, disjoint from the existing index",
				Suggestions: []ResolutionSuggestion{
					{Kind: SuggestDecomposeTargets, CommonPrefix: prefix},
				},
			},
		}
	}

	return Validation{
		Metadata: ValidationMetadata{BatchCount: len(deltas)},
		Cost:     Cost{Time: TimeON, Space: SpaceOConst, ParallelismFactor: 1},
	}, nil
}

func (sw SingleWriter[T]) Compose(base artifact.Artifact[T], deltas []artifact.Delta[T], apply Applicator[T]) (artifact.Artifact[T], error) {
	if _, err := sw.Validate(deltas, nil); err != nil {
		return artifact.Artifact[T]{}, err
	}
	current := base
	for _, d := range deltas {
		if err := d.ValidateBase(base); err != nil {
			return artifact.Artifact[T]{}, err
		}
		next, err := applyOne(current, d, apply)
		if err != nil {
			return artifact.Artifact[T]{}, err
		}
		current = next
	}
	return current, nil
}

// TargetInvariantError is returned by applyOne when a delta's operation
// violates the target existence/absence rule checked ahead of every
// Applicator dispatch: Add requires the target absent, Remove/Replace/
// Transform require it present.
type TargetInvariantError struct {
	Target  symbol.Path
	Op      artifact.OperationKind
	Existed bool
}

func (e *TargetInvariantError) Error() string {
	if e.Existed {
		return fmt.Sprintf("compose: %s at %q requires target to be absent but it already exists", e.Op, e.Target)
	}
	return fmt.Sprintf("compose: %s at %q requires target to exist but it is absent", e.Op, e.Target)
}

// checkTargetInvariant enforces the pre-application existence/absence rule
// for op's target against existed, the Applicator's own report of whether
// target currently resolves within content.
func checkTargetInvariant[T artifact.Content](target symbol.Path, op artifact.Operation[T], existed bool) error {
	switch op.Kind() {
	case artifact.KindAdd:
		if existed {
			return &TargetInvariantError{Target: target, Op: op.Kind(), Existed: true}
		}
	case artifact.KindRemove, artifact.KindReplace, artifact.KindTransform:
		if !existed {
			return &TargetInvariantError{Target: target, Op: op.Kind(), Existed: false}
		}
	}
	return nil
}

// applyOne checks d's target existence/absence invariant against base,
// dispatches to apply, and rehashes the result. Remove has no replacement
// content of type T to hand back in the general case, so callers composing
// over a Remove must supply an Applicator that knows how to represent
// "removed" for T (e.g. a zero value sentinel); the kernel never interprets
// removal itself.
func applyOne[T artifact.Content](base artifact.Artifact[T], d artifact.Delta[T], apply Applicator[T]) (artifact.Artifact[T], error) {
	existed := apply.Exists(base.Content(), d.Target)
	if err := checkTargetInvariant(d.Target, d.Operation, existed); err != nil {
		return artifact.Artifact[T]{}, err
	}
	content, err := apply.Apply(base.Content(), d.Target, d.Operation)
	if err != nil {
		return artifact.Artifact[T]{}, err
	}
	return artifact.New(content)
}
