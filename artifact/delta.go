package artifact

import (
	"fmt"

	"github.com/latticeforge/kernel/hash"
	"github.com/latticeforge/kernel/symbol"
)

// Operation is the sealed set of delta operations over content T. Only the
// four concrete types in this file implement it.
type Operation[T Content] interface {
	isOperation()
	// Kind returns a stable discriminator for type switches and logging.
	Kind() OperationKind
}

// OperationKind discriminates the concrete Operation variant.
type OperationKind int

const (
	KindAdd OperationKind = iota
	KindRemove
	KindReplace
	KindTransform
)

func (k OperationKind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindReplace:
		return "replace"
	case KindTransform:
		return "transform"
	default:
		return "unknown"
	}
}

// Add inserts new content at the delta's target.
type Add[T Content] struct{ Content T }

func (Add[T]) isOperation()         {}
func (Add[T]) Kind() OperationKind { return KindAdd }

// Remove deletes whatever is at the delta's target.
type Remove[T Content] struct{}

func (Remove[T]) isOperation()         {}
func (Remove[T]) Kind() OperationKind { return KindRemove }

// Replace overwrites the content at the delta's target.
type Replace[T Content] struct{ Content T }

func (Replace[T]) isOperation()         {}
func (Replace[T]) Kind() OperationKind { return KindReplace }

// Transformation is a deterministic, describable function over content.
// A Transform delta wraps one of these rather than an arbitrary closure, so
// that cloning a Transform delta is well-defined exactly when the wrapped
// Transformation declares itself cloneable — see CloneableTransformation.
type Transformation[T Content] interface {
	Apply(content T) (T, error)
	Describe() string
}

// ReversibleTransformation is implemented by transformations that can
// compute their own inverse.
type ReversibleTransformation[T Content] interface {
	Transformation[T]
	IsReversible() bool
	Inverse() (Transformation[T], error)
}

// Transform applies an arbitrary deterministic function to existing content.
type Transform[T Content] struct{ Fn Transformation[T] }

func (Transform[T]) isOperation()         {}
func (Transform[T]) Kind() OperationKind { return KindTransform }

// IsCommutative reports whether op's effect is order-independent when
// composed with other commutative ops on disjoint targets. Only Add and
// Remove are commutative; Replace and Transform depend on prior state.
func IsCommutative[T Content](op Operation[T]) bool {
	switch op.Kind() {
	case KindAdd, KindRemove:
		return true
	default:
		return false
	}
}

// ReadsState reports whether op's effect depends on the artifact's current
// content (Replace, Transform) as opposed to being independent of it (Add,
// Remove).
func ReadsState[T Content](op Operation[T]) bool {
	switch op.Kind() {
	case KindReplace, KindTransform:
		return true
	default:
		return false
	}
}

// WritesState is true for every operation kind; every delta mutates the artifact.
func WritesState[T Content](_ Operation[T]) bool {
	return true
}

// BaseMismatchError is returned by ValidateBase when the delta's recorded
// base hash does not match the artifact it is checked against.
type BaseMismatchError struct {
	Expected hash.Hash
	Actual   hash.Hash
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("artifact: base hash mismatch: expected %s, got %s", e.Expected.Short(), e.Actual.Short())
}

// Delta is a typed, target-addressed, base-hash-bound transformation over an
// artifact of content type T.
type Delta[T Content] struct {
	Target      symbol.Path
	Operation   Operation[T]
	BaseHash    hash.Hash
	Order       *uint32
	Description string
}

// ValidateBase checks that a's hash matches the delta's recorded base hash.
func (d Delta[T]) ValidateBase(a Artifact[T]) error {
	if a.Hash() != d.BaseHash {
		return &BaseMismatchError{Expected: d.BaseHash, Actual: a.Hash()}
	}
	return nil
}

// InvalidOperationError is returned by DeltaBuilder.Build when a required
// field is missing, in target-then-operation-then-base-hash order.
type InvalidOperationError struct{ MissingField string }

func (e *InvalidOperationError) Error() string {
	return "artifact: delta missing required field: " + e.MissingField
}

// DeltaBuilder incrementally constructs a Delta, checking required fields
// in a fixed order (target, then operation, then base hash) at Build time.
type DeltaBuilder[T Content] struct {
	target      *symbol.Path
	operation   Operation[T]
	baseHash    *hash.Hash
	order       *uint32
	description string
}

// NewDeltaBuilder starts an empty builder.
func NewDeltaBuilder[T Content]() *DeltaBuilder[T] {
	return &DeltaBuilder[T]{}
}

func (b *DeltaBuilder[T]) Target(p symbol.Path) *DeltaBuilder[T] {
	b.target = &p
	return b
}

func (b *DeltaBuilder[T]) Op(op Operation[T]) *DeltaBuilder[T] {
	b.operation = op
	return b
}

func (b *DeltaBuilder[T]) BaseHash(h hash.Hash) *DeltaBuilder[T] {
	b.baseHash = &h
	return b
}

// ForArtifact sets the base hash from an existing artifact's current hash.
func (b *DeltaBuilder[T]) ForArtifact(a Artifact[T]) *DeltaBuilder[T] {
	h := a.Hash()
	b.baseHash = &h
	return b
}

func (b *DeltaBuilder[T]) Order(order uint32) *DeltaBuilder[T] {
	b.order = &order
	return b
}

func (b *DeltaBuilder[T]) Description(text string) *DeltaBuilder[T] {
	b.description = text
	return b
}

// Build validates field presence in order (target, operation, base hash)
// and returns the assembled Delta.
func (b *DeltaBuilder[T]) Build() (Delta[T], error) {
	if b.target == nil {
		return Delta[T]{}, &InvalidOperationError{MissingField: "target"}
	}
	if b.operation == nil {
		return Delta[T]{}, &InvalidOperationError{MissingField: "operation"}
	}
	if b.baseHash == nil {
		return Delta[T]{}, &InvalidOperationError{MissingField: "base_hash"}
	}
	return Delta[T]{
		Target:      *b.target,
		Operation:   b.operation,
		BaseHash:    *b.baseHash,
		Order:       b.order,
		Description: b.description,
	}, nil
}
