// Package artifact provides the content-addressed, typed artifact container
// and the structural deltas that mutate it.
package artifact

import (
	"fmt"

	"github.com/latticeforge/kernel/hash"
)

// Content is implemented by every concrete artifact content type. It plays
// the role the Rust original gives to a sealed ArtifactType trait: Go has no
// closed trait set, so the closure is enforced by convention (only the
// concrete types in this package and its siblings implement it) rather than
// by the compiler.
type Content interface {
	// TypeID returns a stable, lowercase, globally-unique identifier for
	// this content's artifact type (e.g. "code", "config").
	TypeID() string
	// ContentHash computes this content value's canonical hash. Whether
	// formatting-only differences (whitespace, key order) change the hash
	// is a decision of the concrete content type, documented on each type
	// below.
	ContentHash() hash.Hash
	// Validate checks content-specific invariants. Most types return nil
	// unconditionally; see each type's doc comment.
	Validate() error
}

// Artifact is an immutable, content-hashed container for a value of type T.
// The invariant hash == content.ContentHash() is established at
// construction and is re-checkable via Verify.
type Artifact[T Content] struct {
	content T
	hash    hash.Hash
}

// New validates content, computes its hash, and returns the artifact.
func New[T Content](content T) (Artifact[T], error) {
	if err := content.Validate(); err != nil {
		return Artifact[T]{}, fmt.Errorf("artifact: invalid content: %w", err)
	}
	return Artifact[T]{content: content, hash: content.ContentHash()}, nil
}

// NewUnchecked constructs an artifact from content and a hash already known
// to be correct (e.g. loaded from a trusted store), skipping validation and
// rehashing. Callers that cannot guarantee the invariant should use New and
// Verify instead.
func NewUnchecked[T Content](content T, h hash.Hash) Artifact[T] {
	return Artifact[T]{content: content, hash: h}
}

// Hash returns the artifact's content hash.
func (a Artifact[T]) Hash() hash.Hash {
	return a.hash
}

// Content returns the artifact's content value.
func (a Artifact[T]) Content() T {
	return a.content
}

// TypeID returns the artifact's type identifier.
func (a Artifact[T]) TypeID() string {
	return a.content.TypeID()
}

// Verify recomputes the content hash and compares it against the stored hash.
func (a Artifact[T]) Verify() bool {
	return a.content.ContentHash() == a.hash
}

// Map transforms an artifact's content with f and returns a freshly-hashed
// artifact of the (possibly different) content type U. It never reuses a's
// hash, since U's content generally hashes differently than T's.
//
// This is a free function rather than a method because Go does not allow a
// generic method to introduce a new type parameter beyond its receiver's.
func Map[T Content, U Content](a Artifact[T], f func(T) (U, error)) (Artifact[U], error) {
	u, err := f(a.content)
	if err != nil {
		return Artifact[U]{}, fmt.Errorf("artifact: map: %w", err)
	}
	return New(u)
}
