package symbol

import (
	"github.com/latticeforge/kernel/hash"
)

// Kind classifies what an indexed symbol denotes.
type Kind int

const (
	KindUnknown Kind = iota
	KindFunction
	KindType
	KindVariable
	KindModule
	KindConfig
	KindSpec
)

// Visibility classifies who may reference a symbol.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityInternal
	VisibilityRestricted
)

// Metadata records descriptive information about an indexed symbol.
type Metadata struct {
	Kind           Kind
	Visibility     Visibility
	SourceLocation string
	Attributes     map[string]string
}

// Ref identifies a symbol within a specific revision of its containing
// artifact. Equality includes ParentHash: a Ref is automatically invalidated
// when its parent artifact mutates, since the hash changes too.
type Ref struct {
	Path       Path
	ParentHash hash.Hash
	Revision   uint64 // optional; 0 means unspecified
}

// Equal reports whether r and o denote the same symbol at the same parent revision.
func (r Ref) Equal(o Ref) bool {
	return r.Path.Equal(o.Path) && r.ParentHash == o.ParentHash && r.Revision == o.Revision
}

// Entry is a symbol reference plus its indexed metadata.
type Entry struct {
	Ref      Ref
	Metadata Metadata
}
