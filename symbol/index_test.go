package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/hash"
	"github.com/latticeforge/kernel/symbol"
)

func ref(path string, parent hash.Hash) symbol.Ref {
	return symbol.Ref{Path: symbol.MustParse(path), ParentHash: parent}
}

func TestInsertAndGetExact(t *testing.T) {
	idx := symbol.New()
	parent := hash.Compute([]byte("artifact-1"))

	require.NoError(t, idx.Insert(ref("api.auth.login", parent), symbol.Metadata{Kind: symbol.KindFunction}))

	entry, ok := idx.GetExact(symbol.MustParse("api.auth.login"))
	require.True(t, ok)
	assert.Equal(t, symbol.KindFunction, entry.Metadata.Kind)
}

func TestInsertDuplicateFails(t *testing.T) {
	idx := symbol.New()
	parent := hash.Compute([]byte("a"))
	require.NoError(t, idx.Insert(ref("api.auth", parent), symbol.Metadata{}))

	err := idx.Insert(ref("api.auth", parent), symbol.Metadata{})
	var dup *symbol.DuplicateSymbolError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, 1, idx.Len())
}

func TestInsertOverlappingClaimsFails(t *testing.T) {
	idx := symbol.New()
	parent := hash.Compute([]byte("a"))
	require.NoError(t, idx.Insert(ref("api.auth", parent), symbol.Metadata{}))

	err := idx.Insert(ref("api.auth.login", parent), symbol.Metadata{})
	var overlap *symbol.OverlappingClaimsError
	assert.ErrorAs(t, err, &overlap)

	err = idx.Insert(ref("api", parent), symbol.Metadata{})
	assert.ErrorAs(t, err, &overlap)

	// Failed inserts must not modify the index.
	assert.Equal(t, 1, idx.Len())
}

func TestGetDescendantsAndChildren(t *testing.T) {
	idx := symbol.New()
	parent := hash.Compute([]byte("a"))
	require.NoError(t, idx.Insert(ref("api.auth.login", parent), symbol.Metadata{}))
	require.NoError(t, idx.Insert(ref("api.auth.logout", parent), symbol.Metadata{}))
	require.NoError(t, idx.Insert(ref("api.billing.charge", parent), symbol.Metadata{}))

	descendants := idx.GetDescendants(symbol.MustParse("api.auth"))
	assert.Len(t, descendants, 2)

	children := idx.GetChildren(symbol.MustParse("api"))
	assert.Empty(t, children) // "api" has no direct child symbols, only grandchildren
}

func TestFindByName(t *testing.T) {
	idx := symbol.New()
	parent := hash.Compute([]byte("a"))
	require.NoError(t, idx.Insert(ref("api.auth.login", parent), symbol.Metadata{}))
	require.NoError(t, idx.Insert(ref("admin.login", parent), symbol.Metadata{}))

	found := idx.FindByName("login")
	assert.Len(t, found, 2)
}

func TestRemoveByParentInvalidatesAll(t *testing.T) {
	idx := symbol.New()
	parentOld := hash.Compute([]byte("v1"))
	require.NoError(t, idx.Insert(ref("api.auth.login", parentOld), symbol.Metadata{}))
	require.NoError(t, idx.Insert(ref("api.auth.logout", parentOld), symbol.Metadata{}))

	n := idx.RemoveByParent(parentOld)
	assert.Equal(t, 2, n)
	assert.True(t, idx.IsEmpty())

	// Re-insertion under a new parent hash succeeds (old overlap is gone).
	parentNew := hash.Compute([]byte("v2"))
	require.NoError(t, idx.Insert(ref("api.auth.login", parentNew), symbol.Metadata{}))
}

func TestHasAnyOverlap(t *testing.T) {
	idx := symbol.New()
	parent := hash.Compute([]byte("a"))
	require.NoError(t, idx.Insert(ref("auth.login", parent), symbol.Metadata{}))

	assert.True(t, idx.HasAnyOverlap(symbol.MustParse("auth")))
	assert.True(t, idx.HasAnyOverlap(symbol.MustParse("auth.login.v2")))
	assert.False(t, idx.HasAnyOverlap(symbol.MustParse("billing")))
}

func TestFindConflicts(t *testing.T) {
	idx := symbol.New()
	parent := hash.Compute([]byte("a"))
	require.NoError(t, idx.Insert(ref("api", parent), symbol.Metadata{}))

	conflicts := idx.FindConflicts(symbol.MustParse("api.auth.login"))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "api", conflicts[0].Ref.Path.String())
}
