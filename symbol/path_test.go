package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/symbol"
)

func TestParseEmptyIsRoot(t *testing.T) {
	p, err := symbol.Parse("")
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
	assert.Equal(t, symbol.Root, p)
}

func TestParseRejectsEmptySegment(t *testing.T) {
	_, err := symbol.Parse("a..b")
	assert.Error(t, err)
}

func TestParseRejectsInvalidCharacter(t *testing.T) {
	_, err := symbol.Parse("a.b-c")
	assert.Error(t, err)
}

func TestParseDisplayRoundTrip(t *testing.T) {
	for _, text := range []string{"a", "a.b.c", "api.auth.login"} {
		p, err := symbol.Parse(text)
		require.NoError(t, err)
		assert.Equal(t, text, p.String())
	}
}

func TestKeyUsesSlashes(t *testing.T) {
	p := symbol.MustParse("api.auth.login")
	assert.Equal(t, "api/auth/login", p.Key())
}

func TestParentAndChild(t *testing.T) {
	p := symbol.MustParse("api.auth.login")
	assert.Equal(t, "api.auth", p.Parent().String())
	assert.Equal(t, "api.auth.login.v2", p.Child("v2").String())
	assert.Equal(t, symbol.Root, symbol.Root.Parent())
}

func TestAncestorDescendantOverlap(t *testing.T) {
	ancestor := symbol.MustParse("api")
	descendant := symbol.MustParse("api.auth.login")
	sibling := symbol.MustParse("billing")

	assert.True(t, ancestor.IsAncestorOf(descendant))
	assert.True(t, descendant.IsDescendantOf(ancestor))
	assert.True(t, ancestor.Overlaps(descendant))
	assert.False(t, ancestor.Overlaps(sibling))
	assert.False(t, ancestor.IsAncestorOf(ancestor))
}

func TestCommonPrefix(t *testing.T) {
	a := symbol.MustParse("auth.login.v2")
	b := symbol.MustParse("auth.logout")
	assert.Equal(t, "auth", a.CommonPrefix(b).String())
}

func TestRelativeTo(t *testing.T) {
	ancestor := symbol.MustParse("api")
	p := symbol.MustParse("api.auth.login")
	rel, err := p.RelativeTo(ancestor)
	require.NoError(t, err)
	assert.Equal(t, "auth.login", rel.String())

	_, err = p.RelativeTo(symbol.MustParse("billing"))
	assert.Error(t, err)
}
