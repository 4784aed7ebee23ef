package hash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/hash"
)

func TestComputeIsDeterministic(t *testing.T) {
	a := hash.Compute([]byte("artifact content"))
	b := hash.Compute([]byte("artifact content"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, hash.Zero, a)
}

func TestZeroNeverEqualsNonEmptyContent(t *testing.T) {
	h := hash.Compute([]byte("x"))
	assert.False(t, h.IsZero())
	assert.True(t, hash.Zero.IsZero())
}

func TestHexRoundTrip(t *testing.T) {
	h := hash.Compute([]byte("round trip"))
	s := h.Hex()
	parsed, err := hash.FromHex(s)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
	assert.Equal(t, s, parsed.Hex())
}

func TestFromHexRejectsWrongLength(t *testing.T) {
	_, err := hash.FromHex("abcd")
	assert.Error(t, err)
}

func TestShortIsPrefixOfHex(t *testing.T) {
	h := hash.Compute([]byte("short form"))
	assert.Equal(t, h.Hex()[:8], h.Short())
}

func TestCompareOrdering(t *testing.T) {
	zeros63 := ""
	for i := 0; i < 63; i++ {
		zeros63 += "0"
	}
	a, err := hash.FromHex(zeros63 + "1")
	require.NoError(t, err)
	b, err := hash.FromHex(zeros63 + "2")
	require.NoError(t, err)
	assert.True(t, a.Less(b))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
}

func TestTextMarshalRoundTrip(t *testing.T) {
	h := hash.Compute([]byte("text marshal"))
	text, err := h.MarshalText()
	require.NoError(t, err)

	var out hash.Hash
	require.NoError(t, out.UnmarshalText(text))
	assert.Equal(t, h, out)
}
