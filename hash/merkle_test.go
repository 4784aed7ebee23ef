package hash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/hash"
)

func leaves(n int) []hash.Hash {
	out := make([]hash.Hash, n)
	for i := range out {
		out[i] = hash.Compute([]byte{byte(i)})
	}
	return out
}

func TestEmptyTreeRootIsZero(t *testing.T) {
	tr := hash.NewTree(nil)
	assert.True(t, tr.IsEmpty())
	assert.Equal(t, hash.Zero, tr.Root())
}

func TestSingleLeafRootIsLeaf(t *testing.T) {
	ls := leaves(1)
	tr := hash.NewTree(ls)
	assert.Equal(t, ls[0], tr.Root())
}

func TestRootIsDeterministic(t *testing.T) {
	ls := leaves(5)
	a := hash.NewTree(ls)
	b := hash.NewTree(ls)
	assert.Equal(t, a.Root(), b.Root())
}

func TestAppendMatchesRebuild(t *testing.T) {
	ls := leaves(4)
	incremental := hash.NewTree(ls[:3])
	incremental.Append(ls[3])

	rebuilt := hash.NewTree(ls)
	assert.Equal(t, rebuilt.Root(), incremental.Root())
}

func TestInclusionProofVerifiesForEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 13} {
		ls := leaves(n)
		tr := hash.NewTree(ls)
		root := tr.Root()
		for i := range ls {
			proof, err := tr.Proof(i)
			require.NoError(t, err)
			assert.True(t, proof.Verify(ls[i], i, n, root), "leaf %d of %d failed to verify", i, n)
		}
	}
}

func TestInclusionProofRejectsWrongLeaf(t *testing.T) {
	ls := leaves(4)
	tr := hash.NewTree(ls)
	proof, err := tr.Proof(0)
	require.NoError(t, err)
	assert.False(t, proof.Verify(ls[1], 0, 4, tr.Root()))
}

func TestInclusionProofRejectsWrongRoot(t *testing.T) {
	ls := leaves(4)
	tr := hash.NewTree(ls)
	proof, err := tr.Proof(2)
	require.NoError(t, err)
	assert.False(t, proof.Verify(ls[2], 2, 4, hash.Zero))
}

func TestProofOutOfRange(t *testing.T) {
	tr := hash.NewTree(leaves(3))
	_, err := tr.Proof(10)
	assert.Error(t, err)
	_, err = tr.Proof(-1)
	assert.Error(t, err)
}

func TestOddLevelTieBreakIsStable(t *testing.T) {
	// Three leaves: level 1 pairs (0,1) and duplicates 2 with itself.
	ls := leaves(3)
	tr := hash.NewTree(ls)
	rebuilt := hash.NewTree(ls)
	assert.Equal(t, tr.Root(), rebuilt.Root())
}
