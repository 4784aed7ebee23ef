package capability_test

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/hash"
)

func genKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func TestIssueAndVerify(t *testing.T) {
	pub, priv := genKeys(t)
	nodeID := uuid.New()
	now := time.Now()

	tok := capability.NewConstructionToken(priv, nodeID, capability.L2,
		capability.ResourceCaps{CPUMillis: 1000, MemoryBytes: 1 << 20, TokenLimit: 4096, IterationCap: 10},
		hash.Compute([]byte("directives")), now)

	assert.True(t, tok.Verify(pub))
	assert.False(t, tok.IsExpired(now.Add(time.Minute)))
	assert.True(t, tok.IsExpired(now.Add(2*time.Hour)))
	assert.True(t, tok.IsBoundTo("execute"))
	assert.False(t, tok.IsBoundTo("deploy"))
}

func TestVerifyFailsOnTamper(t *testing.T) {
	pub, priv := genKeys(t)
	nodeID := uuid.New()
	now := time.Now()

	tok := capability.Issue(priv, nodeID, capability.L4, capability.ResourceCaps{}, hash.Zero, "execute", now, time.Time{})
	tok.Resources.CPUMillis = 99999
	assert.False(t, tok.Verify(pub))
}

func TestUnboundTokenAuthorizesAnyOperation(t *testing.T) {
	_, priv := genKeys(t)
	nodeID := uuid.New()
	now := time.Now()
	tok := capability.Issue(priv, nodeID, capability.L0, capability.ResourceCaps{}, hash.Zero, "", now, time.Time{})
	assert.True(t, tok.IsBoundTo("execute"))
	assert.True(t, tok.IsBoundTo("anything"))
}

func TestNeverExpiresWhenExpiresAtZero(t *testing.T) {
	_, priv := genKeys(t)
	tok := capability.Issue(priv, uuid.New(), capability.L0, capability.ResourceCaps{}, hash.Zero, "execute", time.Now(), time.Time{})
	assert.False(t, tok.IsExpired(time.Now().Add(100*365*24*time.Hour)))
}

func TestCheckIntegrity(t *testing.T) {
	pub, priv := genKeys(t)
	nodeID := uuid.New()
	otherNode := uuid.New()
	now := time.Now()
	tok := capability.NewConstructionToken(priv, nodeID, capability.L1, capability.ResourceCaps{}, hash.Zero, now)

	require.NoError(t, tok.CheckIntegrity(pub, nodeID, "execute", now))

	err := tok.CheckIntegrity(pub, otherNode, "execute", now)
	assert.ErrorIs(t, err, capability.ErrTokenBindingFailure)

	err = tok.CheckIntegrity(pub, nodeID, "execute", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, capability.ErrTokenExpired)

	_, wrongPriv := genKeys(t)
	bad := capability.NewConstructionToken(wrongPriv, nodeID, capability.L1, capability.ResourceCaps{}, hash.Zero, now)
	err = bad.CheckIntegrity(pub, nodeID, "execute", now)
	assert.ErrorIs(t, err, capability.ErrTokenIntegrityFailure)
}

func TestResourceCapsAddOverflow(t *testing.T) {
	a := capability.ResourceCaps{CPUMillis: ^uint64(0)}
	b := capability.ResourceCaps{CPUMillis: 1}
	_, ok := a.Add(b)
	assert.False(t, ok)

	c := capability.ResourceCaps{CPUMillis: 10, MemoryBytes: 20}
	d := capability.ResourceCaps{CPUMillis: 5, MemoryBytes: 5}
	sum, ok := c.Add(d)
	assert.True(t, ok)
	assert.Equal(t, uint64(15), sum.CPUMillis)
	assert.Equal(t, uint64(25), sum.MemoryBytes)
}

func TestAutonomyLevelClassification(t *testing.T) {
	assert.True(t, capability.L0.RequiresHumanApproval())
	assert.False(t, capability.L4.RequiresHumanApproval())
	assert.True(t, capability.L5.CanAutoMerge())
	assert.False(t, capability.L2.CanAutoMerge())
}
