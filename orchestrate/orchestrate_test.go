package orchestrate_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/compose"
	"github.com/latticeforge/kernel/orchestrate"
	"github.com/latticeforge/kernel/symbol"
)

func genKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func TestDecomposeCreateNewYieldsDesignImplTest(t *testing.T) {
	d := orchestrate.NewDecomposer(compose.NewRegistry())
	spec := orchestrate.NewSpecification(orchestrate.CreateNew, "code", symbol.MustParse("api.auth")).
		WithCriteria([]string{"Has login function"})

	tasks, err := d.Decompose(spec)
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
	assert.Equal(t, "architect", tasks[0].Role)

	strategy, _ := tasks[0].Directives.GetString("composition_strategy")
	assert.Equal(t, compose.NameSingleWriter, strategy)
}

func TestDecomposeModifyExistingYieldsThreeTasks(t *testing.T) {
	d := orchestrate.NewDecomposer(compose.NewRegistry())
	spec := orchestrate.NewSpecification(orchestrate.ModifyExisting, "config", symbol.MustParse("settings"))

	tasks, err := d.Decompose(spec)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "analyzer", tasks[0].Role)
	assert.Equal(t, "modifier", tasks[1].Role)
	assert.Equal(t, "verifier", tasks[2].Role)
	assert.Equal(t, tasks[0].ID, tasks[1].Dependencies[0])
}

func TestDecomposeRecursionDepthExceeded(t *testing.T) {
	d := orchestrate.NewDecomposer(compose.NewRegistry()).WithMaxDepth(-1)
	spec := orchestrate.NewSpecification(orchestrate.CreateNew, "code", symbol.MustParse("test"))

	_, err := d.Decompose(spec)
	assert.ErrorIs(t, err, orchestrate.ErrRecursionDepthExceeded)
}

func TestOrchestratorEscalatesWhenNoTransportRegistered(t *testing.T) {
	_, priv := genKeys(t)
	decomposer := orchestrate.NewDecomposer(compose.NewRegistry())
	pool := orchestrate.NewAgentPool(10)
	orch := orchestrate.NewOrchestrator(decomposer, pool, priv)

	spec := orchestrate.NewSpecification(orchestrate.ModifyExisting, "config", symbol.MustParse("settings"))

	_, err := orch.Run(context.Background(), spec)
	require.Error(t, err)

	var hierr *orchestrate.RequiresHumanInterventionError
	require.ErrorAs(t, err, &hierr)
	assert.Equal(t, orchestrate.ErrorTypeAgent, hierr.Diagnostic.ErrorType)
	assert.NotEmpty(t, hierr.Diagnostic.Fixes)
}

func TestOrchestratorRunsWhenTransportRegistered(t *testing.T) {
	_, priv := genKeys(t)
	decomposer := orchestrate.NewDecomposer(compose.NewRegistry())
	pool := orchestrate.NewAgentPool(10)
	orch := orchestrate.NewOrchestrator(decomposer, pool, priv)

	ran := make(map[string]bool)
	echo := orchestrate.TransportFunc(func(ctx context.Context, handle *orchestrate.AgentHandle, task orchestrate.Task) (orchestrate.TaskResult, error) {
		ran[task.Role] = true
		return orchestrate.TaskResult{}, nil
	})
	for _, role := range []string{"analyzer", "modifier", "verifier"} {
		orch.RegisterTransport(role, echo)
	}

	spec := orchestrate.NewSpecification(orchestrate.ModifyExisting, "config", symbol.MustParse("settings"))
	report, err := orch.Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Len(t, report.Completed, 3)
	assert.True(t, ran["analyzer"])
	assert.True(t, ran["modifier"])
	assert.True(t, ran["verifier"])
}

func TestAgentPoolExhaustion(t *testing.T) {
	pool := orchestrate.NewAgentPool(1)
	spec := orchestrate.NewAgentSpec("tester")

	h1, err := pool.Acquire(spec)
	require.NoError(t, err)

	_, err = pool.Acquire(spec)
	var pe *orchestrate.PoolExhaustedError
	require.ErrorAs(t, err, &pe)

	pool.Release(h1)
	_, err = pool.Acquire(spec)
	require.NoError(t, err)
}

func TestAgentPoolReusesReleasedHandleByRole(t *testing.T) {
	pool := orchestrate.NewAgentPool(2)
	spec := orchestrate.NewAgentSpec("tester")

	h1, err := pool.Acquire(spec)
	require.NoError(t, err)
	id1 := h1.ID
	pool.Release(h1)

	h2, err := pool.Acquire(spec)
	require.NoError(t, err)
	assert.Equal(t, id1, h2.ID)
}

func TestAgentPoolIssuesVerifiableSessionToken(t *testing.T) {
	pool := orchestrate.NewAgentPool(1)
	spec := orchestrate.NewAgentSpec("tester")

	h, err := pool.Acquire(spec)
	require.NoError(t, err)
	require.NotEmpty(t, h.SessionToken)

	id, role, err := pool.VerifySessionToken(h.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, h.ID, id)
	assert.Equal(t, "tester", role)
}

func TestAgentPoolRejectsSessionTokenFromAnotherPool(t *testing.T) {
	pool := orchestrate.NewAgentPool(1)
	other := orchestrate.NewAgentPool(1)
	spec := orchestrate.NewAgentSpec("tester")

	h, err := pool.Acquire(spec)
	require.NoError(t, err)

	_, _, err = other.VerifySessionToken(h.SessionToken)
	require.ErrorIs(t, err, orchestrate.ErrSessionTokenInvalid)
}

func TestAgentPoolReissuesSessionTokenOnReacquire(t *testing.T) {
	pool := orchestrate.NewAgentPool(1)
	spec := orchestrate.NewAgentSpec("tester")

	h1, err := pool.Acquire(spec)
	require.NoError(t, err)
	first := h1.SessionToken
	pool.Release(h1)

	h2, err := pool.Acquire(spec)
	require.NoError(t, err)
	assert.NotEqual(t, first, h2.SessionToken)
}

func TestAgentPoolAdmissionSecret(t *testing.T) {
	pool := orchestrate.NewAgentPool(1)

	assert.False(t, pool.Admit("whatever"), "no secret configured yet")

	require.NoError(t, pool.SetAdmissionSecret("correct-horse-battery-staple"))
	assert.True(t, pool.Admit("correct-horse-battery-staple"))
	assert.False(t, pool.Admit("wrong-secret"))
}
