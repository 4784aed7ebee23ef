package orchestrate

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/symbol"
)

func TestConstructEscalatesSelfLoopWhenAutoApplyFixesDisabled(t *testing.T) {
	_, priv := ed25519MustGenerate(t)
	orch := NewOrchestrator(NewDecomposer(nil), NewAgentPool(1), priv)

	task := NewTask("implementer", "write the thing", symbol.Root)
	task.Dependencies = []TaskID{task.ID}

	_, _, _, err := orch.construct(context.Background(), []Task{task})
	require.Error(t, err)
	var hierr *RequiresHumanInterventionError
	require.ErrorAs(t, err, &hierr)
}

func TestConstructAutoAppliesSelfLoopFix(t *testing.T) {
	_, priv := ed25519MustGenerate(t)
	orch := NewOrchestrator(NewDecomposer(nil), NewAgentPool(1), priv)
	orch.AutoApplyFixes = true

	task := NewTask("implementer", "write the thing", symbol.Root)
	task.Dependencies = []TaskID{task.ID}

	graph, taskOf, fixedTasks, err := orch.construct(context.Background(), []Task{task})
	require.NoError(t, err)
	assert.Empty(t, fixedTasks[0].Dependencies)
	assert.Len(t, graph.NodeIDs(), 1)
	assert.Len(t, taskOf, 1)
}

func TestConstructAutoApplyFixesDoesNotFireForNonSelfLoopErrors(t *testing.T) {
	_, priv := ed25519MustGenerate(t)
	orch := NewOrchestrator(NewDecomposer(nil), NewAgentPool(1), priv)
	orch.AutoApplyFixes = true
	orch.SystemLimits.MaxResources.CPUMillis = 1

	task := NewTask("implementer", "write the thing", symbol.Root)

	_, _, _, err := orch.construct(context.Background(), []Task{task})
	require.Error(t, err)
	var hierr *RequiresHumanInterventionError
	require.ErrorAs(t, err, &hierr)
}

func ed25519MustGenerate(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}
