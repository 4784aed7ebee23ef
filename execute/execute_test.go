package execute_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/execute"
)

func genKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func basicSpec(autonomy capability.AutonomyLevel) construct.NodeSpec {
	return construct.NodeSpec{
		Directives:      construct.NewDirectiveSet(),
		AutonomyCeiling: autonomy,
		ResourceBounds: capability.ResourceCaps{
			CPUMillis: 1000, MemoryBytes: 1 << 20, TokenLimit: 1000, IterationCap: 100,
		},
	}
}

func buildGraph(t *testing.T, priv ed25519.PrivateKey, autonomy capability.AutonomyLevel) construct.ValidatedGraph {
	t.Helper()
	b := construct.NewGraphBuilder(construct.ProductionDAG)
	n1 := b.AddNode(basicSpec(autonomy))
	n2 := b.AddNode(basicSpec(autonomy))
	require.NoError(t, b.AddEdge(n1, n2))
	graph, err := b.Validate(context.Background(), priv)
	require.NoError(t, err)
	return graph
}

func TestExecuteRunsAllNodesInProcess(t *testing.T) {
	pub, priv := genKeys(t)
	graph := buildGraph(t, priv, capability.L1)

	inProc := execute.NodeExecutorFunc(func(ctx context.Context, nodeID construct.NodeID, token capability.Token) (execute.NodeResult, error) {
		return execute.NodeResult{Success: true, Consumed: capability.ResourceCaps{CPUMillis: 10}}, nil
	})

	ex := execute.NewExecutor(pub, inProc, nil)
	summary, err := ex.Execute(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.NodesExecuted)
	assert.Empty(t, summary.NodesFailed)
	assert.Equal(t, uint64(20), summary.ResourceConsumed.CPUMillis)
}

func TestExecuteRejectsTamperedValidationToken(t *testing.T) {
	_, priv := genKeys(t)
	graph := buildGraph(t, priv, capability.L1)

	otherPub, _ := genKeys(t)
	ex := execute.NewExecutor(otherPub, nil, nil)
	_, err := ex.Execute(context.Background(), graph)
	assert.ErrorIs(t, err, execute.ErrGraphValidationTampered)
}

func TestExecuteStopsOnResourceEnforcement(t *testing.T) {
	pub, priv := genKeys(t)
	graph := buildGraph(t, priv, capability.L0)

	inProc := execute.NodeExecutorFunc(func(ctx context.Context, nodeID construct.NodeID, token capability.Token) (execute.NodeResult, error) {
		return execute.NodeResult{Success: true, Consumed: capability.ResourceCaps{CPUMillis: 100000}}, nil
	})

	ex := execute.NewExecutor(pub, inProc, nil)
	summary, err := ex.Execute(context.Background(), graph)
	require.Error(t, err)
	var nerr *execute.NodeExecutionError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "resource_enforcement", nerr.Stage)
	assert.True(t, nerr.Recoverable())
	assert.Len(t, summary.NodesFailed, 1)
}

func TestExecuteFailsWithoutInProcessExecutorConfigured(t *testing.T) {
	pub, priv := genKeys(t)
	graph := buildGraph(t, priv, capability.L0)

	ex := execute.NewExecutor(pub, nil, nil)
	_, err := ex.Execute(context.Background(), graph)
	require.Error(t, err)
	var nerr *execute.NodeExecutionError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "dispatch", nerr.Stage)
}

func TestResourceContainerEnforcesBound(t *testing.T) {
	c := execute.NewResourceContainer(capability.ResourceCaps{CPUMillis: 100})
	require.NoError(t, c.CheckCPU(50))
	err := c.CheckCPU(60)
	require.Error(t, err)
	var rerr *execute.ResourceEnforcementTriggered
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, execute.EnforceCPU, rerr.Kind)
}
