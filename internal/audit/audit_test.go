package audit_test

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/execute"
	"github.com/latticeforge/kernel/internal/audit"
)

func sealedGraph(t *testing.T) (construct.ValidatedGraph, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	builder := construct.NewGraphBuilder(construct.ProductionDAG)
	builder.AddNode(construct.NodeSpec{
		AutonomyCeiling: capability.L1,
		ResourceBounds: capability.ResourceCaps{
			CPUMillis:    1000,
			MemoryBytes:  1024,
			TokenLimit:   100,
			IterationCap: 10,
		},
	})

	graph, err := builder.Validate(context.Background(), priv)
	require.NoError(t, err)
	return graph, pub
}

func TestInsertAndReadValidationToken(t *testing.T) {
	db, err := audit.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	graph, _ := sealedGraph(t)
	err = db.InsertValidationToken(context.Background(), graph.ValidationToken())
	assert.NoError(t, err)
}

func TestInsertAndQueryExecutionSummary(t *testing.T) {
	db, err := audit.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	graph, pub := sealedGraph(t)

	executor := execute.NewExecutor(pub, execute.NodeExecutorFunc(func(_ context.Context, _ construct.NodeID, _ capability.Token) (execute.NodeResult, error) {
		return execute.NodeResult{Success: true}, nil
	}), nil)

	summary, err := executor.Execute(context.Background(), graph)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.InsertExecutionSummary(ctx, graph.GraphID(), summary))

	records, err := db.RecentExecutionSummaries(ctx, graph.GraphID(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, summary.NodesExecuted, records[0].NodesExecuted)
	assert.WithinDuration(t, time.Now(), records[0].RecordedAt, 5*time.Second)
}
