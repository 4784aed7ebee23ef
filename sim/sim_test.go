package sim_test

import (
	"context"
	"crypto/ed25519"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/execute"
	"github.com/latticeforge/kernel/sim"
)

func TestRunSimulatorDefaultConfigProducesSaneReport(t *testing.T) {
	report := sim.RunSimulator(sim.DefaultSimulatorConfig())

	assert.Equal(t, uint64(42), report.Config.Seed)
	assert.True(t, report.Stats.ConstructionsAttempted > 0)
	assert.True(t, report.Stats.ConstructionsSucceeded+report.Stats.ConstructionsRejected <= report.Stats.ConstructionsAttempted)
	assert.NotEmpty(t, report.GenerateText())
}

func TestRunSimulatorSmallScaleReportsNoViolations(t *testing.T) {
	cfg := sim.SimulatorConfig{
		Seed:                    7,
		TotalConstructions:      200,
		TotalExecutions:         200,
		StopOnFirstViolation:    false,
		VerifyZeroRuntimePolicy: true,
	}

	report := sim.RunSimulator(cfg)

	require.True(t, report.Passed(), "unexpected violations: %+v", report.Violations)
	assert.False(t, report.ZeroRuntimePolicyViolated())
	assert.Equal(t, uint64(0), report.Stats.RuntimePolicyValidationCount)
}

func TestPolicyValidationDoesNotAdvanceDuringExecution(t *testing.T) {
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

	before := construct.PolicyValidationCalls.Load()

	executor := execute.NewExecutor(pub, execute.NodeExecutorFunc(func(_ context.Context, _ construct.NodeID, _ capability.Token) (execute.NodeResult, error) {
		return execute.NodeResult{Success: true}, nil
	}), nil)

	_, err = executor.Execute(context.Background(), graph)
	require.NoError(t, err)

	after := construct.PolicyValidationCalls.Load()
	assert.Equal(t, before, after, "execution must never call validatePolicy")
}

func TestClassifyConstructionPredictsCycleRejection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_ = rng // operation generation isn't needed directly; exercise the GraphBuilder checks classifyConstruction relies on instead

	builder := construct.NewGraphBuilder(construct.ProductionDAG)
	a := builder.AddNode(construct.NodeSpec{AutonomyCeiling: capability.L0})
	b := builder.AddNode(construct.NodeSpec{AutonomyCeiling: capability.L0})

	require.NoError(t, builder.AddEdge(a, b))
	assert.True(t, builder.WouldCreateCycle(b, a), "b->a would close a cycle after a->b")

	err := builder.AddEdge(b, a)
	assert.Error(t, err)
}

func TestExceedsResourceLimitsViaLargeConstructionRun(t *testing.T) {
	cfg := sim.SimulatorConfig{
		Seed:                    99,
		TotalConstructions:      5000,
		TotalExecutions:         0,
		StopOnFirstViolation:    false,
		VerifyZeroRuntimePolicy: false,
	}

	report := sim.RunSimulator(cfg)

	require.True(t, report.Passed(), "unexpected violations: %+v", report.Violations)
	assert.True(t, report.Stats.ConstructionsRejected > 0 || report.Stats.ConstructionsSucceeded > 0)
}
