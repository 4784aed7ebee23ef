package sim

import (
	"context"
	"crypto/ed25519"
	"errors"
	"math/rand"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/execute"
)

// noopNodeExecutor reports every dispatched node as an instant, resource-free
// success. The simulator exercises construction and the executor's own
// integrity/enforcement machinery; it has no interest in what a node's
// work actually does.
var noopNodeExecutor = execute.NodeExecutorFunc(func(_ context.Context, _ construct.NodeID, _ capability.Token) (execute.NodeResult, error) {
	return execute.NodeResult{Success: true}, nil
})

// RunSimulator drives config.TotalConstructions construction operations
// followed by config.TotalExecutions execution operations against the
// real construct and execute packages, and reports every mismatch between
// predicted and actual outcome plus whether the zero-runtime-policy
// invariant held.
func RunSimulator(config SimulatorConfig) SimulatorReport {
	rng := rand.New(rand.NewSource(int64(config.Seed)))

	_, signingKey, err := ed25519.GenerateKey(rng)
	if err != nil {
		panic("sim: deterministic key generation failed: " + err.Error())
	}
	verifyingKey := signingKey.Public().(ed25519.PublicKey)

	var (
		stats           SimulatorStats
		violations      []Violation
		builders        []*builderState
		validatedGraphs []construct.ValidatedGraph
	)

	for i := uint64(0); i < config.TotalConstructions; i++ {
		op := generateConstructionOperation(rng, builders)
		expected := classifyConstruction(op, builders)

		builders, validatedGraphs, err = applyConstructionOperation(op, builders, validatedGraphs, signingKey, &stats)

		switch {
		case err == nil && expected != ShouldSucceed:
			violations = append(violations, Violation{
				Kind: ViolationUnexpectedOutcome, Operation: op, Expected: expected,
			})
		case err != nil && expected == ShouldSucceed:
			violations = append(violations, Violation{
				Kind: ViolationUnexpectedOutcome, Operation: op, Expected: expected, ActualError: err.Error(),
			})
		}

		if len(violations) > 0 && config.StopOnFirstViolation {
			break
		}
	}

	policyCallsBefore := construct.PolicyValidationCalls.Load()

	if len(violations) == 0 || !config.StopOnFirstViolation {
		violations = append(violations, runExecutionPhase(rng, config, verifyingKey, validatedGraphs, &stats)...)
	}

	stats.RuntimePolicyValidationCount = construct.PolicyValidationCalls.Load() - policyCallsBefore
	if config.VerifyZeroRuntimePolicy && stats.RuntimePolicyValidationCount > 0 {
		violations = append(violations, Violation{
			Kind: ViolationRuntimePolicyValidationDetected, Count: stats.RuntimePolicyValidationCount,
		})
	}

	return SimulatorReport{
		Config:          config,
		Stats:           stats,
		Violations:      violations,
		ValidatedGraphs: len(validatedGraphs),
	}
}

func runExecutionPhase(rng *rand.Rand, config SimulatorConfig, verifyingKey ed25519.PublicKey, graphs []construct.ValidatedGraph, stats *SimulatorStats) []Violation {
	if len(graphs) == 0 {
		return nil
	}

	var violations []Violation
	executor := execute.NewExecutor(verifyingKey, noopNodeExecutor, nil)
	ctx := context.Background()

	for i := uint64(0); i < config.TotalExecutions; i++ {
		graph := graphs[rng.Intn(len(graphs))]
		stats.ExecutionsAttempted++

		_, err := executor.Execute(ctx, graph)
		if err != nil {
			stats.ExecutionsFailed++

			var nodeErr *execute.NodeExecutionError
			if errors.As(err, &nodeErr) && nodeErr.Stage == "token_integrity" {
				violations = append(violations, Violation{Kind: ViolationTokenIntegrityFailure, ActualError: err.Error()})
			}
			if config.StopOnFirstViolation && len(violations) > 0 {
				break
			}
			continue
		}
		stats.ExecutionsSucceeded++
	}

	return violations
}

// classifyConstruction predicts op's outcome using the same information
// GraphBuilder itself would check, so the simulator's expectations track
// reality instead of a fixed-threshold guess.
func classifyConstruction(op SimulatedOperation, builders []*builderState) ExpectedResult {
	switch op.Kind {
	case OpConstructionAddNode:
		if len(builders) == 0 {
			return ShouldFailConstruction
		}
		return ShouldSucceed
	case OpConstructionAddEdge:
		if op.BuilderIdx < 0 || op.BuilderIdx >= len(builders) {
			return ShouldSucceed
		}
		bs := builders[op.BuilderIdx]
		from, to := bs.nodeIDs[op.EdgeFrom], bs.nodeIDs[op.EdgeTo]
		if from == to {
			return ShouldFailConstruction
		}
		for _, e := range bs.builder.Edges() {
			if e.From == from && e.To == to {
				return ShouldFailConstruction
			}
		}
		if bs.builder.GraphType() == construct.ProductionDAG && bs.builder.WouldCreateCycle(from, to) {
			return ShouldFailConstruction
		}
		return ShouldSucceed
	case OpConstructionValidate:
		if len(builders) == 0 {
			return ShouldFailConstruction
		}
		if builders[len(builders)-1].exceedsResourceLimits() {
			return ShouldFailConstruction
		}
		return ShouldSucceed
	default:
		return ShouldSucceed
	}
}

func applyConstructionOperation(
	op SimulatedOperation,
	builders []*builderState,
	validatedGraphs []construct.ValidatedGraph,
	signingKey ed25519.PrivateKey,
	stats *SimulatorStats,
) ([]*builderState, []construct.ValidatedGraph, error) {
	switch op.Kind {
	case OpConstructionStart:
		builders = append(builders, newBuilderState(op.GraphType))
		return builders, validatedGraphs, nil

	case OpConstructionAddNode:
		if len(builders) == 0 {
			return builders, validatedGraphs, errNoActiveBuilder
		}
		builders[len(builders)-1].addNode(op.NodeSpec)
		return builders, validatedGraphs, nil

	case OpConstructionAddEdge:
		if op.BuilderIdx < 0 || op.BuilderIdx >= len(builders) {
			return builders, validatedGraphs, errNoActiveBuilder
		}
		bs := builders[op.BuilderIdx]
		err := bs.builder.AddEdge(bs.nodeIDs[op.EdgeFrom], bs.nodeIDs[op.EdgeTo])
		return builders, validatedGraphs, err

	case OpConstructionValidate:
		if len(builders) == 0 {
			return builders, validatedGraphs, errNoActiveBuilder
		}
		stats.ConstructionsAttempted++
		last := builders[len(builders)-1]
		builders = builders[:len(builders)-1]

		graph, err := last.builder.Validate(context.Background(), signingKey)
		if err != nil {
			stats.ConstructionsRejected++
			return builders, validatedGraphs, err
		}
		stats.ConstructionsSucceeded++
		return builders, append(validatedGraphs, graph), nil

	default:
		return builders, validatedGraphs, nil
	}
}

var errNoActiveBuilder = errors.New("sim: no active builder for this operation")
