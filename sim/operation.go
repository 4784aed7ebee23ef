package sim

import (
	"math/rand"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
)

// OperationKind discriminates the concrete shape of a SimulatedOperation.
type OperationKind int

const (
	OpConstructionStart OperationKind = iota
	OpConstructionAddNode
	OpConstructionAddEdge
	OpConstructionValidate
	OpExecutionRun
)

func (k OperationKind) String() string {
	switch k {
	case OpConstructionStart:
		return "construction_start"
	case OpConstructionAddNode:
		return "construction_add_node"
	case OpConstructionAddEdge:
		return "construction_add_edge"
	case OpConstructionValidate:
		return "construction_validate"
	default:
		return "execution_run"
	}
}

// SimulatedOperation is one generated step of either the construction or
// the execution phase. Only the fields relevant to Kind are meaningful.
type SimulatedOperation struct {
	Kind       OperationKind
	GraphType  construct.GraphType
	NodeSpec   construct.NodeSpec
	BuilderIdx int
	EdgeFrom   int
	EdgeTo     int
	GraphIdx   int
}

// ExpectedResult classifies what a generated operation should do when run.
type ExpectedResult int

const (
	ShouldSucceed ExpectedResult = iota
	ShouldFailConstruction
	ShouldFailExecution
)

func (r ExpectedResult) String() string {
	switch r {
	case ShouldSucceed:
		return "should_succeed"
	case ShouldFailConstruction:
		return "should_fail_construction"
	default:
		return "should_fail_execution"
	}
}

// generateConstructionOperation picks the next construction-phase
// operation to apply, biased toward building up a nonempty builder stack
// before validating it.
func generateConstructionOperation(rng *rand.Rand, builders []*builderState) SimulatedOperation {
	var choice int
	if len(builders) == 0 {
		choice = rng.Intn(2) // start or add-node have nothing to act on yet
	} else {
		choice = rng.Intn(4)
	}

	switch choice {
	case 0:
		gt := construct.ProductionDAG
		if rng.Float64() >= 0.7 {
			gt = construct.SandboxGraph
		}
		return SimulatedOperation{Kind: OpConstructionStart, GraphType: gt}
	case 1:
		return SimulatedOperation{Kind: OpConstructionAddNode, NodeSpec: generateRandomNodeSpec(rng)}
	case 2:
		idx := len(builders) - 1
		nodeCount := len(builders[idx].nodeIDs)
		if nodeCount >= 2 {
			return SimulatedOperation{
				Kind:       OpConstructionAddEdge,
				BuilderIdx: idx,
				EdgeFrom:   rng.Intn(nodeCount),
				EdgeTo:     rng.Intn(nodeCount),
			}
		}
		return SimulatedOperation{Kind: OpConstructionValidate}
	default:
		return SimulatedOperation{Kind: OpConstructionValidate}
	}
}

var autonomyLevels = []capability.AutonomyLevel{
	capability.L0, capability.L1, capability.L2, capability.L3, capability.L4, capability.L5,
}

func generateRandomNodeSpec(rng *rand.Rand) construct.NodeSpec {
	directives := construct.NewDirectiveSet().Set("test", construct.BoolDirective(rng.Float64() < 0.5))

	return construct.NodeSpec{
		Directives:      directives,
		AutonomyCeiling: autonomyLevels[rng.Intn(len(autonomyLevels))],
		ResourceBounds: capability.ResourceCaps{
			CPUMillis:    uint64(100 + rng.Intn(9900)),
			MemoryBytes:  uint64(1024 + rng.Intn(1024*1024*100-1024)),
			TokenLimit:   uint64(10 + rng.Intn(9990)),
			IterationCap: uint64(1 + rng.Intn(999)),
		},
	}
}
