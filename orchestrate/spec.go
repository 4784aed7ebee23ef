// Package orchestrate ingests a natural-language intent, decomposes it
// into tasks, lowers the tasks to a construction graph, and drives
// construction and execution — escalating to a human with a diagnostic
// and suggested fixes when any step fails.
package orchestrate

import (
	"github.com/latticeforge/kernel/compose"
	"github.com/latticeforge/kernel/symbol"
)

// Goal is the kind of change a Specification asks for.
type Goal int

const (
	CreateNew Goal = iota
	ModifyExisting
	Refactor
	Analyze
	Optimize
)

func (g Goal) String() string {
	switch g {
	case CreateNew:
		return "create_new"
	case ModifyExisting:
		return "modify_existing"
	case Refactor:
		return "refactor"
	case Analyze:
		return "analyze"
	case Optimize:
		return "optimize"
	default:
		return "unknown"
	}
}

// Specification is the structured form an intent parses into. The intent
// parser itself (natural language in, Specification out) is treated as a
// black box outside this package's scope.
type Specification struct {
	Goal               Goal
	ArtifactType       string
	TargetPath         symbol.Path
	AcceptanceCriteria []string
	Constraints        []string
}

// NewSpecification builds a minimal specification for goal/artifactType/target.
func NewSpecification(goal Goal, artifactType string, target symbol.Path) Specification {
	return Specification{Goal: goal, ArtifactType: artifactType, TargetPath: target}
}

// WithCriteria attaches acceptance criteria, returning the updated value.
func (s Specification) WithCriteria(criteria []string) Specification {
	s.AcceptanceCriteria = criteria
	return s
}

// StrategyHint maps a specification's goal onto the composition-strategy
// hint the decomposer attaches to every task it produces for that goal.
// CreateNew and ModifyExisting carry no hint, so the registry's
// (artifact_type, goal) mapping decides their strategy.
func (s Specification) StrategyHint() compose.StrategyHint {
	switch s.Goal {
	case CreateNew, ModifyExisting:
		return compose.HintNone
	case Refactor:
		return compose.HintOrdered
	case Analyze:
		return compose.HintSafety
	case Optimize:
		return compose.HintParallelism
	default:
		return compose.HintNone
	}
}
