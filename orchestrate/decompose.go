package orchestrate

import (
	"fmt"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/compose"
	"github.com/latticeforge/kernel/construct"
)

// DecompositionError reports why a Specification could not be decomposed.
type DecompositionError struct {
	Detail string
}

func (e *DecompositionError) Error() string {
	return "orchestrate: decomposition failed: " + e.Detail
}

// ErrRecursionDepthExceeded is returned when decomposition recurses past
// a Decomposer's configured max depth.
var ErrRecursionDepthExceeded = &DecompositionError{Detail: "recursion depth exceeded"}

// Decomposer breaks a Specification into a dependency-ordered task list,
// tagging every task with the composition strategy its (artifact_type,
// goal) pair resolves to.
type Decomposer struct {
	Registry *compose.Registry
	MaxDepth int
}

// NewDecomposer returns a decomposer bound to registry with the default
// max depth of 5.
func NewDecomposer(registry *compose.Registry) *Decomposer {
	return &Decomposer{Registry: registry, MaxDepth: 5}
}

// WithMaxDepth overrides the default recursion depth limit.
func (d *Decomposer) WithMaxDepth(depth int) *Decomposer {
	d.MaxDepth = depth
	return d
}

// Decompose breaks spec into tasks per its goal's decomposition rule.
func (d *Decomposer) Decompose(spec Specification) ([]Task, error) {
	return d.decomposeRecursive(spec, 0)
}

func (d *Decomposer) decomposeRecursive(spec Specification, depth int) ([]Task, error) {
	if depth > d.MaxDepth {
		return nil, ErrRecursionDepthExceeded
	}

	var tasks []Task
	switch spec.Goal {
	case CreateNew:
		tasks = d.decomposeCreate(spec)
	case ModifyExisting:
		tasks = d.decomposeModify(spec)
	case Refactor:
		tasks = d.decomposeRefactor(spec)
	case Analyze:
		tasks = d.decomposeAnalyze(spec)
	case Optimize:
		tasks = d.decomposeOptimize(spec)
	default:
		return nil, &DecompositionError{Detail: fmt.Sprintf("unknown goal %v", spec.Goal)}
	}

	strategyName := d.Registry.Resolve(spec.ArtifactType, spec.Goal.String(), spec.StrategyHint())
	for i := range tasks {
		tasks[i] = tasks[i].WithDirective("composition_strategy", construct.StringDirective(strategyName))
	}
	return tasks, nil
}

func (d *Decomposer) decomposeCreate(spec Specification) []Task {
	var tasks []Task

	design := NewTask("architect", fmt.Sprintf("Design %s structure", spec.ArtifactType), spec.TargetPath).
		WithAutonomy(capability.L3).
		WithDirective("output_format", construct.StringDirective("design_doc"))
	tasks = append(tasks, design)

	symbols := identifySymbols(spec)
	for _, sym := range symbols {
		impl := NewTask("implementer", fmt.Sprintf("Implement %s", sym), spec.TargetPath.Child(sym)).
			WithAutonomy(capability.L4).
			DependsOn(design.ID)
		tasks = append(tasks, impl)
	}

	if len(symbols) > 0 {
		test := NewTask("tester", "Generate tests", spec.TargetPath.Child("tests")).
			WithAutonomy(capability.L3).
			WithDirective("coverage_target", construct.IntDirective(90))
		for _, t := range tasks[1:] {
			test = test.DependsOn(t.ID)
		}
		tasks = append(tasks, test)
	}

	return tasks
}

func (d *Decomposer) decomposeModify(spec Specification) []Task {
	analysis := NewTask("analyzer", fmt.Sprintf("Analyze current %s implementation", spec.ArtifactType), spec.TargetPath).
		WithAutonomy(capability.L3)

	modify := NewTask("modifier", fmt.Sprintf("Apply modifications to %s", spec.TargetPath), spec.TargetPath).
		WithAutonomy(capability.L4).
		DependsOn(analysis.ID)

	verify := NewTask("verifier", "Verify modifications", spec.TargetPath).
		WithAutonomy(capability.L3).
		DependsOn(modify.ID)

	return []Task{analysis, modify, verify}
}

func (d *Decomposer) decomposeRefactor(spec Specification) []Task {
	analysis := NewTask("analyzer", "Analyze refactoring impact", spec.TargetPath).
		WithAutonomy(capability.L3)

	adapter := NewTask("architect", "Design compatibility adapter", spec.TargetPath.Child("adapter")).
		WithAutonomy(capability.L3).
		DependsOn(analysis.ID)

	refactor := NewTask("refactorer", fmt.Sprintf("Refactor %s", spec.TargetPath), spec.TargetPath).
		WithAutonomy(capability.L4).
		DependsOn(adapter.ID)

	// Migration fans out across dependent call sites; the decomposer only
	// marks the expansion with a directive. The orchestrator's graph
	// lowering turns it into a single node and does not fan it out.
	migrate := NewTask("migrator", "Update dependent code", spec.TargetPath).
		WithAutonomy(capability.L3).
		WithDirective("expansion_type", construct.StringDirective("parallel")).
		DependsOn(refactor.ID)

	return []Task{analysis, adapter, refactor, migrate}
}

func (d *Decomposer) decomposeAnalyze(spec Specification) []Task {
	analysis := NewTask("analyzer", fmt.Sprintf("Analyze %s", spec.TargetPath), spec.TargetPath).
		WithAutonomy(capability.L3).
		WithDirective("depth", construct.StringDirective("comprehensive"))
	return []Task{analysis}
}

func (d *Decomposer) decomposeOptimize(spec Specification) []Task {
	benchmark := NewTask("benchmarker", "Benchmark current performance", spec.TargetPath).
		WithAutonomy(capability.L3)

	identify := NewTask("optimizer", "Identify optimization opportunities", spec.TargetPath).
		WithAutonomy(capability.L3).
		DependsOn(benchmark.ID)

	apply := NewTask("optimizer", fmt.Sprintf("Apply optimizations to %s", spec.TargetPath), spec.TargetPath).
		WithAutonomy(capability.L4).
		DependsOn(identify.ID)

	verify := NewTask("benchmarker", "Verify performance improvements", spec.TargetPath).
		WithAutonomy(capability.L3).
		DependsOn(apply.ID)

	return []Task{benchmark, identify, apply, verify}
}

// identifySymbols is a placeholder for the symbol-extraction step a real
// deployment would drive from an LLM pass over spec.AcceptanceCriteria and
// the existing symbol index; here it returns a fixed set keyed by
// artifact type.
func identifySymbols(spec Specification) []string {
	switch spec.ArtifactType {
	case "code":
		return []string{"main", "helper"}
	case "config":
		return []string{"settings"}
	case "spec":
		return []string{"overview", "details"}
	default:
		return []string{"item"}
	}
}
