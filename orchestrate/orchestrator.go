package orchestrate

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/latticeforge/kernel/construct"
)

// ErrNoTransport is returned when a task's role has no registered
// AgentTransport to carry it out. This is an agent-layer failure, not a
// construction failure: the graph validated fine, there's simply nothing
// to dispatch the work to.
var ErrNoTransport = errors.New("orchestrate: no transport registered for role")

// AgentTransport runs one task on behalf of an acquired agent handle and
// reports its result. Implementations range from in-process function
// dispatch to an MCP round trip.
type AgentTransport interface {
	RunTask(ctx context.Context, handle *AgentHandle, task Task) (TaskResult, error)
}

// TransportFunc adapts a function to AgentTransport.
type TransportFunc func(ctx context.Context, handle *AgentHandle, task Task) (TaskResult, error)

func (f TransportFunc) RunTask(ctx context.Context, handle *AgentHandle, task Task) (TaskResult, error) {
	return f(ctx, handle, task)
}

// Orchestrator drives a Specification from decomposition through graph
// construction to task execution, escalating to a human whenever a step
// cannot be completed or retried automatically.
type Orchestrator struct {
	Decomposer       *Decomposer
	Pool             *AgentPool
	Transports       map[string]AgentTransport // keyed by Task.Role
	DefaultTransport AgentTransport            // used when a role has no entry in Transports
	SystemLimits     construct.SystemLimits
	SigningKey       ed25519.PrivateKey
	AutoApplyFixes   bool
}

// NewOrchestrator wires a decomposer, agent pool, and signing key into a
// ready-to-run orchestrator with the default system limits.
func NewOrchestrator(decomposer *Decomposer, pool *AgentPool, signingKey ed25519.PrivateKey) *Orchestrator {
	return &Orchestrator{
		Decomposer:   decomposer,
		Pool:         pool,
		Transports:   make(map[string]AgentTransport),
		SystemLimits: construct.DefaultSystemLimits(),
		SigningKey:   signingKey,
	}
}

// RegisterTransport binds role to the transport that carries out tasks
// with that role.
func (o *Orchestrator) RegisterTransport(role string, transport AgentTransport) {
	o.Transports[role] = transport
}

// Report summarizes a completed orchestration run.
type Report struct {
	Tasks     []Task
	Graph     construct.ValidatedGraph
	Completed []TaskID
	Results   map[TaskID]TaskResult
}

// Run decomposes spec, lowers the tasks to a graph, validates it, and
// executes every task in topological order. On decomposition failure it
// returns the raw error (non-retryable-local, no diagnostic to build); on
// construction-validation failure or missing transport it returns
// *RequiresHumanInterventionError with a diagnostic and suggested fixes —
// unless AutoApplyFixes is set and the failure's top suggested fix is
// mechanically auto-applicable, in which case construction is retried
// once against the adjusted tasks before escalating.
func (o *Orchestrator) Run(ctx context.Context, spec Specification) (Report, error) {
	tasks, err := o.Decomposer.Decompose(spec)
	if err != nil {
		return Report{}, err
	}

	graph, taskOf, tasks, err := o.construct(ctx, tasks)
	if err != nil {
		return Report{Tasks: tasks}, err
	}

	report := Report{Tasks: tasks, Graph: graph, Results: make(map[TaskID]TaskResult)}

	for _, nodeID := range graph.TopologicalOrder() {
		task, ok := taskOf[nodeID]
		if !ok {
			continue
		}

		result, runErr := o.runTask(ctx, task)
		if runErr != nil {
			diag := diagnoseAgentError(task, runErr)
			return report, &RequiresHumanInterventionError{Cause: runErr, Diagnostic: diag}
		}

		report.Results[task.ID] = result
		report.Completed = append(report.Completed, task.ID)
	}

	return report, nil
}

func (o *Orchestrator) runTask(ctx context.Context, task Task) (TaskResult, error) {
	transport, ok := o.Transports[task.Role]
	if !ok {
		transport = o.DefaultTransport
	}
	if transport == nil {
		return TaskResult{}, fmt.Errorf("%w: role %q", ErrNoTransport, task.Role)
	}

	handle, err := o.Pool.Acquire(AgentSpecFromTask(task))
	if err != nil {
		return TaskResult{}, err
	}
	defer o.Pool.Release(handle)

	return transport.RunTask(ctx, handle, task)
}

// lower builds a ProductionDAG from tasks (one node per task, one edge
// per dependency) and validates it, returning the node-id-to-task lookup
// execution needs.
func (o *Orchestrator) lower(ctx context.Context, tasks []Task) (construct.ValidatedGraph, map[construct.NodeID]Task, error) {
	builder := construct.NewGraphBuilderWithLimits(construct.ProductionDAG, o.SystemLimits)

	nodeOf := make(map[TaskID]construct.NodeID, len(tasks))
	for _, t := range tasks {
		nodeID := builder.AddNode(construct.NodeSpec{
			Directives:      t.Directives,
			AutonomyCeiling: t.Autonomy,
			ResourceBounds:  t.Resources,
		})
		nodeOf[t.ID] = nodeID
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if err := builder.AddEdge(nodeOf[dep], nodeOf[t.ID]); err != nil {
				// A task depending on itself is reported as the validator's
				// SelfLoop kind, so construct can diagnose and auto-fix it.
				var berr *construct.BuilderError
				if errors.As(err, &berr) && berr.Kind == construct.ErrSelfLoopNotAllowed {
					return construct.ValidatedGraph{}, nil, &construct.ValidationError{Kind: construct.SelfLoop, Node: berr.Node, HasNode: true, Detail: "task depends on itself"}
				}
				return construct.ValidatedGraph{}, nil, err
			}
		}
	}

	graph, err := builder.Validate(ctx, o.SigningKey)
	if err != nil {
		return construct.ValidatedGraph{}, nil, err
	}

	taskOf := make(map[construct.NodeID]Task, len(tasks))
	for _, t := range tasks {
		taskOf[nodeOf[t.ID]] = t
	}
	return graph, taskOf, nil
}

// construct lowers tasks to a validated graph. On a construction
// ValidationError, if o.AutoApplyFixes is set and the error's top
// suggested fix is mechanically auto-applicable, it applies the fix and
// retries lowering once against the adjusted tasks before giving up. The
// returned task slice reflects whatever was actually validated (the
// original tasks, or the fix-adjusted ones on a successful retry), so the
// caller's Report matches what ran.
func (o *Orchestrator) construct(ctx context.Context, tasks []Task) (construct.ValidatedGraph, map[construct.NodeID]Task, []Task, error) {
	graph, taskOf, err := o.lower(ctx, tasks)
	if err == nil {
		return graph, taskOf, tasks, nil
	}

	var verr *construct.ValidationError
	if !errors.As(err, &verr) {
		return construct.ValidatedGraph{}, nil, tasks, err
	}

	diag := diagnoseValidationError(verr)
	if o.AutoApplyFixes {
		if fixed, ok := applyTopSuggestedFix(tasks, verr, diag); ok {
			retryGraph, retryTaskOf, retryErr := o.lower(ctx, fixed)
			if retryErr == nil {
				return retryGraph, retryTaskOf, fixed, nil
			}
			if rverr, ok := retryErr.(*construct.ValidationError); ok {
				diag = diagnoseValidationError(rverr)
			}
			return construct.ValidatedGraph{}, nil, fixed, &RequiresHumanInterventionError{Cause: retryErr, Diagnostic: diag}
		}
	}

	return construct.ValidatedGraph{}, nil, tasks, &RequiresHumanInterventionError{Cause: err, Diagnostic: diag}
}

// applyTopSuggestedFix mechanically applies diag's top suggested fix to
// tasks, if it is both AutoApplicable and something the orchestrator can
// actually carry out. Only SelfLoop qualifies today: a task depending on
// itself is removed from its own Dependencies, which is exactly the edge
// the validator rejected. Every other ValidationError kind's fix (lower
// an autonomy ceiling, shrink resource bounds, attach directives) needs a
// judgment call about the task's intent that the orchestrator has no
// basis for making unattended.
func applyTopSuggestedFix(tasks []Task, verr *construct.ValidationError, diag Diagnostic) ([]Task, bool) {
	if len(diag.Fixes) == 0 || !diag.Fixes[0].AutoApplicable {
		return nil, false
	}
	if verr.Kind != construct.SelfLoop {
		return nil, false
	}

	fixed := make([]Task, len(tasks))
	copy(fixed, tasks)

	applied := false
	for i, t := range fixed {
		deps := t.Dependencies[:0:0]
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				applied = true
				continue
			}
			deps = append(deps, dep)
		}
		fixed[i].Dependencies = deps
	}
	if !applied {
		return nil, false
	}
	return fixed, true
}

func diagnoseValidationError(verr *construct.ValidationError) Diagnostic {
	location := "graph"
	if verr.HasNode {
		location = verr.Node.String()
	}

	var fixes []SuggestedFix
	switch verr.Kind {
	case construct.CycleDetected:
		fixes = []SuggestedFix{{Description: "remove the edge that closes the cycle", Confidence: 0.6}}
	case construct.SelfLoop:
		fixes = []SuggestedFix{{Description: "remove the self-loop edge", Confidence: 0.9, AutoApplicable: true}}
	case construct.AutonomyCeilingExceeded:
		fixes = []SuggestedFix{{Description: "lower the task's autonomy ceiling to the system limit", Confidence: 0.7}}
	case construct.ResourceBoundsExceeded, construct.ResourceBoundsNotProvable:
		fixes = []SuggestedFix{{Description: "reduce the task's declared resource bounds", Confidence: 0.5}}
	case construct.SecurityPipelineIncomplete:
		fixes = []SuggestedFix{{Description: "attach the missing security-pipeline directives", Confidence: 0.4}}
	default:
		fixes = []SuggestedFix{{Description: "inspect the graph structure manually", Confidence: 0.2}}
	}

	return Diagnostic{
		ErrorType: ErrorTypeConstruction,
		Location:  location,
		Context:   verr.Error(),
		Fixes:     fixes,
	}
}

func diagnoseAgentError(task Task, err error) Diagnostic {
	fixes := []SuggestedFix{
		{Description: fmt.Sprintf("register an AgentTransport for role %q", task.Role), Confidence: 0.8},
	}
	return Diagnostic{
		ErrorType: ErrorTypeAgent,
		Location:  task.ID.String(),
		Context:   err.Error(),
		Fixes:     fixes,
	}
}
