// Package execute implements the execution phase: dispatching each node
// of a sealed ValidatedGraph, checking token integrity at the door, and
// enforcing resource bounds as a node consumes them. It performs
// integrity checks only — no policy, no resource budgeting beyond the
// per-node container enforcement — because every policy decision was
// already made and proven during construction.
package execute

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
)

const boundOperation = "execute"

// defaultMaxConcurrency bounds how many independent nodes of the same
// dependency level dispatch at once when Executor.MaxConcurrency is unset.
const defaultMaxConcurrency = 8

// ExecutionSummary is the executor's report for one full graph run.
type ExecutionSummary struct {
	GraphID          construct.GraphID
	NodesExecuted    int
	ExecutionTimeMs  int64
	ResourceConsumed capability.ResourceCaps
	NodesFailed      []construct.NodeID
}

// Executor runs a ValidatedGraph to completion (or first unrecoverable
// failure). It trusts the graph's own validation token and per-node
// capability tokens rather than re-deciding any of construction's policy
// questions.
type Executor struct {
	VerifyingKey  ed25519.PublicKey
	InProcess     NodeExecutor
	SubprocessCmd SubprocessCommandFactory
	// MaxConcurrency bounds how many nodes of the same dependency level run
	// at once. Zero means defaultMaxConcurrency.
	MaxConcurrency int
	now            func() time.Time
}

// NewExecutor returns an Executor that verifies tokens against
// verifyingKey and dispatches in-process nodes to inProc and subprocess
// nodes via subprocFactory.
func NewExecutor(verifyingKey ed25519.PublicKey, inProc NodeExecutor, subprocFactory SubprocessCommandFactory) *Executor {
	return &Executor{
		VerifyingKey:  verifyingKey,
		InProcess:     inProc,
		SubprocessCmd: subprocFactory,
		now:           time.Now,
	}
}

// Execute walks graph in dependency-level order, dispatching every node
// whose predecessors have already completed concurrently (bounded by
// MaxConcurrency) before moving to the next level. For each node it
// verifies the graph's own validation token once up front, then per node
// retrieves its capability token, checks its integrity (signature, expiry,
// node/operation binding), dispatches to the appropriate isolation level,
// and enforces the node's declared resource bounds against what the
// dispatch reported consuming. The first node-level error in a level
// aborts the run; nodes already in flight in that level still finish.
func (e *Executor) Execute(ctx context.Context, graph construct.ValidatedGraph) (ExecutionSummary, error) {
	now := e.now()
	if !graph.ValidationToken().Verify(e.VerifyingKey) || graph.ValidationToken().GraphID != graph.GraphID() {
		return ExecutionSummary{}, ErrGraphValidationTampered
	}
	if graph.ValidationToken().IsExpired(now) {
		return ExecutionSummary{}, ErrGraphValidationExpired
	}

	summary := ExecutionSummary{GraphID: graph.GraphID()}
	start := time.Now()

	limit := e.MaxConcurrency
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}

	var mu sync.Mutex
	for _, level := range dependencyLevels(graph) {
		group, gctx := errgroup.WithContext(ctx)
		group.SetLimit(limit)

		for _, nodeID := range level {
			nodeID := nodeID
			group.Go(func() error {
				return e.executeNode(gctx, graph, nodeID, now, &mu, &summary)
			})
		}

		if err := group.Wait(); err != nil {
			summary.ExecutionTimeMs = time.Since(start).Milliseconds()
			return summary, err
		}
	}

	summary.ExecutionTimeMs = time.Since(start).Milliseconds()
	return summary, nil
}

// executeNode runs one node and folds its outcome into summary under mu.
func (e *Executor) executeNode(ctx context.Context, graph construct.ValidatedGraph, nodeID construct.NodeID, now time.Time, mu *sync.Mutex, summary *ExecutionSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	spec, ok := graph.Node(nodeID)
	if !ok {
		return nil
	}

	fail := func(stage string, cause error) error {
		mu.Lock()
		summary.NodesFailed = append(summary.NodesFailed, nodeID)
		mu.Unlock()
		return &NodeExecutionError{Node: nodeID, Stage: stage, Err: cause}
	}

	token, ok := graph.NodeToken(nodeID)
	if !ok {
		return fail("token_lookup", ErrGraphValidationTampered)
	}

	if err := token.CheckIntegrity(e.VerifyingKey, nodeID.UUID(), boundOperation, now); err != nil {
		return fail("token_integrity", err)
	}

	result, err := dispatch(ctx, nodeID, spec, token, e.InProcess, e.SubprocessCmd)
	if err != nil {
		mu.Lock()
		summary.NodesFailed = append(summary.NodesFailed, nodeID)
		mu.Unlock()
		return err
	}

	container := NewResourceContainer(spec.ResourceBounds)
	if enforceErr := enforce(container, result.Consumed); enforceErr != nil {
		return fail("resource_enforcement", enforceErr)
	}

	mu.Lock()
	if !result.Success {
		summary.NodesFailed = append(summary.NodesFailed, nodeID)
	}
	summary.NodesExecuted++
	if sum, ok := summary.ResourceConsumed.Add(result.Consumed); ok {
		summary.ResourceConsumed = sum
	}
	mu.Unlock()

	return nil
}

// dependencyLevels groups graph's nodes into Kahn's-algorithm layers: level
// 0 holds every node with no predecessor, level N+1 holds every node whose
// predecessors all lie in levels 0..N. Nodes within a level have no edge
// between them and may run concurrently.
func dependencyLevels(graph construct.ValidatedGraph) [][]construct.NodeID {
	nodeIDs := graph.NodeIDs()
	inDegree := make(map[construct.NodeID]int, len(nodeIDs))
	successors := make(map[construct.NodeID][]construct.NodeID, len(nodeIDs))
	for _, id := range nodeIDs {
		inDegree[id] = 0
	}
	for _, edge := range graph.Edges() {
		inDegree[edge.To]++
		successors[edge.From] = append(successors[edge.From], edge.To)
	}

	var levels [][]construct.NodeID
	remaining := len(nodeIDs)
	for remaining > 0 {
		var level []construct.NodeID
		for _, id := range nodeIDs {
			if inDegree[id] == 0 {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			// A cycle slipped past construction; stop rather than loop
			// forever. The unemitted nodes are simply never dispatched.
			break
		}

		for _, id := range level {
			inDegree[id] = -1 // mark emitted, never selected again
			remaining--
			for _, succ := range successors[id] {
				inDegree[succ]--
			}
		}
		levels = append(levels, level)
	}

	return levels
}

// enforce reports consumed against container in one pass, checking
// whichever primitive is non-zero. A node that under-reports by omission
// (leaving a primitive at its zero value) simply isn't charged for it;
// the container has no way to tell "zero consumed" from "not measured".
func enforce(container *ResourceContainer, consumed capability.ResourceCaps) error {
	if consumed.CPUMillis > 0 {
		if err := container.CheckCPU(consumed.CPUMillis); err != nil {
			return err
		}
	}
	if consumed.MemoryBytes > 0 {
		if err := container.CheckMemory(consumed.MemoryBytes); err != nil {
			return err
		}
	}
	if consumed.TokenLimit > 0 {
		if err := container.CheckTokens(consumed.TokenLimit); err != nil {
			return err
		}
	}
	if consumed.IterationCap > 0 {
		if err := container.CheckIterations(consumed.IterationCap); err != nil {
			return err
		}
	}
	return nil
}
