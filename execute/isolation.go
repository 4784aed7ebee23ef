package execute

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
)

// NodeExecutor runs a single node's in-process work. It is given the
// node's capability token (already integrity-checked by the caller) and
// returns the measured outcome. Implementations are supplied by whatever
// owns the actual agent logic; this package only dispatches and enforces.
type NodeExecutor interface {
	ExecuteNode(ctx context.Context, nodeID construct.NodeID, token capability.Token) (NodeResult, error)
}

// NodeExecutorFunc adapts a function to NodeExecutor.
type NodeExecutorFunc func(ctx context.Context, nodeID construct.NodeID, token capability.Token) (NodeResult, error)

func (f NodeExecutorFunc) ExecuteNode(ctx context.Context, nodeID construct.NodeID, token capability.Token) (NodeResult, error) {
	return f(ctx, nodeID, token)
}

// NodeResult is what dispatching a node, in-process or subprocess,
// measures about the attempt.
type NodeResult struct {
	Success      bool
	ElapsedMs    int64
	Consumed     capability.ResourceCaps
	ExitedStatus int
}

// SubprocessCommandFactory builds the *exec.Cmd for an L3-L5 node. The
// factory must use exec.CommandContext so the executor can cancel it;
// Env, Stdin, Stdout and Stderr are overwritten by runSubprocess and
// should not be set by the factory.
type SubprocessCommandFactory func(ctx context.Context, nodeID construct.NodeID, token capability.Token) *exec.Cmd

// dispatch runs one node according to its declared autonomy ceiling:
// L0-L2 in-process through inProc, L3-L5 as an isolated subprocess built
// by subprocFactory with a cleared environment and piped stdio.
func dispatch(
	ctx context.Context,
	nodeID construct.NodeID,
	spec construct.NodeSpec,
	token capability.Token,
	inProc NodeExecutor,
	subprocFactory SubprocessCommandFactory,
) (NodeResult, error) {
	if spec.AutonomyCeiling.InProcess() {
		return runInProcess(ctx, nodeID, token, inProc)
	}
	return runSubprocess(ctx, nodeID, token, subprocFactory)
}

// runInProcess calls inProc in a goroutine, recovering a panic into an
// error so one misbehaving node can't take the executor down with it.
func runInProcess(ctx context.Context, nodeID construct.NodeID, token capability.Token, inProc NodeExecutor) (result NodeResult, err error) {
	if inProc == nil {
		return NodeResult{}, &NodeExecutionError{Node: nodeID, Stage: "dispatch", Err: errNoInProcessExecutor}
	}

	start := time.Now()
	type outcome struct {
		result NodeResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &NodeExecutionError{Node: nodeID, Stage: "panic", Err: recoveredPanic{r}}}
			}
		}()
		res, execErr := inProc.ExecuteNode(ctx, nodeID, token)
		done <- outcome{result: res, err: execErr}
	}()

	select {
	case <-ctx.Done():
		return NodeResult{}, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return NodeResult{}, o.err
		}
		o.result.ElapsedMs = time.Since(start).Milliseconds()
		return o.result, nil
	}
}

// runSubprocess isolates L3-L5 nodes in a child process with a cleared
// environment, no stdin, and stdout/stderr piped and discarded, killed on
// context cancellation.
func runSubprocess(ctx context.Context, nodeID construct.NodeID, token capability.Token, factory SubprocessCommandFactory) (NodeResult, error) {
	if factory == nil {
		return NodeResult{}, &NodeExecutionError{Node: nodeID, Stage: "dispatch", Err: errNoSubprocessFactory}
	}

	cmd := factory(ctx, nodeID, token)
	cmd.Env = []string{}
	cmd.Stdin = nil
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	result := NodeResult{ElapsedMs: elapsed}
	if err == nil {
		result.Success = true
		return result, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitedStatus = exitErr.ExitCode()
		return result, nil
	}
	return result, &NodeExecutionError{Node: nodeID, Stage: "subprocess", Err: err}
}

type recoveredPanic struct{ v any }

func (r recoveredPanic) Error() string {
	return fmt.Sprintf("recovered panic in node executor: %v", r.v)
}
