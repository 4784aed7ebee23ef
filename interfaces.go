package kernel

import (
	"context"

	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/execute"
)

// ConstructionHook receives a notification when a caller reports a sealed
// ValidatedGraph through Kernel.RecordValidation. Multiple hooks may be
// registered via WithConstructionHook. Hooks run synchronously inside
// RecordValidation; GraphBuilder.Validate and Orchestrator.Run do not call
// them. A hook returning an error is logged but never unwinds the
// construction that already succeeded.
type ConstructionHook interface {
	OnGraphValidated(ctx context.Context, token construct.ValidationToken) error
}

// ExecutionHook receives a notification when a caller reports a finished
// run through Kernel.RecordExecution. Multiple hooks may be registered via
// WithExecutionHook.
type ExecutionHook interface {
	OnExecutionComplete(ctx context.Context, graphID construct.GraphID, summary execute.ExecutionSummary) error
}

// ConstructionHookFunc adapts a function to ConstructionHook.
type ConstructionHookFunc func(ctx context.Context, token construct.ValidationToken) error

func (f ConstructionHookFunc) OnGraphValidated(ctx context.Context, token construct.ValidationToken) error {
	return f(ctx, token)
}

// ExecutionHookFunc adapts a function to ExecutionHook.
type ExecutionHookFunc func(ctx context.Context, graphID construct.GraphID, summary execute.ExecutionSummary) error

func (f ExecutionHookFunc) OnExecutionComplete(ctx context.Context, graphID construct.GraphID, summary execute.ExecutionSummary) error {
	return f(ctx, graphID, summary)
}
