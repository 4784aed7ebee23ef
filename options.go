package kernel

import (
	"log/slog"

	"github.com/latticeforge/kernel/orchestrate"
)

// Option configures a Kernel.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger             *slog.Logger
	version            string
	auditDBPath        string
	agentCommand       string
	agentArgs          []string
	transports         map[string]orchestrate.AgentTransport
	constructionHooks  []ConstructionHook
	executionHooks     []ExecutionHook
	decomposerMaxDepth *int
	poolSize           int
}

// WithLogger sets the structured logger for the Kernel.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithAuditDBPath overrides the audit database path from config
// (KERNEL_AUDIT_DB_PATH env var). Pass ":memory:" for an ephemeral store.
func WithAuditDBPath(path string) Option {
	return func(o *resolvedOptions) { o.auditDBPath = path }
}

// WithAgentCommand overrides the agent subprocess command from config
// (KERNEL_AGENT_COMMAND / KERNEL_AGENT_ARGS env vars). When set, an
// agentproto.MCPTransport running this command is registered as the
// fallback transport for any role with no explicit WithTransport.
func WithAgentCommand(command string, args ...string) Option {
	return func(o *resolvedOptions) { o.agentCommand = command; o.agentArgs = args }
}

// WithTransport registers the transport that carries out tasks for role,
// taking priority over the agent-command fallback for that role.
func WithTransport(role string, transport orchestrate.AgentTransport) Option {
	return func(o *resolvedOptions) {
		if o.transports == nil {
			o.transports = make(map[string]orchestrate.AgentTransport)
		}
		o.transports[role] = transport
	}
}

// WithConstructionHook registers a hook notified by Kernel.RecordValidation.
// Multiple hooks may be registered; all registered hooks run in registration order.
func WithConstructionHook(hook ConstructionHook) Option {
	return func(o *resolvedOptions) { o.constructionHooks = append(o.constructionHooks, hook) }
}

// WithExecutionHook registers a hook notified by Kernel.RecordExecution.
// Multiple hooks may be registered; all registered hooks run in registration order.
func WithExecutionHook(hook ExecutionHook) Option {
	return func(o *resolvedOptions) { o.executionHooks = append(o.executionHooks, hook) }
}

// WithDecomposerMaxDepth overrides the decomposer's default recursion limit.
func WithDecomposerMaxDepth(depth int) Option {
	return func(o *resolvedOptions) { o.decomposerMaxDepth = &depth }
}

// WithPoolSize overrides the agent pool's default maximum size.
func WithPoolSize(size int) Option {
	return func(o *resolvedOptions) { o.poolSize = size }
}
