// Package kernel is the public API for embedding the trusted core of a
// multi-agent orchestrator: content-addressed artifacts, a symbol
// namespace, structural deltas, a two-phase construction/execution kernel,
// capability tokens, and an orchestrator that drives a specification
// through decomposition, graph construction, and task execution.
//
// Enterprise and plugin consumers import this package to construct and
// extend the kernel without forking it:
//
//	k, err := kernel.New(
//	    kernel.WithVersion(version),
//	    kernel.WithLogger(logger),
//	    kernel.WithAgentCommand("agent-runner", "--stdio"),
//	    kernel.WithExecutionHook(myAuditHook{}),
//	)
//	if err != nil { ... }
//	defer k.Close(ctx)
//	report, err := k.Orchestrator().Run(ctx, spec)
//
// The import graph enforces a strict no-cycle rule: kernel (root) imports
// internal/*, but internal/* never imports kernel (root).
package kernel

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/latticeforge/kernel/compose"
	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/execute"
	"github.com/latticeforge/kernel/internal/agentproto"
	"github.com/latticeforge/kernel/internal/audit"
	"github.com/latticeforge/kernel/internal/config"
	"github.com/latticeforge/kernel/internal/telemetry"
	"github.com/latticeforge/kernel/orchestrate"
)

// Kernel is the orchestrator lifecycle. Construct with New(), release
// resources with Close(). Kernel has no public fields — use New() options
// to configure it.
type Kernel struct {
	cfg               config.Config
	orchestrator      *orchestrate.Orchestrator
	registry          *compose.Registry
	auditDB           *audit.DB // nil when audit persistence is disabled
	agentTransport    *agentproto.MCPTransport
	otelShutdown      func(context.Context) error
	constructionHooks []ConstructionHook
	executionHooks    []ExecutionHook
	logger            *slog.Logger
	version           string
	signingKey        ed25519.PrivateKey
	verifyingKey      ed25519.PublicKey
}

// defaultPoolSize is used when WithPoolSize is not given.
const defaultPoolSize = 8

// New wires all kernel subsystems: configuration, telemetry, the optional
// audit store, the agent pool and its transports, and the decomposer and
// orchestrator. It does not start any goroutines or accept connections —
// the orchestrator is driven synchronously by callers through Run.
func New(opts ...Option) (*Kernel, error) {
	o := resolvedOptions{poolSize: defaultPoolSize}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("kernel: load config: %w", err)
	}
	if o.auditDBPath != "" {
		cfg.AuditDBPath = o.auditDBPath
	}
	if o.agentCommand != "" {
		cfg.AgentCommand = o.agentCommand
		cfg.AgentArgs = o.agentArgs
	}

	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("kernel starting", "version", version, "log_level", cfg.LogLevel)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("kernel: telemetry: %w", err)
	}

	limits, err := cfg.SystemLimits()
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("kernel: system limits: %w", err)
	}

	var auditDB *audit.DB
	if cfg.AuditDBPath != "" {
		auditDB, err = audit.Open(context.Background(), cfg.AuditDBPath, logger)
		if err != nil {
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("kernel: audit: %w", err)
		}
	}

	_, signingKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		closeAll(auditDB, otelShutdown)
		return nil, fmt.Errorf("kernel: generate signing key: %w", err)
	}
	verifyingKey := signingKey.Public().(ed25519.PublicKey)

	registry := compose.NewRegistry()
	decomposer := orchestrate.NewDecomposer(registry)
	if o.decomposerMaxDepth != nil {
		decomposer = decomposer.WithMaxDepth(*o.decomposerMaxDepth)
	}

	pool := orchestrate.NewAgentPool(o.poolSize)
	orch := orchestrate.NewOrchestrator(decomposer, pool, signingKey)
	orch.SystemLimits = limits

	var agentTransport *agentproto.MCPTransport
	if cfg.AgentCommand != "" {
		agentTransport = agentproto.NewMCPTransport(cfg.AgentCommand, cfg.AgentArgs...)
	}
	for role, transport := range o.transports {
		orch.RegisterTransport(role, transport)
	}
	if agentTransport != nil {
		orch.DefaultTransport = agentTransport
	}

	k := &Kernel{
		cfg:               cfg,
		orchestrator:      orch,
		registry:          registry,
		auditDB:           auditDB,
		agentTransport:    agentTransport,
		otelShutdown:      otelShutdown,
		constructionHooks: o.constructionHooks,
		executionHooks:    o.executionHooks,
		logger:            logger,
		version:           version,
		signingKey:        signingKey,
		verifyingKey:      verifyingKey,
	}
	return k, nil
}

// Orchestrator returns the kernel's orchestrator, ready to run specifications.
// Roles without an explicit WithTransport fall back to the agent-command
// transport, set as the orchestrator's DefaultTransport during New.
func (k *Kernel) Orchestrator() *orchestrate.Orchestrator {
	return k.orchestrator
}

// RecordValidation runs every registered ConstructionHook and, if audit
// persistence is enabled, appends token to the audit log. Callers invoke
// this once per successful GraphBuilder.Validate.
func (k *Kernel) RecordValidation(ctx context.Context, token construct.ValidationToken) {
	if k.auditDB != nil {
		if err := k.auditDB.InsertValidationToken(ctx, token); err != nil {
			k.logger.Error("kernel: record validation token", "error", err, "graph_id", token.GraphID.String())
		}
	}
	for _, hook := range k.constructionHooks {
		if err := hook.OnGraphValidated(ctx, token); err != nil {
			k.logger.Warn("kernel: construction hook failed", "error", err, "graph_id", token.GraphID.String())
		}
	}
}

// RecordExecution runs every registered ExecutionHook and, if audit
// persistence is enabled, appends summary to the audit log. Callers invoke
// this once per completed Executor.Execute.
func (k *Kernel) RecordExecution(ctx context.Context, graphID construct.GraphID, summary execute.ExecutionSummary) {
	if k.auditDB != nil {
		if err := k.auditDB.InsertExecutionSummary(ctx, graphID, summary); err != nil {
			k.logger.Error("kernel: record execution summary", "error", err, "graph_id", graphID.String())
		}
	}
	for _, hook := range k.executionHooks {
		if err := hook.OnExecutionComplete(ctx, graphID, summary); err != nil {
			k.logger.Warn("kernel: execution hook failed", "error", err, "graph_id", graphID.String())
		}
	}
}

// VerifyingKey returns the public key nodes' capability tokens verify
// against — the counterpart to the orchestrator's construction-time
// signing key.
func (k *Kernel) VerifyingKey() ed25519.PublicKey {
	return k.verifyingKey
}

// Close releases the audit store, agent transport subprocesses, and the
// OpenTelemetry providers. Safe to call once; subsequent calls are no-ops
// on a best-effort basis.
func (k *Kernel) Close(ctx context.Context) error {
	k.logger.Info("kernel stopping")

	var firstErr error
	if k.agentTransport != nil {
		if err := k.agentTransport.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if k.auditDB != nil {
		if err := k.auditDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := k.otelShutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	k.logger.Info("kernel stopped")
	return firstErr
}

func closeAll(auditDB *audit.DB, otelShutdown func(context.Context) error) {
	if auditDB != nil {
		_ = auditDB.Close()
	}
	_ = otelShutdown(context.Background())
}
