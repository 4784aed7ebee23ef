// Package agentproto implements orchestrate.AgentTransport over the Model
// Context Protocol: each agent handle gets its own subprocess, speaking MCP
// over stdio, and a task round trip is a single "execute_task" tool call —
// the same tool-registration shape internal/mcp/tools.go uses for an LLM
// calling into this system, generalized to this system calling out to an
// agent.
package agentproto

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/latticeforge/kernel/orchestrate"
)

// MCPTransport dispatches orchestrator tasks to agent subprocesses over
// MCP. One subprocess is started per distinct AgentHandle and reused for
// the handle's remaining tasks.
type MCPTransport struct {
	command string
	args    []string

	mu      sync.Mutex
	clients map[string]*client.Client
}

// NewMCPTransport returns a transport that launches command (with args) as
// an MCP stdio server for each agent handle it sees for the first time.
func NewMCPTransport(command string, args ...string) *MCPTransport {
	return &MCPTransport{
		command: command,
		args:    args,
		clients: make(map[string]*client.Client),
	}
}

// executeTaskResult is the JSON payload execute_task's text content is
// expected to carry.
type executeTaskResult struct {
	DeltaRef        *string `json:"delta_ref"`
	ExecutionTimeMs int64   `json:"execution_time_ms"`
	MemoryUsedMB    int     `json:"memory_used_mb"`
	TokensConsumed  *int    `json:"tokens_consumed"`
}

// RunTask implements orchestrate.AgentTransport.
func (t *MCPTransport) RunTask(ctx context.Context, handle *orchestrate.AgentHandle, task orchestrate.Task) (orchestrate.TaskResult, error) {
	c, err := t.clientFor(ctx, handle)
	if err != nil {
		return orchestrate.TaskResult{}, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = "execute_task"
	req.Params.Arguments = map[string]any{
		"task_id":         task.ID.String(),
		"role":            task.Role,
		"description":     task.Description,
		"target_artifact": task.TargetArtifact.String(),
		"autonomy":        task.Autonomy.Value(),
	}

	result, err := c.CallTool(ctx, req)
	if err != nil {
		return orchestrate.TaskResult{}, fmt.Errorf("agentproto: call execute_task: %w", err)
	}

	text := textOf(result)
	if result.IsError {
		return orchestrate.TaskResult{}, fmt.Errorf("agentproto: agent reported task failure: %s", text)
	}

	var payload executeTaskResult
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return orchestrate.TaskResult{}, fmt.Errorf("agentproto: decode execute_task result: %w", err)
	}

	return orchestrate.TaskResult{
		DeltaRef: payload.DeltaRef,
		Metrics: orchestrate.ExecutionMetrics{
			ExecutionTimeMs: payload.ExecutionTimeMs,
			MemoryUsedMB:    payload.MemoryUsedMB,
			TokensConsumed:  payload.TokensConsumed,
		},
	}, nil
}

// clientFor returns the MCP client for handle, starting and initializing
// its subprocess on first use.
func (t *MCPTransport) clientFor(ctx context.Context, handle *orchestrate.AgentHandle) (*client.Client, error) {
	key := handle.ID.String()

	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[key]; ok {
		return c, nil
	}

	c, err := client.NewStdioMCPClient(t.command, nil, t.args...)
	if err != nil {
		return nil, fmt.Errorf("agentproto: start agent subprocess for role %q: %w", handle.Spec.Role, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "kernel-orchestrator", Version: "0.1.0"}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("agentproto: initialize agent session for role %q: %w", handle.Spec.Role, err)
	}

	t.clients[key] = c
	return c, nil
}

// Close shuts down every agent subprocess this transport started.
func (t *MCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for _, c := range t.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.clients = make(map[string]*client.Client)
	return firstErr
}

func textOf(result *mcp.CallToolResult) string {
	var b strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}
