package agentproto

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestTextOfConcatenatesTextContent(t *testing.T) {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: `{"delta_ref":`},
			mcp.TextContent{Type: "text", Text: `"hash:abc"}`},
		},
	}

	assert.Equal(t, `{"delta_ref":"hash:abc"}`, textOf(result))
}

func TestNewMCPTransportStartsWithNoClients(t *testing.T) {
	tr := NewMCPTransport("agent-runner", "--stdio")
	assert.Empty(t, tr.clients)
	assert.NoError(t, tr.Close())
}
