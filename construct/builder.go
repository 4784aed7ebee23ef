package construct

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
)

// BuilderErrorKind classifies why GraphBuilder.AddEdge rejected an edge.
type BuilderErrorKind int

const (
	ErrNodeNotFound BuilderErrorKind = iota
	ErrEdgeAlreadyExists
	ErrSelfLoopNotAllowed
	ErrWouldCreateCycle
)

func (k BuilderErrorKind) String() string {
	switch k {
	case ErrNodeNotFound:
		return "node_not_found"
	case ErrEdgeAlreadyExists:
		return "edge_already_exists"
	case ErrSelfLoopNotAllowed:
		return "self_loop_not_allowed"
	default:
		return "would_create_cycle"
	}
}

// BuilderError is returned by GraphBuilder.AddEdge.
type BuilderError struct {
	Kind BuilderErrorKind
	Node NodeID
}

func (e *BuilderError) Error() string {
	return fmt.Sprintf("construct: %s", e.Kind)
}

// GraphBuilder is a mutable, in-progress graph. Its only mutators are
// AddNode and AddEdge; Validate consumes it and produces a sealed
// ValidatedGraph or a ValidationError.
type GraphBuilder struct {
	graphType    GraphType
	graphID      GraphID
	systemLimits SystemLimits
	nodes        map[NodeID]NodeSpec
	edges        []Edge
	adjacency    map[NodeID][]NodeID
}

// NewGraphBuilder starts an empty builder with default system limits.
func NewGraphBuilder(graphType GraphType) *GraphBuilder {
	return NewGraphBuilderWithLimits(graphType, DefaultSystemLimits())
}

// NewGraphBuilderWithLimits starts an empty builder with custom system limits.
func NewGraphBuilderWithLimits(graphType GraphType, limits SystemLimits) *GraphBuilder {
	return &GraphBuilder{
		graphType:    graphType,
		graphID:      NewGraphID(),
		systemLimits: limits,
		nodes:        make(map[NodeID]NodeSpec),
		adjacency:    make(map[NodeID][]NodeID),
	}
}

func (b *GraphBuilder) GraphID() GraphID     { return b.graphID }
func (b *GraphBuilder) GraphType() GraphType { return b.graphType }
func (b *GraphBuilder) NodeCount() int       { return len(b.nodes) }
func (b *GraphBuilder) EdgeCount() int       { return len(b.edges) }
func (b *GraphBuilder) Limits() SystemLimits { return b.systemLimits }

// AddNode inserts spec as a new node and returns its fresh NodeID.
func (b *GraphBuilder) AddNode(spec NodeSpec) NodeID {
	id := NewNodeID()
	b.nodes[id] = spec
	b.adjacency[id] = nil
	return id
}

// GetNode returns the spec for id, if present.
func (b *GraphBuilder) GetNode(id NodeID) (NodeSpec, bool) {
	spec, ok := b.nodes[id]
	return spec, ok
}

// Edges returns the builder's edges in insertion order.
func (b *GraphBuilder) Edges() []Edge {
	return append([]Edge(nil), b.edges...)
}

// AddEdge adds a directed edge from -> to. It fails when either endpoint is
// absent, when from == to, when the edge already exists, and — only for
// ProductionDAG — when adding it would introduce a cycle (checked by
// speculative insertion, rolled back on cycle discovery).
func (b *GraphBuilder) AddEdge(from, to NodeID) error {
	if _, ok := b.nodes[from]; !ok {
		return &BuilderError{Kind: ErrNodeNotFound, Node: from}
	}
	if _, ok := b.nodes[to]; !ok {
		return &BuilderError{Kind: ErrNodeNotFound, Node: to}
	}
	if from == to {
		return &BuilderError{Kind: ErrSelfLoopNotAllowed, Node: from}
	}
	for _, e := range b.edges {
		if e.From == from && e.To == to {
			return &BuilderError{Kind: ErrEdgeAlreadyExists}
		}
	}

	if b.graphType == ProductionDAG {
		b.adjacency[from] = append(b.adjacency[from], to)
		if hasCycle(b.nodes, b.adjacency) {
			b.adjacency[from] = b.adjacency[from][:len(b.adjacency[from])-1]
			return &BuilderError{Kind: ErrWouldCreateCycle}
		}
	} else {
		b.adjacency[from] = append(b.adjacency[from], to)
	}

	b.edges = append(b.edges, Edge{From: from, To: to})
	return nil
}

// WouldCreateCycle previews whether AddEdge(from, to) would close a cycle
// (or is a self-loop), without mutating the builder. For a SandboxGraph,
// AddEdge accepts cycle-closing edges anyway; only the self-loop is rejected.
func (b *GraphBuilder) WouldCreateCycle(from, to NodeID) bool {
	if from == to {
		return true
	}
	return canReach(b.adjacency, to, from)
}

func hasCycle(nodes map[NodeID]NodeSpec, adjacency map[NodeID][]NodeID) bool {
	visiting := make(map[NodeID]bool)
	visited := make(map[NodeID]bool)
	var dfs func(NodeID) bool
	dfs = func(node NodeID) bool {
		if visiting[node] {
			return true
		}
		if visited[node] {
			return false
		}
		visiting[node] = true
		for _, next := range adjacency[node] {
			if dfs(next) {
				return true
			}
		}
		delete(visiting, node)
		visited[node] = true
		return false
	}
	for id := range nodes {
		if !visited[id] {
			if dfs(id) {
				return true
			}
		}
	}
	return false
}

func canReach(adjacency map[NodeID][]NodeID, source, target NodeID) bool {
	visited := make(map[NodeID]bool)
	stack := []NodeID{source}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == target {
			return true
		}
		if visited[node] {
			continue
		}
		visited[node] = true
		stack = append(stack, adjacency[node]...)
	}
	return false
}

var errNoSigningKey = errors.New("construct: validate requires a non-nil signing key")

// Validate consumes the builder and runs the full construction-time
// validation pipeline, returning a sealed ValidatedGraph or a
// ValidationError. See (*ConstructionValidator).Validate for the six
// steps and their tracing.
func (b *GraphBuilder) Validate(ctx context.Context, signingKey ed25519.PrivateKey) (ValidatedGraph, error) {
	if signingKey == nil {
		return ValidatedGraph{}, errNoSigningKey
	}
	v := NewConstructionValidator(b.systemLimits)
	return v.Validate(ctx, b.graphID, b.graphType, b.nodes, b.edges, signingKey)
}
