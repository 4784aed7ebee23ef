// Package construct implements the construction phase: assembling a graph
// of nodes and edges, then proving it satisfies every structural, policy,
// and resource invariant before sealing it into a ValidatedGraph — the
// only type the execution phase accepts.
package construct

import "github.com/google/uuid"

// GraphID identifies one graph built by a GraphBuilder.
type GraphID uuid.UUID

// NewGraphID returns a fresh random graph identifier.
func NewGraphID() GraphID {
	return GraphID(uuid.New())
}

func (g GraphID) String() string {
	return uuid.UUID(g).String()
}

// NodeID identifies one node within a graph.
type NodeID uuid.UUID

// NewNodeID returns a fresh random node identifier.
func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

func (n NodeID) String() string {
	return uuid.UUID(n).String()
}

// Less gives NodeID a total order, used to sort node IDs deterministically
// before hashing or topological scheduling.
func (n NodeID) Less(other NodeID) bool {
	return uuid.UUID(n).String() < uuid.UUID(other).String()
}

// idToUUID converts a NodeID to the uuid.UUID capability tokens are keyed by.
func idToUUID(id NodeID) uuid.UUID {
	return uuid.UUID(id)
}

// UUID exposes the underlying uuid.UUID, for callers outside this package
// (such as package execute) that need to match a NodeID against a
// capability.Token's NodeID field.
func (n NodeID) UUID() uuid.UUID {
	return uuid.UUID(n)
}

// GraphType selects whether a builder accepts only acyclic edge sets
// (ProductionDAG) or admits cycles freely (SandboxGraph).
type GraphType int

const (
	ProductionDAG GraphType = iota
	SandboxGraph
)

func (t GraphType) String() string {
	if t == SandboxGraph {
		return "sandbox_graph"
	}
	return "production_dag"
}

// Edge is a directed edge between two nodes.
type Edge struct {
	From NodeID
	To   NodeID
}
