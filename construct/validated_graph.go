package construct

import (
	"crypto/ed25519"
	"encoding/binary"
	"time"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/hash"
)

// ValidationToken is the construction phase's proof that a graph passed
// every validation step. It binds graph_id and validation_hash together
// under a signature, so a token whose fields were altered after signing
// fails Verify. Verify does not compare the token against any graph: it
// neither checks the graph ID nor recomputes validation_hash from nodes
// and edges.
type ValidationToken struct {
	GraphID        GraphID
	ValidationHash hash.Hash
	IssuedAt       time.Time
	ExpiresAt      time.Time
	Signature      []byte
}

func (t ValidationToken) message() []byte {
	buf := make([]byte, 0, 16+32+8+8)
	idBytes, _ := idToBytes(t.GraphID)
	buf = append(buf, idBytes...)
	buf = append(buf, t.ValidationHash[:]...)
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(t.IssuedAt.Unix()))
	buf = append(buf, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], uint64(t.ExpiresAt.Unix()))
	buf = append(buf, u64[:]...)
	return buf
}

func idToBytes(id GraphID) ([]byte, error) {
	return id[:], nil
}

// Verify checks t's signature against verifyingKey.
func (t ValidationToken) Verify(verifyingKey ed25519.PublicKey) bool {
	if len(t.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(verifyingKey, t.message(), t.Signature)
}

// IsExpired reports whether ExpiresAt is non-zero and at or before now.
func (t ValidationToken) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// computeValidationHash hashes (graph_id, sorted nodes, sorted edges) so
// that any change to the validated structure changes the hash.
func computeValidationHash(graphID GraphID, nodes map[NodeID]NodeSpec, edges []Edge) hash.Hash {
	ids := make([]NodeID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sortNodeIDs(ids)

	buf := append([]byte(nil), graphID[:]...)
	var u64 [8]byte
	for _, id := range ids {
		buf = append(buf, id[:]...)
		spec := nodes[id]
		buf = append(buf, spec.AutonomyCeiling.Value())
		binary.LittleEndian.PutUint64(u64[:], spec.ResourceBounds.CPUMillis)
		buf = append(buf, u64[:]...)
		binary.LittleEndian.PutUint64(u64[:], spec.ResourceBounds.MemoryBytes)
		buf = append(buf, u64[:]...)
		binary.LittleEndian.PutUint64(u64[:], spec.ResourceBounds.TokenLimit)
		buf = append(buf, u64[:]...)
		binary.LittleEndian.PutUint64(u64[:], spec.ResourceBounds.IterationCap)
		buf = append(buf, u64[:]...)
	}

	sorted := append([]Edge(nil), edges...)
	sortEdges(sorted)
	for _, e := range sorted {
		buf = append(buf, e.From[:]...)
		buf = append(buf, e.To[:]...)
	}

	return hash.Compute(buf)
}

func sortNodeIDs(ids []NodeID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Less(ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func sortEdges(edges []Edge) {
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && edgeLess(edges[j], edges[j-1]); j-- {
			edges[j], edges[j-1] = edges[j-1], edges[j]
		}
	}
}

func edgeLess(a, b Edge) bool {
	if a.From != b.From {
		return a.From.Less(b.From)
	}
	return a.To.Less(b.To)
}

// ValidatedGraph is a sealed, proof-carrying graph: it has no exported
// constructor, so the only way to obtain one is through
// GraphBuilder.Validate having run every check in ConstructionValidator.
// Package execute consumes ValidatedGraph exclusively through the exported
// accessor methods below.
type ValidatedGraph struct {
	graphID         GraphID
	graphType       GraphType
	nodes           map[NodeID]NodeSpec
	edges           []Edge
	nodeTokens      map[NodeID]capability.Token
	validationToken ValidationToken
	resourceProof   ResourceProof
}

func (g ValidatedGraph) GraphID() GraphID     { return g.graphID }
func (g ValidatedGraph) GraphType() GraphType { return g.graphType }

// Node returns the spec for id and whether it exists in the graph.
func (g ValidatedGraph) Node(id NodeID) (NodeSpec, bool) {
	spec, ok := g.nodes[id]
	return spec, ok
}

// NodeIDs returns every node ID in the graph, in no particular order.
func (g ValidatedGraph) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Edges returns the graph's edges.
func (g ValidatedGraph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// NodeToken returns the capability token issued to id and whether it exists.
func (g ValidatedGraph) NodeToken(id NodeID) (capability.Token, bool) {
	tok, ok := g.nodeTokens[id]
	return tok, ok
}

// ValidationToken returns the graph-level validation token.
func (g ValidatedGraph) ValidationToken() ValidationToken {
	return g.validationToken
}

// ResourceProof returns the resource bounds proof produced at construction.
func (g ValidatedGraph) ResourceProof() ResourceProof {
	return g.resourceProof
}

// TopologicalOrder returns node IDs in a stable topological order (Kahn's
// algorithm, ties broken by NodeID.Less). For a SandboxGraph, which may
// contain cycles, nodes that never become ready are appended afterward in
// NodeID order — the executor is documented to treat the order as
// "arbitrary but stable", not as a guarantee of an acyclic schedule.
func (g ValidatedGraph) TopologicalOrder() []NodeID {
	indegree := make(map[NodeID]int, len(g.nodes))
	adjacency := make(map[NodeID][]NodeID, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = 0
	}
	for _, e := range g.edges {
		indegree[e.To]++
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	var ready []NodeID
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sortNodeIDs(ready)

	order := make([]NodeID, 0, len(g.nodes))
	visited := make(map[NodeID]bool, len(g.nodes))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		order = append(order, next)

		var newlyReady []NodeID
		for _, n := range adjacency[next] {
			indegree[n]--
			if indegree[n] == 0 {
				newlyReady = append(newlyReady, n)
			}
		}
		sortNodeIDs(newlyReady)
		ready = append(ready, newlyReady...)
		sortNodeIDs(ready)
	}

	if len(order) < len(g.nodes) {
		remaining := make([]NodeID, 0, len(g.nodes)-len(order))
		for id := range g.nodes {
			if !visited[id] {
				remaining = append(remaining, id)
			}
		}
		sortNodeIDs(remaining)
		order = append(order, remaining...)
	}

	return order
}
