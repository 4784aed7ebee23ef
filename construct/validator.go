package construct

import (
	"context"
	"crypto/ed25519"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/hash"
)

// tracer emits one span per Validate call and one child span per
// validation step, the way internal/telemetry instruments the rest of
// the kernel's service-layer work.
var tracer = otel.Tracer("github.com/latticeforge/kernel/construct")

// PolicyValidationCalls counts calls to validatePolicy. Policy is checked
// exactly once per node, at construction time; the execution phase never
// calls it. package sim's simulator snapshots this counter across its
// execution phase to demonstrate that invariant holds, rather than taking
// it on faith.
var PolicyValidationCalls atomic.Uint64

// ConstructionValidator runs the six-step construction-time validation
// pipeline against a candidate graph. All policy decisions happen here;
// nothing downstream of a sealed ValidatedGraph re-validates policy.
type ConstructionValidator struct {
	limits SystemLimits
	now    func() time.Time
}

// NewConstructionValidator returns a validator bound to limits, using the
// wall clock for token timestamps.
func NewConstructionValidator(limits SystemLimits) *ConstructionValidator {
	return &ConstructionValidator{limits: limits, now: time.Now}
}

// Validate runs all six steps and, on success, returns the sealed
// ValidatedGraph. Each step is fatal on failure and traced as its own
// child span under a top-level "construct.Validate" span:
//  1. Structural: no self-loops; in ProductionDAG, no cycles (DFS); every
//     edge endpoint exists.
//  2. Policy: each node's autonomy ceiling <= limits.MaxAutonomy; required
//     security-pipeline stages present (stub today — always passes).
//  3. Resource proof: checked-sum node resource bounds, <= limits.MaxResources.
//  4. Token issuance: one CapabilityToken per node, bound to "execute".
//  5. Validation token: hash (graph_id, sorted nodes, sorted edges), sign
//     (graph_id, validation_hash, timestamp, expires_at).
//  6. Seal: construct the ValidatedGraph through the package-private
//     constructor, inaccessible to external callers.
func (v *ConstructionValidator) Validate(
	ctx context.Context,
	graphID GraphID,
	graphType GraphType,
	nodes map[NodeID]NodeSpec,
	edges []Edge,
	signingKey ed25519.PrivateKey,
) (ValidatedGraph, error) {
	ctx, span := tracer.Start(ctx, "construct.Validate", trace.WithAttributes(
		attribute.String("graph.id", graphID.String()),
		attribute.Int("graph.node_count", len(nodes)),
		attribute.Int("graph.edge_count", len(edges)),
	))
	defer span.End()

	if err := runValidationStep(ctx, "structural", func() error {
		return v.validateStructure(graphType, nodes, edges)
	}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ValidatedGraph{}, err
	}

	if err := runValidationStep(ctx, "policy", func() error {
		return v.validatePolicy(nodes)
	}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ValidatedGraph{}, err
	}

	var proof ResourceProof
	if err := runValidationStep(ctx, "resource_proof", func() error {
		p, rerr := verifyResourceBounds(nodes, v.limits)
		if rerr != nil {
			return rerr
		}
		proof = p
		return nil
	}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ValidatedGraph{}, err
	}

	now := v.now()

	var nodeTokens map[NodeID]capability.Token
	_ = runValidationStep(ctx, "token_issuance", func() error {
		nodeTokens = v.issueNodeTokens(nodes, signingKey, now)
		return nil
	})

	var validationToken ValidationToken
	_ = runValidationStep(ctx, "validation_token", func() error {
		validationToken = v.issueValidationToken(graphID, nodes, edges, signingKey, now)
		return nil
	})

	var sealed ValidatedGraph
	_ = runValidationStep(ctx, "seal", func() error {
		sealed = ValidatedGraph{
			graphID:         graphID,
			graphType:       graphType,
			nodes:           copyNodes(nodes),
			edges:           append([]Edge(nil), edges...),
			nodeTokens:      nodeTokens,
			validationToken: validationToken,
			resourceProof:   proof,
		}
		return nil
	})

	return sealed, nil
}

// runValidationStep wraps one validation step in its own span, recording
// fn's error (if any) on that span before propagating it.
func runValidationStep(ctx context.Context, step string, fn func() error) error {
	_, span := tracer.Start(ctx, "construct.validate."+step)
	defer span.End()

	if err := fn(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func copyNodes(nodes map[NodeID]NodeSpec) map[NodeID]NodeSpec {
	out := make(map[NodeID]NodeSpec, len(nodes))
	for k, v := range nodes {
		out[k] = v
	}
	return out
}

func (v *ConstructionValidator) validateStructure(graphType GraphType, nodes map[NodeID]NodeSpec, edges []Edge) error {
	for _, e := range edges {
		if e.From == e.To {
			return &ValidationError{Kind: SelfLoop, Node: e.From, HasNode: true, Detail: "edge is a self-loop"}
		}
	}

	if graphType == ProductionDAG {
		adjacency := make(map[NodeID][]NodeID, len(nodes))
		for _, e := range edges {
			adjacency[e.From] = append(adjacency[e.From], e.To)
		}
		if hasCycle(nodes, adjacency) {
			return &ValidationError{Kind: CycleDetected, Detail: "production DAG contains a cycle"}
		}
	}

	for _, e := range edges {
		if _, ok := nodes[e.From]; !ok {
			return &ValidationError{Kind: InvalidGraphStructure, Node: e.From, HasNode: true, Detail: "edge endpoint not found"}
		}
		if _, ok := nodes[e.To]; !ok {
			return &ValidationError{Kind: InvalidGraphStructure, Node: e.To, HasNode: true, Detail: "edge endpoint not found"}
		}
	}
	return nil
}

func (v *ConstructionValidator) validatePolicy(nodes map[NodeID]NodeSpec) error {
	PolicyValidationCalls.Add(1)
	for id, spec := range nodes {
		if spec.AutonomyCeiling.Value() > v.limits.MaxAutonomy.Value() {
			return &ValidationError{Kind: AutonomyCeilingExceeded, Node: id, HasNode: true, Detail: "node autonomy ceiling exceeds system limit"}
		}
		if !hasSecurityPipeline(spec) {
			return &ValidationError{Kind: SecurityPipelineIncomplete, Node: id, HasNode: true, Detail: "required security-pipeline stages missing from directives"}
		}
	}
	return nil
}

// hasSecurityPipeline is a stub: the full check (that a node's directives
// name every required security-pipeline stage) belongs to a
// constitutional-layer policy engine outside this kernel; the kernel only
// reserves the check's place in the pipeline.
func hasSecurityPipeline(_ NodeSpec) bool {
	return true
}

func (v *ConstructionValidator) issueNodeTokens(nodes map[NodeID]NodeSpec, signingKey ed25519.PrivateKey, now time.Time) map[NodeID]capability.Token {
	tokens := make(map[NodeID]capability.Token, len(nodes))
	for id, spec := range nodes {
		directiveHash := hashDirectives(spec.Directives)
		tokens[id] = capability.NewConstructionToken(signingKey, idToUUID(id), spec.AutonomyCeiling, spec.ResourceBounds, directiveHash, now)
	}
	return tokens
}

func (v *ConstructionValidator) issueValidationToken(graphID GraphID, nodes map[NodeID]NodeSpec, edges []Edge, signingKey ed25519.PrivateKey, now time.Time) ValidationToken {
	validationHash := computeValidationHash(graphID, nodes, edges)
	t := ValidationToken{
		GraphID:        graphID,
		ValidationHash: validationHash,
		IssuedAt:       now,
		ExpiresAt:      now.Add(time.Hour),
	}
	t.Signature = ed25519.Sign(signingKey, t.message())
	return t
}

func hashDirectives(d DirectiveSet) hash.Hash {
	keys := make([]string, 0, d.Len())
	for k := range d.values {
		keys = append(keys, k)
	}
	sortStrings(keys)
	var buf []byte
	for _, k := range keys {
		buf = append(buf, k...)
		buf = append(buf, 0)
		v := d.values[k]
		switch v.kind {
		case DirectiveString:
			buf = append(buf, v.str...)
		case DirectiveBool:
			if v.b {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case DirectiveInt:
			buf = append(buf, byte(v.i), byte(v.i>>8), byte(v.i>>16), byte(v.i>>24))
		}
		buf = append(buf, 0xff)
	}
	return hash.Compute(buf)
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
