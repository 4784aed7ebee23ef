package sim

import "github.com/latticeforge/kernel/construct"

// builderState tracks one in-progress GraphBuilder together with the
// node IDs and specs the simulator has added to it, in insertion order —
// bookkeeping the builder itself doesn't expose, needed to pick edge
// endpoints by index and to predict whether Validate will accept the
// accumulated resource bounds.
type builderState struct {
	builder *construct.GraphBuilder
	nodeIDs []construct.NodeID
	specs   []construct.NodeSpec
}

func newBuilderState(graphType construct.GraphType) *builderState {
	return &builderState{builder: construct.NewGraphBuilder(graphType)}
}

func (s *builderState) addNode(spec construct.NodeSpec) construct.NodeID {
	id := s.builder.AddNode(spec)
	s.nodeIDs = append(s.nodeIDs, id)
	s.specs = append(s.specs, spec)
	return id
}

// exceedsResourceLimits reports whether the builder's accumulated node
// resource bounds already overflow or exceed its own system limits, the
// same check ConstructionValidator.Validate performs at seal time.
func (s *builderState) exceedsResourceLimits() bool {
	if len(s.specs) == 0 {
		return false
	}
	limits := s.builder.Limits()
	total := s.specs[0].ResourceBounds
	for _, spec := range s.specs[1:] {
		sum, ok := total.Add(spec.ResourceBounds)
		if !ok {
			return true
		}
		total = sum
	}
	return !total.LessEqual(limits.MaxResources)
}
