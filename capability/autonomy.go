// Package capability implements capability tokens: the cryptographic
// binding of an authorized operation, a specific graph node, and a
// resource envelope, signed with ed25519 over a canonical byte message.
package capability

// AutonomyLevel is a node's declared degree of unsupervised operation, a
// total order L0 (least autonomous, tightest isolation) through L5 (most
// autonomous, loosest isolation).
type AutonomyLevel uint8

const (
	L0 AutonomyLevel = iota
	L1
	L2
	L3
	L4
	L5
)

// Value returns the single-byte wire representation used in a capability
// token's signed message.
func (a AutonomyLevel) Value() uint8 {
	return uint8(a)
}

// CanAutoMerge reports whether work produced at this autonomy level may be
// merged without a human review step.
func (a AutonomyLevel) CanAutoMerge() bool {
	return a >= L4
}

// RequiresHumanApproval reports whether this autonomy level always
// requires a human to approve before proceeding.
func (a AutonomyLevel) RequiresHumanApproval() bool {
	return a <= L1
}

// InProcess reports whether a node at this autonomy level runs in-process
// (L0-L2) rather than as an isolated subprocess (L3-L5). Isolation is read
// from the node spec, never from the token, but the two scales share the
// same L0-L5 ordinal range.
func (a AutonomyLevel) InProcess() bool {
	return a <= L2
}

func (a AutonomyLevel) String() string {
	switch a {
	case L0:
		return "L0"
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L3:
		return "L3"
	case L4:
		return "L4"
	case L5:
		return "L5"
	default:
		return "unknown"
	}
}

// ResourceCaps bounds the resources a node (or, summed, a graph) may
// consume. Zero in any field is a real cap of zero, not "unlimited" —
// callers that want effectively unlimited resources must set an
// explicitly large value.
type ResourceCaps struct {
	CPUMillis    uint64
	MemoryBytes  uint64
	TokenLimit   uint64
	IterationCap uint64
}

// Add sums two caps component-wise, returning ok=false if any component
// overflows uint64 — the caller's signal to report ResourceBoundsNotProvable
// rather than a silently wrapped total.
func (r ResourceCaps) Add(other ResourceCaps) (sum ResourceCaps, ok bool) {
	var o1, o2, o3, o4 bool
	sum.CPUMillis, o1 = addChecked(r.CPUMillis, other.CPUMillis)
	sum.MemoryBytes, o2 = addChecked(r.MemoryBytes, other.MemoryBytes)
	sum.TokenLimit, o3 = addChecked(r.TokenLimit, other.TokenLimit)
	sum.IterationCap, o4 = addChecked(r.IterationCap, other.IterationCap)
	ok = !o1 && !o2 && !o3 && !o4
	return sum, ok
}

func addChecked(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}

// LessEqual reports whether r is component-wise at most limit.
func (r ResourceCaps) LessEqual(limit ResourceCaps) bool {
	return r.CPUMillis <= limit.CPUMillis &&
		r.MemoryBytes <= limit.MemoryBytes &&
		r.TokenLimit <= limit.TokenLimit &&
		r.IterationCap <= limit.IterationCap
}
