package construct

import "github.com/latticeforge/kernel/capability"

// ResourceProof is evidence that a graph's summed node resource bounds are
// satisfiable: the checked sum did not overflow and stays within the
// system's limits. It is retained in the validator's output rather than
// discarded after the check, so callers can inspect exactly what was
// proven.
type ResourceProof struct {
	Total             capability.ResourceCaps
	WithinSystemLimits bool
}

// verifyResourceBounds checksums every node's resource bounds and checks
// the total against limits.MaxResources. Overflow during the sum is
// reported as ResourceBoundsNotProvable (the claim "bounds fit" cannot even
// be evaluated); a sum that fits in u64 but exceeds the limit is
// ResourceBoundsExceeded.
func verifyResourceBounds(nodes map[NodeID]NodeSpec, limits SystemLimits) (ResourceProof, *ValidationError) {
	var total capability.ResourceCaps
	for _, spec := range nodes {
		var ok bool
		total, ok = total.Add(spec.ResourceBounds)
		if !ok {
			return ResourceProof{}, &ValidationError{
				Kind:   ResourceBoundsNotProvable,
				Detail: "summing node resource bounds overflowed",
			}
		}
	}

	within := total.LessEqual(limits.MaxResources)
	if !within {
		return ResourceProof{}, &ValidationError{
			Kind:   ResourceBoundsExceeded,
			Detail: "summed node resource bounds exceed system limits",
		}
	}

	return ResourceProof{Total: total, WithinSystemLimits: true}, nil
}
