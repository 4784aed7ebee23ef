package construct

import "fmt"

// ValidationErrorKind is the construction-time error taxonomy.
type ValidationErrorKind int

const (
	CycleDetected ValidationErrorKind = iota
	SelfLoop
	InvalidGraphStructure
	AutonomyCeilingExceeded
	SecurityPipelineIncomplete
	ResourceBoundsNotProvable
	ResourceBoundsExceeded
	ExpansionSchemaMismatch
	ExpansionBudgetExceeded
)

func (k ValidationErrorKind) String() string {
	switch k {
	case CycleDetected:
		return "cycle_detected"
	case SelfLoop:
		return "self_loop"
	case InvalidGraphStructure:
		return "invalid_graph_structure"
	case AutonomyCeilingExceeded:
		return "autonomy_ceiling_exceeded"
	case SecurityPipelineIncomplete:
		return "security_pipeline_incomplete"
	case ResourceBoundsNotProvable:
		return "resource_bounds_not_provable"
	case ResourceBoundsExceeded:
		return "resource_bounds_exceeded"
	case ExpansionSchemaMismatch:
		return "expansion_schema_mismatch"
	default:
		return "expansion_budget_exceeded"
	}
}

// ValidationError is returned by ConstructionValidator.Validate and
// GraphBuilder.Validate.
type ValidationError struct {
	Kind    ValidationErrorKind
	Node    NodeID
	HasNode bool
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.HasNode {
		return fmt.Sprintf("construct: %s (node %s): %s", e.Kind, e.Node, e.Detail)
	}
	return fmt.Sprintf("construct: %s: %s", e.Kind, e.Detail)
}

// Recoverable implements kernelerr.Recoverable: every construction-time
// validation failure can be fixed by resubmitting a corrected graph, so
// all kinds are recoverable.
func (e *ValidationError) Recoverable() bool { return true }

// IsSystemFault implements kernelerr.SystemFault: a rejected graph is
// caller error, never a kernel fault.
func (e *ValidationError) IsSystemFault() bool { return false }

// ShouldEscalate implements kernelerr.Escalating: autonomy and resource
// violations are surfaced to a human rather than retried silently, since
// they usually indicate a task was decomposed with an unrealistic budget
// rather than a transient condition.
func (e *ValidationError) ShouldEscalate() bool {
	switch e.Kind {
	case AutonomyCeilingExceeded, ResourceBoundsExceeded, ResourceBoundsNotProvable:
		return true
	default:
		return false
	}
}
