package sim

import (
	"fmt"
	"strings"
)

// SimulatorStats tallies what happened across both simulator phases.
type SimulatorStats struct {
	ConstructionsAttempted       uint64
	ConstructionsSucceeded       uint64
	ConstructionsRejected        uint64
	ExecutionsAttempted          uint64
	ExecutionsSucceeded          uint64
	ExecutionsFailed             uint64
	RuntimePolicyValidationCount uint64 // must stay 0 across the execution phase
}

// SimulatorReport is the outcome of one RunSimulator call.
type SimulatorReport struct {
	Config          SimulatorConfig
	Stats           SimulatorStats
	Violations      []Violation
	ValidatedGraphs int
}

// Passed reports whether the run found zero violations.
func (r SimulatorReport) Passed() bool {
	return len(r.Violations) == 0
}

// ZeroRuntimePolicyViolated reports whether any policy check ran during
// the execution phase — the single invariant the v2 two-phase
// architecture exists to guarantee.
func (r SimulatorReport) ZeroRuntimePolicyViolated() bool {
	return r.Stats.RuntimePolicyValidationCount > 0
}

// GenerateText renders a human-readable report, in the teacher's plain
// enumerated style rather than a structured format, since this output is
// meant for a terminal, not a machine.
func (r SimulatorReport) GenerateText() string {
	var b strings.Builder

	b.WriteString("=== Kernel Simulator Report ===\n\n")
	fmt.Fprintf(&b, "Seed: %d\n", r.Config.Seed)
	fmt.Fprintf(&b, "Constructions Attempted: %d\n", r.Stats.ConstructionsAttempted)
	fmt.Fprintf(&b, "Constructions Succeeded: %d\n", r.Stats.ConstructionsSucceeded)
	fmt.Fprintf(&b, "Constructions Rejected: %d\n", r.Stats.ConstructionsRejected)
	fmt.Fprintf(&b, "Executions Attempted: %d\n", r.Stats.ExecutionsAttempted)
	fmt.Fprintf(&b, "Executions Succeeded: %d\n", r.Stats.ExecutionsSucceeded)
	fmt.Fprintf(&b, "Executions Failed: %d\n", r.Stats.ExecutionsFailed)
	fmt.Fprintf(&b, "Runtime Policy Validations: %d (should be 0)\n", r.Stats.RuntimePolicyValidationCount)
	fmt.Fprintf(&b, "Violations: %d\n", len(r.Violations))
	fmt.Fprintf(&b, "Validated Graphs: %d\n", r.ValidatedGraphs)

	if len(r.Violations) > 0 {
		b.WriteString("\n=== Violations ===\n")
		for i, v := range r.Violations {
			fmt.Fprintf(&b, "%d. %s: operation=%s expected=%s", i+1, v.Kind, v.Operation.Kind, v.Expected)
			if v.ActualError != "" {
				fmt.Fprintf(&b, " actual_error=%q", v.ActualError)
			}
			b.WriteString("\n")
		}
	}

	if r.ZeroRuntimePolicyViolated() {
		b.WriteString("\n!!! CRITICAL: runtime policy validation detected during execution.\n")
		b.WriteString("This violates the two-phase construction/execution architecture.\n")
	}

	result := "PASS"
	if !r.Passed() {
		result = "FAIL"
	}
	fmt.Fprintf(&b, "\n=== Result: %s ===\n", result)

	return b.String()
}
