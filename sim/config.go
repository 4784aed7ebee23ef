// Package sim is the kernel's property-based simulator: it drives random
// construction and execution sequences against the real construct and
// execute packages, classifies each operation's expected outcome, and
// checks the outcome and a handful of cross-cutting invariants against
// what actually happened.
package sim

// SimulatorConfig controls one simulator run.
type SimulatorConfig struct {
	Seed                    uint64
	TotalConstructions      uint64
	TotalExecutions         uint64
	StopOnFirstViolation    bool
	VerifyZeroRuntimePolicy bool
}

// DefaultSimulatorConfig returns the simulator's default run shape.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Seed:                    42,
		TotalConstructions:      1000,
		TotalExecutions:         1000,
		StopOnFirstViolation:    true,
		VerifyZeroRuntimePolicy: true,
	}
}
