package compose

import "fmt"

// CompositionError is returned by Strategy.Validate and Strategy.Compose
// when a batch cannot be composed under the chosen strategy.
type CompositionError struct {
	Diagnostic Diagnostic
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose: %s: %s (deltas %v)", e.Diagnostic.Kind, e.Diagnostic.Description, e.Diagnostic.InvolvedDeltas)
}

// NotValidatedError reports a batch composed without a preceding successful
// validation. No strategy in this package returns it: each strategy's
// Compose runs its own Validate first and returns that error instead.
type NotValidatedError struct{}

func (*NotValidatedError) Error() string {
	return "compose: batch was composed without a preceding validation"
}
