package execute

import (
	"errors"
	"fmt"

	"github.com/latticeforge/kernel/construct"
)

// ErrGraphValidationExpired is returned when a ValidatedGraph's own
// validation token has expired since construction.
var ErrGraphValidationExpired = errors.New("execute: graph validation token expired")

// ErrGraphValidationTampered is returned when a ValidatedGraph's
// validation token fails signature verification (its fields changed after
// signing, or it was signed by a different key than the one the executor
// trusts) or names a different graph ID than the graph carrying it. The
// validation hash is not recomputed from the graph's nodes and edges.
var ErrGraphValidationTampered = errors.New("execute: graph validation token does not verify")

var errNoInProcessExecutor = errors.New("execute: node requires in-process dispatch but none was configured")

var errNoSubprocessFactory = errors.New("execute: node requires subprocess isolation but no command factory was configured")

// NodeExecutionError wraps a failure attributable to one node, preserving
// which node failed and at which stage.
type NodeExecutionError struct {
	Node  construct.NodeID
	Stage string
	Err   error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("execute: node %s failed at %s: %v", e.Node, e.Stage, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// Recoverable reports whether executing the rest of the graph may still
// proceed. Token integrity and resource enforcement failures are
// recoverable in the sense that they are node-local and don't indicate a
// fault in the executor itself; anything else (an executor-reported
// error) is treated as not recoverable.
func (e *NodeExecutionError) Recoverable() bool {
	switch e.Stage {
	case "token_integrity", "resource_enforcement":
		return true
	default:
		return false
	}
}
