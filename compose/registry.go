package compose

import "strings"

// StrategyHint lets a caller override the registry's default strategy
// selection for a batch without changing the registry itself.
type StrategyHint int

const (
	HintNone StrategyHint = iota
	HintSafety
	HintParallelism
	HintOrdered
	HintBalanced
)

const (
	NameSingleWriter = "single_writer"
	NameOrdered      = "ordered"
	NameCommutative  = "commutative"
	NameHybrid       = "hybrid"
)

// mediaTypes are the artifact types whose additive/subtractive deltas
// default to the commutative strategy.
var mediaTypes = map[string]struct{}{
	"svg":   {},
	"image": {},
	"audio": {},
	"video": {},
}

// Registry maps (artifact_type, operation) to a strategy name. The zero
// value is ready to use and returns the default mapping; Set overrides
// individual (artifact_type, operation) pairs.
type Registry struct {
	overrides map[string]string
}

// NewRegistry returns a registry with only the default mapping table.
func NewRegistry() *Registry {
	return &Registry{overrides: make(map[string]string)}
}

// Set overrides the strategy name for one (artifactType, operation) pair.
// operation is a free-form tag (e.g. "add", "remove", "refine",
// "subdivide") matching the vocabulary used when the registry was
// consulted; it is not restricted to artifact.OperationKind so that
// domain-specific operation names (as used by media and mesh artifact
// types) can be registered directly.
func (r *Registry) Set(artifactType, operation, strategyName string) {
	r.overrides[registryKey(artifactType, operation)] = strategyName
}

func registryKey(artifactType, operation string) string {
	return strings.ToLower(artifactType) + "\x00" + strings.ToLower(operation)
}

// Resolve returns the strategy name for (artifactType, operation),
// applying hint as an override of the registry's result when hint is not
// HintNone.
func (r *Registry) Resolve(artifactType, operation string, hint StrategyHint) string {
	if name := hintStrategy(hint); name != "" {
		return name
	}
	if r != nil {
		if name, ok := r.overrides[registryKey(artifactType, operation)]; ok {
			return name
		}
	}
	return defaultStrategy(artifactType, operation)
}

func hintStrategy(hint StrategyHint) string {
	switch hint {
	case HintSafety:
		return NameSingleWriter
	case HintParallelism:
		return NameCommutative
	case HintOrdered:
		return NameOrdered
	case HintBalanced:
		return NameHybrid
	default:
		return ""
	}
}

// defaultStrategy implements the registry's built-in default mapping:
// code -> single_writer; {svg,image,audio,video} with add/remove ->
// commutative; mesh with refine/subdivide -> ordered; {config,spec} ->
// hybrid; otherwise single_writer.
func defaultStrategy(artifactType, operation string) string {
	artifactType = strings.ToLower(artifactType)
	operation = strings.ToLower(operation)

	switch artifactType {
	case "code":
		return NameSingleWriter
	case "config", "spec":
		return NameHybrid
	case "mesh":
		if operation == "refine" || operation == "subdivide" {
			return NameOrdered
		}
		return NameSingleWriter
	}

	if _, ok := mediaTypes[artifactType]; ok {
		if operation == "add" || operation == "remove" {
			return NameCommutative
		}
	}

	return NameSingleWriter
}
