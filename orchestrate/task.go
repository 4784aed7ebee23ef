package orchestrate

import (
	"github.com/google/uuid"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/symbol"
)

// TaskID identifies one task produced by decomposition.
type TaskID uuid.UUID

// NewTaskID returns a fresh random task identifier.
func NewTaskID() TaskID { return TaskID(uuid.New()) }

func (t TaskID) String() string { return uuid.UUID(t).String() }

// OutputKind discriminates the concrete shape of an ExpectedOutput.
type OutputKind int

const (
	OutputCode OutputKind = iota
	OutputConfig
	OutputSpec
	OutputBinary
)

// OutputSpec describes the kind of artifact a task is expected to produce.
type OutputSpec struct {
	Kind     OutputKind
	Language string // OutputCode
	Schema   string // OutputConfig
	Format   string // OutputSpec
	MIMEType string // OutputBinary
}

// Task is one unit of work a decomposer hands to an agent: a role, a
// description, the directives and resource envelope that will become its
// node spec once lowered to a graph, and its dependencies on other tasks.
type Task struct {
	ID             TaskID
	Role           string
	Description    string
	Directives     construct.DirectiveSet
	Autonomy       capability.AutonomyLevel
	Resources      capability.ResourceCaps
	Dependencies   []TaskID
	TargetArtifact symbol.Path
	ExpectedOutput *OutputSpec
}

// NewTask creates a task with the default autonomy ceiling (L3) and a
// generous default resource envelope, matching the decomposer's defaults
// for tasks that don't override them.
func NewTask(role, description string, target symbol.Path) Task {
	return Task{
		ID:             NewTaskID(),
		Role:           role,
		Description:    description,
		Directives:     construct.NewDirectiveSet(),
		Autonomy:       capability.L3,
		Resources:      DefaultTaskResources(),
		TargetArtifact: target,
	}
}

// DefaultTaskResources returns the resource envelope a task gets unless
// the decomposer overrides it.
func DefaultTaskResources() capability.ResourceCaps {
	return capability.ResourceCaps{
		CPUMillis:    500,
		MemoryBytes:  512 << 20,
		TokenLimit:   50_000,
		IterationCap: 60,
	}
}

func (t Task) WithAutonomy(level capability.AutonomyLevel) Task {
	t.Autonomy = level
	return t
}

func (t Task) DependsOn(id TaskID) Task {
	t.Dependencies = append(t.Dependencies, id)
	return t
}

func (t Task) WithResources(r capability.ResourceCaps) Task {
	t.Resources = r
	return t
}

func (t Task) WithDirective(name string, value construct.DirectiveValue) Task {
	t.Directives = t.Directives.Set(name, value)
	return t
}

func (t Task) WithExpectedOutput(o OutputSpec) Task {
	t.ExpectedOutput = &o
	return t
}
