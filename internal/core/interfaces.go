package core

import "context"

// ModelExtractor turns a project's on-disk model declarations into
// FrameworkObjects. Implementations are swappable per declaration language
// (C1); this repo ships a CUE-based one and a YAML-based one.
type ModelExtractor interface {
	// Extract parses the model declaration at path and returns the
	// FrameworkObject it describes, without regard to version history.
	Extract(ctx context.Context, path string) (*FrameworkObject, error)

	// CanHandle reports whether path's extension/shape is one this
	// extractor understands.
	CanHandle(path string) bool
}

// OLAPIntrospector observes the tables currently present in the analytical
// store (§4.2).
type OLAPIntrospector interface {
	ListTables(ctx context.Context) ([]*Node, error)
}

// BUSIntrospector observes the topics currently present in the streaming
// broker (§4.2).
type BUSIntrospector interface {
	ListTopics(ctx context.Context) ([]*Node, error)
}

// Planner turns a (current, desired) pair of infrastructure maps into an
// ordered list of Changes (§4.4).
type Planner interface {
	Plan(current, desired *InfrastructureMap, opts PlanOptions) ([]Change, error)
}

// PlanOptions carries the operator-controlled knobs the Planner and
// Executor consult when a plan includes Destructive changes.
type PlanOptions struct {
	AllowDestructive bool
	IsProduction     bool
}

// Executor applies a Change list in order, halting without rollback on the
// first failure (§4.5).
type Executor interface {
	Apply(ctx context.Context, changes []Change, opts PlanOptions) (*ApplyResult, error)
}

// ApplyResult reports how far an Executor got through a Change list.
type ApplyResult struct {
	Applied []Change
	Failed  *Change
	Err     error
}

// StateStore persists the last successfully-applied InfrastructureMap
// (C10). Only the map is stored; there is no separate model inventory.
// Writes only ever happen after a full, successful apply (§4.5, §4.10).
type StateStore interface {
	Load(ctx context.Context) (*InfrastructureMap, error)
	Save(ctx context.Context, m *InfrastructureMap) error
	Close() error
}

// RouteUpdate is pushed onto the API Update Channel (C8) every time the
// Route Table changes, after the mutation has already been applied under
// the table's write lock (causal ordering, §4.8).
type RouteUpdate struct {
	Path    string
	Removed bool
	Meta    RouteMeta
}

// ProcessHandle is what a Process Registry (C6) hands back for a started
// worker: enough to observe its lifecycle without leaking the underlying
// os.Process.
type ProcessHandle interface {
	ID() string
	Kind() ProcessKind
	Spec() ProcessSpec
	Running() bool
	Stop(ctx context.Context) error
}
