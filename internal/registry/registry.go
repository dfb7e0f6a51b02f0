package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

// Registry manages the lifecycle of one family of worker processes
// (functions, aggregations, or consumption APIs -- §4.6). Start is
// idempotent, Replace stops the previous instance and confirms its exit
// before starting the replacement, and a crashed process is recorded but
// never auto-restarted here; restart policy belongs to the Orchestrator.
type Registry struct {
	kind core.ProcessKind
	log  zerolog.Logger
	sink LineSink

	mu       sync.Mutex
	handles  map[string]*handle
}

// New returns an empty registry of the given kind. sink receives every
// line of stdout/stderr from every worker this registry starts, tagged
// with the worker's ID and stream.
func New(kind core.ProcessKind, log zerolog.Logger, sink LineSink) *Registry {
	return &Registry{
		kind:    kind,
		log:     log.With().Str("component", "registry").Str("kind", string(kind)).Logger(),
		sink:    sink,
		handles: make(map[string]*handle),
	}
}

// Start launches spec's process if it is not already running. Starting an
// already-running process is a no-op (§4.6 idempotent start).
func (r *Registry) Start(_ context.Context, spec core.ProcessSpec) (core.ProcessHandle, error) {
	r.mu.Lock()
	h, exists := r.handles[spec.ID]
	if !exists {
		h = newHandle(spec, r.log)
		r.handles[spec.ID] = h
	}
	r.mu.Unlock()

	if h.Running() {
		return h, nil
	}
	if err := h.start(r.sink); err != nil {
		return nil, err
	}
	r.log.Info().Str("process_id", spec.ID).Msg("<DCM> worker process started")
	return h, nil
}

// Stop gracefully stops the named worker, if present and running.
func (r *Registry) Stop(ctx context.Context, id string) error {
	r.mu.Lock()
	h, exists := r.handles[id]
	r.mu.Unlock()
	if !exists {
		return nil
	}
	if err := h.Stop(ctx); err != nil {
		return err
	}
	r.log.Info().Str("process_id", id).Msg("<DCM> worker process stopped")
	return nil
}

// Replace stops the current worker for spec.ID (confirming its exit) and
// starts a fresh one from spec, even if the argv/env is unchanged -- used
// when a WorkerProcess node's Change is an Update rather than a Create.
func (r *Registry) Replace(ctx context.Context, spec core.ProcessSpec) (core.ProcessHandle, error) {
	if err := r.Stop(ctx, spec.ID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	delete(r.handles, spec.ID)
	r.mu.Unlock()

	return r.Start(ctx, spec)
}

// List returns every worker this registry currently tracks, ordered by ID
// for deterministic output.
func (r *Registry) List() []core.ProcessHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]core.ProcessHandle, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.handles[id])
	}
	return out
}

// Nodes reports every currently-running worker this registry tracks as
// WorkerProcess nodes, so the Introspector can fold live process state into
// the observed InfrastructureMap the same way it already folds in the
// Route Table (§4.2).
func (r *Registry) Nodes(_ context.Context) ([]*core.Node, error) {
	nodes := make([]*core.Node, 0)
	for _, h := range r.List() {
		if !h.Running() {
			continue
		}
		nodes = append(nodes, &core.Node{
			ID:   core.NodeID{Kind: core.NodeWorkerProcess, Name: h.ID()},
			Spec: h.Spec(),
		})
	}
	return nodes, nil
}

// StopAll gracefully stops every worker this registry tracks, used during
// Orchestrator Terminating.
func (r *Registry) StopAll(ctx context.Context) error {
	for _, h := range r.List() {
		if err := r.Stop(ctx, h.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Crashed returns true if the named worker's last run exited non-zero
// without an intervening Stop call.
func (r *Registry) Crashed(id string) bool {
	r.mu.Lock()
	h, exists := r.handles[id]
	r.mu.Unlock()
	if !exists {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.crashed
}
