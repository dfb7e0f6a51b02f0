package sync

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

// RecordSource feeds records from a VersionSync's source topic.
type RecordSource interface {
	Consume(ctx context.Context, topic string) (<-chan map[string]any, error)
}

// RecordSink accepts records into a VersionSync's target destination.
type RecordSink interface {
	Produce(ctx context.Context, table string, record map[string]any) error
}

// worker runs one VersionSync: read from Source, transform, write to Target.
type worker struct {
	sync   core.VersionSync
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry tracks the running worker for every active VersionSync (C7).
type Registry struct {
	log         zerolog.Logger
	transformer *Transformer
	source      RecordSource
	sink        RecordSink

	mu      sync.Mutex
	workers map[string]*worker
}

// New returns a Sync Registry reading from source and writing to sink.
func New(log zerolog.Logger, source RecordSource, sink RecordSink) *Registry {
	return &Registry{
		log:         log.With().Str("component", "sync-registry").Logger(),
		transformer: NewTransformer(0),
		source:      source,
		sink:        sink,
		workers:     make(map[string]*worker),
	}
}

// Start launches a worker for vs. Starting with the same spec as the
// already-running worker for vs's key is a no-op; starting with a changed
// spec (e.g. a different Transform) replaces the running worker (§4.7:
// "start_all is idempotent ... with a changed spec it performs replace()",
// mirroring registry.Registry.Replace for process workers).
func (r *Registry) Start(ctx context.Context, vs core.VersionSync) error {
	key := vs.Key()

	r.mu.Lock()
	existing, exists := r.workers[key]
	r.mu.Unlock()

	if exists {
		if existing.sync == vs {
			return nil
		}
		return r.Replace(ctx, vs)
	}

	return r.startNew(ctx, vs)
}

// Replace stops the current worker for vs's key, if any, confirms its exit,
// and starts a fresh one from vs -- used when a SyncJob node's Change is an
// Update with a spec that actually changed.
func (r *Registry) Replace(ctx context.Context, vs core.VersionSync) error {
	r.Stop(vs.Key())
	return r.startNew(ctx, vs)
}

func (r *Registry) startNew(ctx context.Context, vs core.VersionSync) error {
	key := vs.Key()
	wctx, cancel := context.WithCancel(ctx)
	w := &worker{sync: vs, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.workers[key] = w
	r.mu.Unlock()

	go r.run(wctx, w)
	r.log.Info().Str("sync", key).Msg("<DCM> sync job started")
	return nil
}

func (r *Registry) run(ctx context.Context, w *worker) {
	defer close(w.done)

	records, err := r.source.Consume(ctx, sourceTopicOf(w.sync))
	if err != nil {
		r.log.Error().Err(err).Str("sync", w.sync.Key()).Msg("<DCM> sync job failed to subscribe")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			out, err := r.transformer.Apply(ctx, w.sync.Transform, rec)
			if err != nil {
				r.log.Error().Err(err).Str("sync", w.sync.Key()).Msg("<DCM> sync job transform failed")
				continue
			}
			if err := r.sink.Produce(ctx, targetTableOf(w.sync), out); err != nil {
				r.log.Error().Err(err).Str("sync", w.sync.Key()).Msg("<DCM> sync job write failed")
			}
		}
	}
}

// Stop cancels the worker for key and waits for it to exit.
func (r *Registry) Stop(key string) {
	r.mu.Lock()
	w, exists := r.workers[key]
	if exists {
		delete(r.workers, key)
	}
	r.mu.Unlock()

	if !exists {
		return
	}
	w.cancel()
	<-w.done
	r.log.Info().Str("sync", key).Msg("<DCM> sync job stopped")
}

// StopAll stops every running sync job, used during Orchestrator Terminating.
func (r *Registry) StopAll() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.workers))
	for k := range r.workers {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	for _, k := range keys {
		r.Stop(k)
	}
}

// Nodes reports every VersionSync worker this registry currently runs as
// SyncJob nodes, so the Introspector can fold live sync state into the
// observed InfrastructureMap the same way it already folds in the Route
// Table (§4.2).
func (r *Registry) Nodes(_ context.Context) ([]*core.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nodes := make([]*core.Node, 0, len(r.workers))
	for key, w := range r.workers {
		nodes = append(nodes, &core.Node{
			ID:   core.NodeID{Kind: core.NodeSyncJob, Name: key},
			Spec: w.sync,
		})
	}
	return nodes, nil
}

// Running reports whether a worker for key is currently active.
func (r *Registry) Running(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.workers[key]
	return exists
}

func sourceTopicOf(vs core.VersionSync) string {
	return vs.SourceModel + "_" + vs.Source.String()
}

func targetTableOf(vs core.VersionSync) string {
	return strings.ToLower(vs.TargetModel) + "_" + strings.ReplaceAll(vs.Target.String(), ".", "_")
}
