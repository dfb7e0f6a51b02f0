// Package routes implements the Route Table and API Update Channel (C8):
// a many-readers/one-writer map from ingestion path to core.RouteMeta, and
// a bounded channel that publishes every mutation in causal order -- the
// mutation is visible under the table's lock before the update is sent, so
// a reader that receives an update can always immediately look the route
// back up and find it there.
package routes

import (
	"context"
	"sync"

	"github.com/dcmcore/dcm/internal/core"
)

// Table is the dev-mode web server's view of live ingestion routes.
type Table struct {
	mu     sync.RWMutex
	routes map[string]core.RouteMeta
	ch     chan core.RouteUpdate
}

// NewTable returns an empty route table with a bounded update channel.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = core.RouteUpdateChannelCapacity
	}
	return &Table{
		routes: make(map[string]core.RouteMeta),
		ch:     make(chan core.RouteUpdate, capacity),
	}
}

// Updates returns the channel the web server reads route mutations from.
func (t *Table) Updates() <-chan core.RouteUpdate {
	return t.ch
}

// Lookup returns the route registered at path, if any.
func (t *Table) Lookup(path string) (core.RouteMeta, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.routes[path]
	return m, ok
}

// Put installs or replaces the route at meta.Path, then publishes the
// update. The write lock covers only the mutation and is released before
// the send, but the mutation always completes first, so a reader waking up
// on the channel never observes a route table that hasn't caught up yet.
func (t *Table) Put(ctx context.Context, meta core.RouteMeta) error {
	t.mu.Lock()
	t.routes[meta.Path] = meta
	t.mu.Unlock()

	return t.send(ctx, core.RouteUpdate{Path: meta.Path, Meta: meta})
}

// Remove deletes the route at path, then publishes the removal.
func (t *Table) Remove(ctx context.Context, path string) error {
	t.mu.Lock()
	delete(t.routes, path)
	t.mu.Unlock()

	return t.send(ctx, core.RouteUpdate{Path: path, Removed: true})
}

// send blocks until the update is enqueued or ctx is done; the channel is
// bounded (§4.8, §5) so a slow consumer applies backpressure to the
// Executor rather than the table growing without limit.
func (t *Table) send(ctx context.Context, u core.RouteUpdate) error {
	select {
	case t.ch <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of every route currently installed, for
// diagnostics and for introspection to fold into an InfrastructureMap.
func (t *Table) Snapshot() []core.RouteMeta {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.RouteMeta, 0, len(t.routes))
	for _, m := range t.routes {
		out = append(out, m)
	}
	return out
}

// Nodes adapts Snapshot into the shape introspect.Introspector.AddSource
// expects, folding the live route table into the observed
// InfrastructureMap as IngestionRoute nodes.
func (t *Table) Nodes(_ context.Context) ([]*core.Node, error) {
	routes := t.Snapshot()
	nodes := make([]*core.Node, 0, len(routes))
	for _, m := range routes {
		meta := m
		nodes = append(nodes, &core.Node{
			ID:   core.NodeID{Kind: core.NodeIngestionRoute, Name: meta.Path},
			Spec: &meta,
		})
	}
	return nodes, nil
}
