package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

type fakeSource struct {
	mu   sync.Mutex
	chs  map[string]chan map[string]any
}

func newFakeSource() *fakeSource {
	return &fakeSource{chs: make(map[string]chan map[string]any)}
}

func (s *fakeSource) Consume(_ context.Context, topic string) (<-chan map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chs[topic]
	if !ok {
		ch = make(chan map[string]any, 16)
		s.chs[topic] = ch
	}
	return ch, nil
}

func (s *fakeSource) send(topic string, rec map[string]any) {
	s.mu.Lock()
	ch, ok := s.chs[topic]
	if !ok {
		ch = make(chan map[string]any, 16)
		s.chs[topic] = ch
	}
	s.mu.Unlock()
	ch <- rec
}

type fakeSink struct {
	mu      sync.Mutex
	records []map[string]any
	table   string
}

func (s *fakeSink) Produce(_ context.Context, table string, record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.records = append(s.records, record)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testSync() core.VersionSync {
	return core.VersionSync{
		SourceModel: "PageView", Source: core.Version{Major: 1},
		TargetModel: "PageView", Target: core.Version{Major: 1, Patch: 1},
	}
}

func TestStartIsIdempotentAndRoutesRecordsThroughToSink(t *testing.T) {
	src := newFakeSource()
	sink := &fakeSink{}
	r := New(zerolog.Nop(), src, sink)

	vs := testSync()
	if err := r.Start(context.Background(), vs); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background(), vs); err != nil {
		t.Fatalf("Start (again): %v", err)
	}
	if !r.Running(vs.Key()) {
		t.Fatal("expected the sync job to be running")
	}

	src.send(sourceTopicOf(vs), map[string]any{"id": "1"})

	deadline := time.Now().Add(time.Second)
	for sink.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() != 1 {
		t.Fatalf("expected exactly one record to reach the sink, got %d", sink.count())
	}
	if sink.table != targetTableOf(vs) {
		t.Fatalf("Produce table = %q, want %q", sink.table, targetTableOf(vs))
	}
}

func TestStopCancelsTheWorkerAndWaitsForExit(t *testing.T) {
	src := newFakeSource()
	sink := &fakeSink{}
	r := New(zerolog.Nop(), src, sink)

	vs := testSync()
	if err := r.Start(context.Background(), vs); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r.Stop(vs.Key())
	if r.Running(vs.Key()) {
		t.Fatal("expected the worker to no longer be running after Stop")
	}
}

func TestStartWithAChangedSpecReplacesTheRunningWorker(t *testing.T) {
	src := newFakeSource()
	sink := &fakeSink{}
	r := New(zerolog.Nop(), src, sink)

	vs := testSync()
	if err := r.Start(context.Background(), vs); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r.mu.Lock()
	first := r.workers[vs.Key()]
	r.mu.Unlock()

	changed := vs
	changed.Transform = "uppercase_id"
	if err := r.Start(context.Background(), changed); err != nil {
		t.Fatalf("Start (changed spec): %v", err)
	}

	select {
	case <-first.done:
	case <-time.After(time.Second):
		t.Fatal("expected the original worker to have been stopped and replaced")
	}

	r.mu.Lock()
	second := r.workers[vs.Key()]
	r.mu.Unlock()
	if second == first {
		t.Fatal("expected a changed spec to install a fresh worker, not reuse the old one")
	}
	if second.sync.Transform != "uppercase_id" {
		t.Fatalf("replaced worker sync.Transform = %q, want %q", second.sync.Transform, "uppercase_id")
	}
	if !r.Running(vs.Key()) {
		t.Fatal("expected the replacement worker to be running")
	}
}

func TestNodesReportsEveryRunningWorkerAsASyncJobNode(t *testing.T) {
	src := newFakeSource()
	sink := &fakeSink{}
	r := New(zerolog.Nop(), src, sink)

	vs := testSync()
	if err := r.Start(context.Background(), vs); err != nil {
		t.Fatalf("Start: %v", err)
	}

	nodes, err := r.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected exactly one node, got %d", len(nodes))
	}
	if nodes[0].ID.Kind != core.NodeSyncJob || nodes[0].ID.Name != vs.Key() {
		t.Fatalf("unexpected node ID: %+v", nodes[0].ID)
	}
	if got, ok := nodes[0].Spec.(core.VersionSync); !ok || got != vs {
		t.Fatalf("Nodes spec = %+v, want %+v", nodes[0].Spec, vs)
	}
}

func TestStopAllStopsEveryWorker(t *testing.T) {
	src := newFakeSource()
	sink := &fakeSink{}
	r := New(zerolog.Nop(), src, sink)

	a := testSync()
	b := testSync()
	b.TargetModel = "PageViewV2"

	if err := r.Start(context.Background(), a); err != nil {
		t.Fatalf("Start a: %v", err)
	}
	if err := r.Start(context.Background(), b); err != nil {
		t.Fatalf("Start b: %v", err)
	}

	r.StopAll()

	if r.Running(a.Key()) || r.Running(b.Key()) {
		t.Fatal("expected StopAll to stop every running worker")
	}
}
