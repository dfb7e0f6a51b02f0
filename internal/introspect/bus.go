package introspect

import (
	"context"
	"sort"
	"sync"

	"github.com/dcmcore/dcm/internal/core"
)

// InMemoryBUS is the reference implementation of core.BUSIntrospector.
// spec.md keeps the BUS driver itself an external collaborator (no real
// broker wire protocol is in scope); dev mode runs against this in-process
// topic registry instead, which is enough to exercise the full planning and
// execution path without a network dependency.
type InMemoryBUS struct {
	mu     sync.RWMutex
	topics map[string]int // partition counts
	subs   map[string][]chan map[string]any
}

// NewInMemoryBUS returns an empty broker.
func NewInMemoryBUS() *InMemoryBUS {
	return &InMemoryBUS{topics: make(map[string]int), subs: make(map[string][]chan map[string]any)}
}

// Publish delivers record to every active subscriber of topic. Dev mode has
// no durability guarantees beyond the lifetime of the process -- a real BUS
// driver is explicitly out of scope (§1).
func (b *InMemoryBUS) Publish(_ context.Context, topic string, record map[string]any) error {
	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- record:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel that receives every record Published to topic
// from this point on.
func (b *InMemoryBUS) Subscribe(_ context.Context, topic string) <-chan map[string]any {
	ch := make(chan map[string]any, 256)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// ListTopics reports every topic currently declared.
func (b *InMemoryBUS) ListTopics(_ context.Context) ([]*core.Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.topics))
	for name := range b.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make([]*core.Node, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, &core.Node{
			ID:   core.NodeID{Kind: core.NodeTopic, Name: name},
			Spec: core.TopicSpec{Partitions: b.topics[name]},
		})
	}
	return nodes, nil
}

// CreateTopic declares a topic with the given partition count.
func (b *InMemoryBUS) CreateTopic(_ context.Context, name string, partitions int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if partitions <= 0 {
		partitions = 1
	}
	b.topics[name] = partitions
	return nil
}

// DeleteTopic removes a topic.
func (b *InMemoryBUS) DeleteTopic(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topics, name)
	return nil
}
