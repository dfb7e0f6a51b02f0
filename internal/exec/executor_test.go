package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

type fakeApplier struct {
	calls   []core.Change
	failOn  string
	failErr error
}

func (f *fakeApplier) Apply(_ context.Context, c core.Change) error {
	f.calls = append(f.calls, c)
	name := ""
	switch {
	case c.Node != nil:
		name = c.Node.ID.Name
	case c.Previous != nil:
		name = c.Previous.ID.Name
	}
	if name == f.failOn {
		return f.failErr
	}
	return nil
}

func TestApplyHaltsOnFirstFailureWithoutRollback(t *testing.T) {
	applier := &fakeApplier{failOn: "b", failErr: errors.New("boom")}
	e := New(zerolog.Nop())
	e.Register(core.NodeTopic, applier)

	changes := []core.Change{
		{Kind: core.ChangeCreate, Node: &core.Node{ID: core.NodeID{Kind: core.NodeTopic, Name: "a"}}},
		{Kind: core.ChangeCreate, Node: &core.Node{ID: core.NodeID{Kind: core.NodeTopic, Name: "b"}}},
		{Kind: core.ChangeCreate, Node: &core.Node{ID: core.NodeID{Kind: core.NodeTopic, Name: "c"}}},
	}

	result, err := e.Apply(context.Background(), changes, core.PlanOptions{AllowDestructive: true})
	if err == nil {
		t.Fatal("expected Apply to return an error")
	}
	if len(applier.calls) != 2 {
		t.Fatalf("expected the pass to halt after the failing change, applier saw %d calls", len(applier.calls))
	}
	if len(result.Applied) != 1 || result.Applied[0].Node.ID.Name != "a" {
		t.Fatalf("expected only 'a' to be recorded as applied, got %+v", result.Applied)
	}
	if result.Failed == nil || result.Failed.Node.ID.Name != "b" {
		t.Fatalf("expected 'b' to be recorded as the failed change, got %+v", result.Failed)
	}
}

func TestApplyBlocksDestructiveChangeWithoutOptIn(t *testing.T) {
	applier := &fakeApplier{}
	e := New(zerolog.Nop())
	e.Register(core.NodeTable, applier)

	changes := []core.Change{
		{Kind: core.ChangeDelete, Previous: &core.Node{ID: core.NodeID{Kind: core.NodeTable, Name: "events"}}, Destructive: true},
	}

	_, err := e.Apply(context.Background(), changes, core.PlanOptions{AllowDestructive: false})
	if err == nil {
		t.Fatal("expected Apply to reject a destructive change without AllowDestructive")
	}
	if len(applier.calls) != 0 {
		t.Fatal("the applier should never be invoked for a blocked destructive change")
	}
}

func TestApplySucceedsWithNoAppliers(t *testing.T) {
	e := New(zerolog.Nop())
	result, err := e.Apply(context.Background(), nil, core.PlanOptions{})
	if err != nil {
		t.Fatalf("Apply with no changes should succeed, got %v", err)
	}
	if len(result.Applied) != 0 {
		t.Fatalf("expected no applied changes, got %+v", result.Applied)
	}
}
