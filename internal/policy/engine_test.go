package policy

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestAllowDestructiveDeniedByDefault(t *testing.T) {
	e := newTestEngine(t)
	allowed, err := e.AllowDestructive(core.Change{Kind: core.ChangeDelete, Destructive: true}, core.PlanOptions{})
	if err != nil {
		t.Fatalf("AllowDestructive: %v", err)
	}
	if allowed {
		t.Fatal("destructive changes must be denied without an explicit opt-in")
	}
}

func TestAllowDestructiveWithOptIn(t *testing.T) {
	e := newTestEngine(t)
	allowed, err := e.AllowDestructive(core.Change{Kind: core.ChangeDelete, Destructive: true},
		core.PlanOptions{AllowDestructive: true, IsProduction: false})
	if err != nil {
		t.Fatalf("AllowDestructive: %v", err)
	}
	if !allowed {
		t.Fatal("destructive changes should be allowed once opted in outside production")
	}
}

func TestAllowDestructiveProductionAlwaysDenied(t *testing.T) {
	e := newTestEngine(t)
	allowed, err := e.AllowDestructive(core.Change{Kind: core.ChangeDelete, Destructive: true},
		core.PlanOptions{AllowDestructive: true, IsProduction: true})
	if err != nil {
		t.Fatalf("AllowDestructive: %v", err)
	}
	if allowed {
		t.Fatal("production must categorically block destructive changes, even with the opt-in set")
	}
}
