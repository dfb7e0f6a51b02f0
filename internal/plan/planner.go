// Package plan implements the Planner (C4): it orders the structural diff
// between observed and desired InfrastructureMaps into the sequence the
// Executor must apply, and gates Destructive changes behind the operator's
// explicit opt-in.
package plan

import (
	"sort"

	"github.com/dcmcore/dcm/internal/core"
	"github.com/dcmcore/dcm/internal/policy"
)

// Planner computes an ordered Change list from a structural diff.
type Planner struct {
	authz *policy.Engine
}

// New returns a Planner that consults authz to decide whether Destructive
// changes may proceed.
func New(authz *policy.Engine) *Planner {
	return &Planner{authz: authz}
}

// Plan implements core.Planner. Ordering follows §4.4: creates of
// prerequisite kinds before creates of dependent kinds, then updates, then
// deletes in the reverse of creation order; lexicographic name comparison
// breaks ties within an identical (phase, kind) bucket so plans are
// deterministic across runs given the same inputs.
func (p *Planner) Plan(current, desired *core.InfrastructureMap, opts core.PlanOptions) ([]core.Change, error) {
	changes := core.Diff(current, desired)

	for i := range changes {
		if changes[i].Destructive {
			allowed, err := p.authz.AllowDestructive(changes[i], opts)
			if err != nil {
				return nil, core.NewPlanError("evaluate destructive-change policy", err)
			}
			if !allowed {
				return nil, core.NewPlanError(
					"plan includes a destructive change without authorization", nil).
					WithResource(changeName(changes[i]))
			}
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return lessChange(changes[i], changes[j])
	})

	return changes, nil
}

// phaseOf assigns a sort phase to a Change: creates first, then updates,
// then deletes, matching the Executor's "prerequisites before dependents,
// then mutate, then tear down" contract (§4.4/§4.5).
func phaseOf(c core.Change) int {
	switch c.Kind {
	case core.ChangeCreate:
		return 0
	case core.ChangeUpdate:
		return 1
	case core.ChangeDelete:
		return 2
	default:
		return 3
	}
}

// kindOf returns the NodeKind governing ordering within a phase: creates
// and updates order by the node's own kind (prerequisite kinds first),
// deletes order by the reverse (dependents torn down before the
// prerequisites they depended on).
func kindOf(c core.Change) core.NodeKind {
	if c.Kind == core.ChangeDelete {
		return reverseKind(c.Previous.ID.Kind)
	}
	return c.Node.ID.Kind
}

// reverseKind inverts NodeKind's natural prerequisite order, so a Delete's
// sort key places dependents (e.g. IngestionRoute) ahead of the
// prerequisites they depend on (e.g. Topic), undoing creation order.
func reverseKind(k core.NodeKind) core.NodeKind {
	return core.NodeWorkerProcess - k
}

func changeName(c core.Change) string {
	if c.Node != nil {
		return c.Node.ID.Name
	}
	if c.Previous != nil {
		return c.Previous.ID.Name
	}
	return ""
}

func lessChange(a, b core.Change) bool {
	if pa, pb := phaseOf(a), phaseOf(b); pa != pb {
		return pa < pb
	}
	if ka, kb := kindOf(a), kindOf(b); ka != kb {
		return ka < kb
	}
	return changeName(a) < changeName(b)
}
