// Package exec implements the Executor (C5): it applies a Planner-ordered
// Change list strictly in order, halting without rollback on the first
// failure, and only signals the caller to persist new state after every
// Change has succeeded (§4.5).
package exec

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

// NodeApplier applies a single Change for one NodeKind. Create/Update/Delete
// share one method; an applier branches on c.Kind and, for an Update, on
// c.Destructive to decide between an in-place change and a delete-then-
// create (Topic always the latter; Table only when the schema change isn't
// purely additive -- §4.4 rule 2).
type NodeApplier interface {
	Apply(ctx context.Context, c core.Change) error
}

// Executor applies changes against whichever appliers are registered for
// each NodeKind.
type Executor struct {
	log      zerolog.Logger
	appliers map[core.NodeKind]NodeApplier
}

// New returns an Executor with no appliers registered; call Register for
// every NodeKind the project's plans may reference.
func New(log zerolog.Logger) *Executor {
	return &Executor{
		log:      log.With().Str("component", "executor").Logger(),
		appliers: make(map[core.NodeKind]NodeApplier),
	}
}

// Register installs the applier responsible for kind.
func (e *Executor) Register(kind core.NodeKind, applier NodeApplier) {
	e.appliers[kind] = applier
}

// Apply implements core.Executor: changes apply strictly in order, and the
// first failure stops the pass -- already-applied changes are not rolled
// back (§4.5, §5).
func (e *Executor) Apply(ctx context.Context, changes []core.Change, opts core.PlanOptions) (*core.ApplyResult, error) {
	result := &core.ApplyResult{}

	for i := range changes {
		c := changes[i]

		if c.Destructive && !opts.AllowDestructive {
			err := core.NewApplyError("destructive change blocked: allow_destructive not set", nil).
				WithResource(nodeName(c))
			result.Failed = &c
			result.Err = err
			return result, err
		}

		kind := nodeKind(c)
		applier, ok := e.appliers[kind]
		if !ok {
			err := core.NewApplyError("no applier registered for node kind", nil).
				WithResource(kind.String())
			result.Failed = &c
			result.Err = err
			return result, err
		}

		e.log.Info().Str("kind", string(c.Kind)).Str("node", nodeName(c)).
			Msg("<DCM> applying change")

		if err := applier.Apply(ctx, c); err != nil {
			result.Failed = &c
			result.Err = err
			e.log.Error().Err(err).Str("node", nodeName(c)).Msg("<DCM> change application failed, halting pass")
			return result, err
		}

		result.Applied = append(result.Applied, c)
	}

	return result, nil
}

func nodeKind(c core.Change) core.NodeKind {
	if c.Node != nil {
		return c.Node.ID.Kind
	}
	return c.Previous.ID.Kind
}

func nodeName(c core.Change) string {
	if c.Node != nil {
		return c.Node.ID.Name
	}
	if c.Previous != nil {
		return c.Previous.ID.Name
	}
	return ""
}
