// Package policy gates Destructive changes (§4.4, §4.5) behind a Rego
// policy evaluated with github.com/open-policy-agent/opa, the same
// rego.New/rego.PrepareForEval shape pkg/policy.Engine uses in the teacher
// codebase, narrowed to the one decision this core needs: may this
// particular Change be applied.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

// destructivePolicy is the built-in Rego module deciding whether a
// Destructive change may proceed. Operators may swap it via LoadPolicy for
// a stricter project-specific rule without this package changing.
const destructivePolicy = `
package dcm.destructive

default allow = false

# Destructive changes require the operator's explicit opt-in everywhere,
# and are never allowed at all once a project is marked production -- dev
# mode's whole point is a workspace where recreating a table is cheap.
allow {
	input.allow_destructive
	not input.is_production
}
`

// Engine evaluates the destructive-change policy.
type Engine struct {
	log   zerolog.Logger
	query rego.PreparedEvalQuery
}

// NewEngine compiles the built-in destructive-change policy.
func NewEngine(log zerolog.Logger) (*Engine, error) {
	e := &Engine{log: log.With().Str("component", "policy").Logger()}
	if err := e.LoadPolicy(context.Background(), destructivePolicy); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadPolicy recompiles the engine's policy from src, a Rego module
// defining `data.dcm.destructive.allow`.
func (e *Engine) LoadPolicy(ctx context.Context, src string) error {
	q, err := rego.New(
		rego.Query("data.dcm.destructive.allow"),
		rego.Module("destructive.rego", src),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("compile destructive-change policy: %w", err)
	}
	e.query = q
	return nil
}

// AllowDestructive reports whether change, a Destructive Change, may be
// applied given opts. §4.4: "the executor refuses to apply Destructive
// changes unless the caller has explicitly opted in", and §6 tightens that
// further when is_production is set.
func (e *Engine) AllowDestructive(change core.Change, opts core.PlanOptions) (bool, error) {
	input := map[string]any{
		"allow_destructive": opts.AllowDestructive,
		"is_production":     opts.IsProduction,
		"kind":              string(change.Kind),
	}

	rs, err := e.query.Eval(context.Background(), rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluate destructive-change policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	if !allowed {
		e.log.Warn().Str("kind", string(change.Kind)).
			Msg("<DCM> destructive change rejected by policy")
	}
	return allowed, nil
}
