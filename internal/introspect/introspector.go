package introspect

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

// Introspector assembles the current InfrastructureMap by querying every
// backing system: the OLAP store, the BUS broker, and whatever additional
// node sources (routes, worker processes) are registered. This is C2.
type Introspector struct {
	log   zerolog.Logger
	olap  core.OLAPIntrospector
	bus   core.BUSIntrospector
	extra []func(context.Context) ([]*core.Node, error)
}

// New returns an Introspector over the given OLAP and BUS backends.
func New(log zerolog.Logger, olap core.OLAPIntrospector, bus core.BUSIntrospector) *Introspector {
	return &Introspector{log: log.With().Str("component", "introspector").Logger(), olap: olap, bus: bus}
}

// AddSource registers an additional node source, used to fold the Route
// Table and Process Registries' live state into the same map (§4.2's
// "process registries" and "route table" observation responsibilities).
func (i *Introspector) AddSource(src func(context.Context) ([]*core.Node, error)) {
	i.extra = append(i.extra, src)
}

// Observe queries every backend and returns the resulting InfrastructureMap.
func (i *Introspector) Observe(ctx context.Context) (*core.InfrastructureMap, error) {
	m := core.NewInfrastructureMap()

	tables, err := i.olap.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range tables {
		m.Put(n)
	}

	topics, err := i.bus.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range topics {
		m.Put(n)
	}

	for _, src := range i.extra {
		nodes, err := src(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			m.Put(n)
		}
	}

	i.log.Debug().Int("nodes", len(m.Nodes)).Msg("<DCM> observed infrastructure")
	return m, nil
}

// DiffModelVersions reports whether cur's schema hash differs from prev's,
// surfacing the original implementation's check_for_model_changes
// diagnostic as a first-class capability (§2 supplement) rather than a
// debug-only side effect.
func DiffModelVersions(prev, cur *core.FrameworkObject) bool {
	if prev == nil || cur == nil {
		return prev != cur
	}
	return prev.SchemaHash != cur.SchemaHash
}
