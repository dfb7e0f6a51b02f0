package exec

import (
	"context"
	"fmt"

	"github.com/dcmcore/dcm/internal/core"
	"github.com/dcmcore/dcm/internal/introspect"
	"github.com/dcmcore/dcm/internal/registry"
	"github.com/dcmcore/dcm/internal/routes"
	syncpkg "github.com/dcmcore/dcm/internal/sync"
)

// TopicApplier creates/deletes BUS topics.
type TopicApplier struct{ BUS *introspect.InMemoryBUS }

func (a *TopicApplier) Apply(ctx context.Context, c core.Change) error {
	switch c.Kind {
	case core.ChangeCreate:
		spec, ok := c.Node.Spec.(core.TopicSpec)
		if !ok {
			return core.NewApplyError("topic node spec is not a TopicSpec", nil).WithResource(c.Node.ID.Name)
		}
		return a.BUS.CreateTopic(ctx, c.Node.ID.Name, spec.Partitions)
	case core.ChangeDelete:
		return a.BUS.DeleteTopic(ctx, c.Previous.ID.Name)
	case core.ChangeUpdate:
		// Every Topic update is Destructive (core.isDestructiveUpdate): this
		// system has no live partition migration, so drop and recreate.
		spec, ok := c.Node.Spec.(core.TopicSpec)
		if !ok {
			return core.NewApplyError("topic node spec is not a TopicSpec", nil).WithResource(c.Node.ID.Name)
		}
		if err := a.BUS.DeleteTopic(ctx, c.Previous.ID.Name); err != nil {
			return err
		}
		return a.BUS.CreateTopic(ctx, c.Node.ID.Name, spec.Partitions)
	default:
		return nil
	}
}

// TableApplier creates/drops/alters OLAP tables. An Update that only adds
// columns (core.Change.Destructive == false) is applied in place with
// ALTER TABLE ADD COLUMN; any other Update drops and recreates (§4.4 rule
// 2, spec.md S4).
type TableApplier struct{ OLAP *introspect.SQLOLAP }

func (a *TableApplier) Apply(ctx context.Context, c core.Change) error {
	switch c.Kind {
	case core.ChangeCreate:
		spec, ok := c.Node.Spec.(core.TableSpec)
		if !ok {
			return core.NewApplyError("table node spec is not a TableSpec", nil).WithResource(c.Node.ID.Name)
		}
		return a.OLAP.EnsureTable(ctx, c.Node.ID.Name, spec.Columns)
	case core.ChangeDelete:
		return a.OLAP.DropTable(ctx, c.Previous.ID.Name)
	case core.ChangeUpdate:
		if !c.Destructive {
			return a.addColumns(ctx, c)
		}
		if err := a.OLAP.DropTable(ctx, c.Previous.ID.Name); err != nil {
			return err
		}
		spec, ok := c.Node.Spec.(core.TableSpec)
		if !ok {
			return core.NewApplyError("table node spec is not a TableSpec", nil).WithResource(c.Node.ID.Name)
		}
		return a.OLAP.EnsureTable(ctx, c.Node.ID.Name, spec.Columns)
	default:
		return nil
	}
}

// addColumns issues one ALTER TABLE ADD COLUMN per column present in the
// desired spec but absent from the previous one.
func (a *TableApplier) addColumns(ctx context.Context, c core.Change) error {
	prev, ok := c.Previous.Spec.(core.TableSpec)
	if !ok {
		return core.NewApplyError("table node spec is not a TableSpec", nil).WithResource(c.Node.ID.Name)
	}
	next, ok := c.Node.Spec.(core.TableSpec)
	if !ok {
		return core.NewApplyError("table node spec is not a TableSpec", nil).WithResource(c.Node.ID.Name)
	}

	existing := make(map[string]struct{}, len(prev.Columns))
	for _, col := range prev.Columns {
		existing[col.Name] = struct{}{}
	}

	for _, col := range next.Columns {
		if _, ok := existing[col.Name]; ok {
			continue
		}
		if err := a.OLAP.AddColumn(ctx, c.Node.ID.Name, col); err != nil {
			return err
		}
	}
	return nil
}

// SyncJobApplier starts/stops Sync Registry workers.
type SyncJobApplier struct{ Registry *syncpkg.Registry }

func (a *SyncJobApplier) Apply(ctx context.Context, c core.Change) error {
	switch c.Kind {
	case core.ChangeCreate, core.ChangeUpdate:
		vs, ok := c.Node.Spec.(core.VersionSync)
		if !ok {
			return core.NewApplyError("sync job node spec is not a VersionSync", nil).WithResource(c.Node.ID.Name)
		}
		return a.Registry.Start(ctx, vs)
	case core.ChangeDelete:
		a.Registry.Stop(c.Previous.ID.Name)
		return nil
	default:
		return nil
	}
}

// RouteApplier mutates the Route Table.
type RouteApplier struct{ Table *routes.Table }

func (a *RouteApplier) Apply(ctx context.Context, c core.Change) error {
	switch c.Kind {
	case core.ChangeCreate, core.ChangeUpdate:
		meta, ok := c.Node.Spec.(*core.RouteMeta)
		if !ok {
			return core.NewApplyError("route node spec is not a RouteMeta", nil).WithResource(c.Node.ID.Name)
		}
		return a.Table.Put(ctx, *meta)
	case core.ChangeDelete:
		return a.Table.Remove(ctx, c.Previous.ID.Name)
	default:
		return nil
	}
}

// ProcessApplier starts/replaces/stops worker processes through whichever
// of the three Process Registries owns the node's ProcessKind.
type ProcessApplier struct {
	Functions    *registry.Registry
	Aggregations *registry.Registry
	Consumption  *registry.Registry
}

func (a *ProcessApplier) registryFor(kind core.ProcessKind) *registry.Registry {
	switch kind {
	case core.ProcessFunction:
		return a.Functions
	case core.ProcessAggregation:
		return a.Aggregations
	case core.ProcessConsumption:
		return a.Consumption
	default:
		return nil
	}
}

func (a *ProcessApplier) Apply(ctx context.Context, c core.Change) error {
	switch c.Kind {
	case core.ChangeCreate:
		spec, ok := c.Node.Spec.(core.ProcessSpec)
		if !ok {
			return core.NewApplyError("worker node spec is not a ProcessSpec", nil).WithResource(c.Node.ID.Name)
		}
		r := a.registryFor(spec.Kind)
		if r == nil {
			return fmt.Errorf("no registry for process kind %q", spec.Kind)
		}
		_, err := r.Start(ctx, spec)
		return err
	case core.ChangeUpdate:
		spec, ok := c.Node.Spec.(core.ProcessSpec)
		if !ok {
			return core.NewApplyError("worker node spec is not a ProcessSpec", nil).WithResource(c.Node.ID.Name)
		}
		r := a.registryFor(spec.Kind)
		if r == nil {
			return fmt.Errorf("no registry for process kind %q", spec.Kind)
		}
		_, err := r.Replace(ctx, spec)
		return err
	case core.ChangeDelete:
		spec, ok := c.Previous.Spec.(core.ProcessSpec)
		if !ok {
			return nil
		}
		r := a.registryFor(spec.Kind)
		if r == nil {
			return nil
		}
		return r.Stop(ctx, c.Previous.ID.Name)
	default:
		return nil
	}
}
