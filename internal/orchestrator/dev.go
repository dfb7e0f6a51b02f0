package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/dcmcore/dcm/internal/config"
	"github.com/dcmcore/dcm/internal/core"
	"github.com/dcmcore/dcm/internal/exec"
	"github.com/dcmcore/dcm/internal/infra"
	"github.com/dcmcore/dcm/internal/introspect"
	"github.com/dcmcore/dcm/internal/loader"
	"github.com/dcmcore/dcm/internal/loader/cueextract"
	"github.com/dcmcore/dcm/internal/loader/yamlextract"
	"github.com/dcmcore/dcm/internal/plan"
	"github.com/dcmcore/dcm/internal/policy"
	"github.com/dcmcore/dcm/internal/registry"
	"github.com/dcmcore/dcm/internal/routes"
	"github.com/dcmcore/dcm/internal/state"
	syncpkg "github.com/dcmcore/dcm/internal/sync"
	"github.com/dcmcore/dcm/internal/watcher"
)

// Dev wires every component into the development-mode loop described by
// §4.11 and the reference implementation's start_development_mode: load,
// introspect, plan, execute, serve, and re-enter planning on every
// filesystem change the File Watcher reports.
type Dev struct {
	log zerolog.Logger
	cfg *config.Project

	loader  *loader.Loader
	intro   *introspect.Introspector
	planner *plan.Planner
	exec    *exec.Executor
	store   *state.Store
	routes  *routes.Table
	watch   *watcher.Watcher

	functions    *registry.Registry
	aggregations *registry.Registry
	consumption  *registry.Registry
	syncs        *syncpkg.Registry

	machine *Machine
}

// NewDev assembles a Dev orchestrator for cfg, rooted at projectRoot, using
// dbPath as the State Store / dev-mode OLAP database.
func NewDev(ctx context.Context, log zerolog.Logger, cfg *config.Project, projectRoot, dbPath string) (*Dev, error) {
	store, err := state.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	authz, err := policy.NewEngine(log)
	if err != nil {
		store.Close()
		return nil, err
	}

	olap := introspect.NewSQLOLAP(store.DB())
	bus := introspect.NewInMemoryBUS()
	intro := introspect.New(log, olap, bus)

	routeTable := routes.NewTable(core.RouteUpdateChannelCapacity)
	intro.AddSource(routeTable.Nodes)

	functions := registry.New(core.ProcessFunction, log, nil)
	aggregations := registry.New(core.ProcessAggregation, log, nil)
	consumption := registry.New(core.ProcessConsumption, log, nil)
	intro.AddSource(functions.Nodes)
	intro.AddSource(aggregations.Nodes)
	intro.AddSource(consumption.Nodes)

	syncs := syncpkg.New(log, syncpkg.NewBUSSource(bus), syncpkg.NewOLAPSink(store.DB()))
	intro.AddSource(syncs.Nodes)

	executor := exec.New(log)
	executor.Register(core.NodeTopic, &exec.TopicApplier{BUS: bus})
	executor.Register(core.NodeTable, &exec.TableApplier{OLAP: olap})
	executor.Register(core.NodeSyncJob, &exec.SyncJobApplier{Registry: syncs})
	executor.Register(core.NodeIngestionRoute, &exec.RouteApplier{Table: routeTable})
	executor.Register(core.NodeWorkerProcess, &exec.ProcessApplier{
		Functions: functions, Aggregations: aggregations, Consumption: consumption,
	})

	ld := loader.New(log, cueextract.New(), yamlextract.New())

	return &Dev{
		log:          log.With().Str("component", "orchestrator").Logger(),
		cfg:          cfg,
		loader:       ld,
		intro:        intro,
		planner:      plan.New(authz),
		exec:         executor,
		store:        store,
		routes:       routeTable,
		functions:    functions,
		aggregations: aggregations,
		consumption:  consumption,
		syncs:        syncs,
		machine:      NewMachine(),
	}, nil
}

// Run executes the full dev-mode lifecycle: one initial reconciliation
// pass, then starts the File Watcher and blocks until ctx is cancelled.
func (d *Dev) Run(ctx context.Context, projectRoot string) error {
	if err := d.machine.Transition(StateLoading); err != nil {
		return err
	}
	if err := d.Reconcile(ctx, projectRoot); err != nil {
		return err
	}

	w, err := watcher.New(d.log, projectRoot, func(ctx context.Context) error {
		return d.Reconcile(ctx, projectRoot)
	})
	if err != nil {
		return err
	}
	d.watch = w

	d.log.Info().Msg("<DCM> development mode serving")
	err = w.Run(ctx)

	d.machine.Transition(StateTerminating)
	d.shutdown(context.Background())
	return err
}

// Reconcile runs one full Load -> Introspect -> Plan -> Execute pass and,
// only on success, persists the new state (§4.5, §4.10).
func (d *Dev) Reconcile(ctx context.Context, projectRoot string) (err error) {
	passID := uuid.NewString()
	ctx, span := otel.Tracer("github.com/dcmcore/dcm/internal/orchestrator").Start(ctx, "reconcile")
	defer span.End()

	start := time.Now()
	log := d.log.With().Str("pass_id", passID).Logger()

	defer func() {
		passDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			reconcilePasses.WithLabelValues("error").Inc()
			log.Error().Err(err).Msg("<DCM> reconciliation pass failed")
		} else {
			reconcilePasses.WithLabelValues("ok").Inc()
		}
	}()

	if d.machine.Current() == StateServing {
		// A pass after the first one enters the Serving/Reconciling loop.
		_ = d.machine.Transition(StateReconciling)
	}
	if err := d.machine.Transition(StateLoading); err != nil {
		// Re-entering from Serving/Reconciling is expected after the
		// first pass; ignore illegal-transition noise from the initial
		// state and proceed with the pass regardless.
		_ = err
	}

	project, err := d.loader.Load(ctx, projectRoot)
	if err != nil {
		return err
	}

	d.machine.Transition(StateIntrospecting)
	current, err := d.intro.Observe(ctx)
	if err != nil {
		return err
	}

	desired := infra.Build(project)

	d.machine.Transition(StatePlanning)
	changes, err := d.planner.Plan(current, desired, core.PlanOptions{
		AllowDestructive: d.cfg.AllowDestructive,
		IsProduction:     d.cfg.IsProduction,
	})
	if err != nil {
		return err
	}

	if len(changes) == 0 {
		d.machine.Transition(StateServing)
		return nil
	}

	d.machine.Transition(StateExecuting)
	result, err := d.exec.Apply(ctx, changes, core.PlanOptions{
		AllowDestructive: d.cfg.AllowDestructive,
		IsProduction:     d.cfg.IsProduction,
	})
	if err != nil {
		return fmt.Errorf("reconciliation pass halted after %d changes: %w", len(result.Applied), err)
	}
	changesApplied.Add(float64(len(result.Applied)))

	newState := infra.Build(project)
	if err := d.store.Save(ctx, newState); err != nil {
		return err
	}

	d.machine.Transition(StateServing)
	return nil
}

// Plan runs Load -> Introspect -> Plan without executing, for one-shot
// "what would change" inspection.
func (d *Dev) Plan(ctx context.Context, projectRoot string) ([]core.Change, error) {
	project, err := d.loader.Load(ctx, projectRoot)
	if err != nil {
		return nil, err
	}

	current, err := d.intro.Observe(ctx)
	if err != nil {
		return nil, err
	}

	desired := infra.Build(project)

	return d.planner.Plan(current, desired, core.PlanOptions{
		AllowDestructive: d.cfg.AllowDestructive,
		IsProduction:     d.cfg.IsProduction,
	})
}

// Close releases every resource NewDev opened, without stopping any worker
// processes -- used by the one-shot plan command, which never starts any.
func (d *Dev) Close() error {
	return d.store.Close()
}

func (d *Dev) shutdown(ctx context.Context) {
	d.syncs.StopAll()
	_ = d.functions.StopAll(ctx)
	_ = d.aggregations.StopAll(ctx)
	_ = d.consumption.StopAll(ctx)
	_ = d.store.Close()
}
