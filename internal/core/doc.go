// Package core defines the shared types, errors, and interfaces that every
// other internal/ package builds on: the data model (FrameworkObject,
// FrameworkObjectVersions, VersionSync), the infrastructure model
// (InfrastructureMap, Node, Change), and the interfaces each component
// implements (ModelExtractor, Planner, Executor, StateStore).
//
// # Data model vs. infrastructure model
//
// A FrameworkObject describes a data model at one version: its columns and
// the OLAP table / BUS topic names derived from them. An InfrastructureMap
// is the flattened, kind-tagged view of everything derived from the current
// set of models: Topic and Table nodes come from FrameworkObjects directly,
// SyncJob nodes come from VersionSyncs, and IngestionRoute nodes come from
// each model's latest version. On the observed side, IngestionRoute,
// SyncJob and WorkerProcess nodes come from the running project's Route
// Table and registries.
//
// # Errors
//
// CoreError carries two independent classifications: Kind says which
// pipeline stage produced the error (config, introspection, plan, apply,
// process), Class says whether the orchestrator may retry it (transient,
// conflict, permanent). Use IsKind and IsRetryable rather than comparing
// fields directly.
package core
