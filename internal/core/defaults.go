package core

import "time"

// Timing and sizing constants carried over from the reference implementation's
// constants module. These are targets, not hard requirements enforced at
// compile time, but callers should default to them rather than inventing
// their own.
const (
	// WatchDebounce is the minimum quiet period after a filesystem event
	// before the File Watcher triggers a reconciliation pass.
	WatchDebounce = 250 * time.Millisecond

	// ProcessStopGrace is how long a Process Registry waits for a worker to
	// exit after a graceful stop signal before escalating.
	ProcessStopGrace = 5 * time.Second

	// ProcessKillGrace is how long the registry waits after an escalated
	// kill signal before giving up and reporting the stop as failed.
	ProcessKillGrace = 10 * time.Second

	// ApplyTimeout is a per-Change time budget. No package in this module
	// reads it: Executor.Apply runs each Change under the caller's context
	// with no deadline of its own.
	ApplyTimeout = 30 * time.Second

	// RouteDrainGrace is a grace period for in-flight requests against a
	// route being removed. No package in this module reads it: RouteApplier
	// removes a route from the Route Table immediately.
	RouteDrainGrace = 15 * time.Second

	// RouteUpdateChannelCapacity bounds the API Update Channel (C8); once
	// full, the Executor blocks rather than drop an update.
	RouteUpdateChannelCapacity = 64

	// DefaultOLAPPort and DefaultBUSPort are the conventional dev-mode ports.
	// No package in this module reads them: config.Load requires olap.port
	// to be set in moose.config.toml.
	DefaultOLAPPort = 18123
	DefaultBUSPort  = 19092
)
