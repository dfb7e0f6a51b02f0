// Package infra builds the desired InfrastructureMap (C3) from a loaded
// project: every FrameworkObject becomes a Topic and a Table node, every
// VersionSync becomes a SyncJob node, and each model's latest version gets
// an IngestionRoute node. No WorkerProcess nodes are built here. The Planner
// (internal/plan) then diffs this against what internal/introspect observed.
package infra

import (
	"fmt"

	"github.com/dcmcore/dcm/internal/core"
	"github.com/dcmcore/dcm/internal/loader"
)

// Build constructs the desired state for p: one Topic + Table pair per
// FrameworkObject version, one SyncJob per VersionSync, and one
// IngestionRoute per FrameworkObject's latest version (dev mode only ever
// exposes the latest version of a model for ingestion).
func Build(p *loader.Project) *core.InfrastructureMap {
	m := core.NewInfrastructureMap()

	for _, fov := range p.Models {
		for _, obj := range fov.Versions {
			m.Put(&core.Node{
				ID:   core.NodeID{Kind: core.NodeTopic, Name: obj.IngestionTopic},
				Spec: core.TopicSpec{Partitions: 1},
			})
			m.Put(&core.Node{
				ID:   core.NodeID{Kind: core.NodeTable, Name: obj.DestinationTable},
				Spec: core.TableSpec{Columns: obj.Columns},
			})
		}

		latest := fov.Latest()
		if latest != nil {
			m.Put(&core.Node{
				ID: core.NodeID{Kind: core.NodeIngestionRoute, Name: routePath(fov.Name)},
				Spec: &core.RouteMeta{
					Path:  routePath(fov.Name),
					Topic: latest.IngestionTopic,
					Model: fov.Name,
				},
			})
		}
	}

	for _, s := range p.Syncs {
		m.Put(&core.Node{
			ID:   core.NodeID{Kind: core.NodeSyncJob, Name: s.Key()},
			Spec: s,
		})
	}

	return m
}

func routePath(model string) string {
	return fmt.Sprintf("/ingest/%s", model)
}
