package infra

import (
	"testing"

	"github.com/dcmcore/dcm/internal/core"
	"github.com/dcmcore/dcm/internal/loader"
)

func TestBuildCreatesTopicsTablesAndLatestRoute(t *testing.T) {
	v1 := &core.FrameworkObject{
		Name: "PageView", Version: core.Version{Major: 1},
		IngestionTopic: "pageview_1.0.0", DestinationTable: "pageview_1_0_0",
	}
	v2 := &core.FrameworkObject{
		Name: "PageView", Version: core.Version{Major: 1, Patch: 1},
		IngestionTopic: "pageview_1.0.1", DestinationTable: "pageview_1_0_1",
	}

	project := &loader.Project{
		Models: map[string]*core.FrameworkObjectVersions{
			"PageView": {Name: "PageView", Versions: []*core.FrameworkObject{v1, v2}},
		},
	}

	m := Build(project)

	for _, topic := range []string{"pageview_1.0.0", "pageview_1.0.1"} {
		if _, ok := m.Get(core.NodeID{Kind: core.NodeTopic, Name: topic}); !ok {
			t.Fatalf("expected a Topic node for %s", topic)
		}
	}
	for _, table := range []string{"pageview_1_0_0", "pageview_1_0_1"} {
		if _, ok := m.Get(core.NodeID{Kind: core.NodeTable, Name: table}); !ok {
			t.Fatalf("expected a Table node for %s", table)
		}
	}

	route, ok := m.Get(core.NodeID{Kind: core.NodeIngestionRoute, Name: "/ingest/PageView"})
	if !ok {
		t.Fatal("expected a single IngestionRoute node for the model")
	}
	meta := route.Spec.(*core.RouteMeta)
	if meta.Topic != v2.IngestionTopic {
		t.Fatalf("route should point at the latest version's topic, got %s", meta.Topic)
	}
}

func TestBuildCreatesOneSyncJobPerVersionSync(t *testing.T) {
	sync := core.VersionSync{
		SourceModel: "PageView", Source: core.Version{Major: 1},
		TargetModel: "PageView", Target: core.Version{Major: 1, Patch: 1},
	}
	project := &loader.Project{
		Models: map[string]*core.FrameworkObjectVersions{},
		Syncs:  []core.VersionSync{sync},
	}

	m := Build(project)
	if _, ok := m.Get(core.NodeID{Kind: core.NodeSyncJob, Name: sync.Key()}); !ok {
		t.Fatal("expected a SyncJob node for the VersionSync edge")
	}
}
