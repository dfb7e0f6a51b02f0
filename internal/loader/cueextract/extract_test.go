package cueextract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dcmcore/dcm/internal/core"
)

func writeCUE(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.cue")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write cue file: %v", err)
	}
	return path
}

func TestCanHandleOnlyMatchesCUEFiles(t *testing.T) {
	e := New()
	if !e.CanHandle("models/PageView.cue") {
		t.Fatal("expected a .cue path to be handled")
	}
	if e.CanHandle("models/PageView.yaml") {
		t.Fatal("did not expect a .yaml path to be handled")
	}
}

func TestExtractDecodesNameVersionAndColumns(t *testing.T) {
	path := writeCUE(t, `
name:    "PageView"
version: "1.2.0"
columns: [
	{name: "event_id", type: "string", primary: true},
	{name: "user_id", type: "string"},
	{name: "occurred_at", type: "datetime", nullable: true},
]
`)

	obj, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if obj.Name != "PageView" {
		t.Fatalf("Name = %q, want PageView", obj.Name)
	}
	if obj.Version != (core.Version{Major: 1, Minor: 2, Patch: 0}) {
		t.Fatalf("Version = %+v, want 1.2.0", obj.Version)
	}
	if len(obj.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d: %+v", len(obj.Columns), obj.Columns)
	}
	if !obj.Columns[0].IsPrimary || obj.Columns[0].PrimaryRank != 1 {
		t.Fatalf("expected event_id to be the first primary column, got %+v", obj.Columns[0])
	}
	if !obj.Columns[2].Nullable {
		t.Fatal("expected occurred_at to be nullable")
	}
	if obj.IngestionTopic != "PageView_1.2.0" {
		t.Fatalf("IngestionTopic = %q", obj.IngestionTopic)
	}
	if obj.DestinationTable != "pageview_1_2_0" {
		t.Fatalf("DestinationTable = %q", obj.DestinationTable)
	}
}

func TestExtractRejectsMissingName(t *testing.T) {
	path := writeCUE(t, `
version: "1.0.0"
columns: []
`)
	if _, err := New().Extract(context.Background(), path); err == nil {
		t.Fatal("expected an error for a missing name field")
	}
}

func TestExtractRejectsMalformedVersion(t *testing.T) {
	path := writeCUE(t, `
name:    "PageView"
version: "not-a-version"
columns: []
`)
	if _, err := New().Extract(context.Background(), path); err == nil {
		t.Fatal("expected an error for a malformed version string")
	}
}
