package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dcmcore/dcm/internal/introspect"
)

func TestBUSSourceConsumeReceivesPublishedRecords(t *testing.T) {
	bus := introspect.NewInMemoryBUS()
	src := NewBUSSource(bus)

	ch, err := src.Consume(context.Background(), "events")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if err := bus.Publish(context.Background(), "events", map[string]any{"id": "42"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case rec := <-ch:
		if rec["id"] != "42" {
			t.Fatalf("got %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a record from the BUS source")
	}
}

func TestOLAPSinkProduceInsertsARow(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE events (id TEXT, count INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	sink := NewOLAPSink(db)
	if err := sink.Produce(context.Background(), "events", map[string]any{"id": "a", "count": 3}); err != nil {
		t.Fatalf("Produce: %v", err)
	}

	var id string
	var count int
	row := db.QueryRow(`SELECT id, count FROM events`)
	if err := row.Scan(&id, &count); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if id != "a" || count != 3 {
		t.Fatalf("got id=%q count=%d, want a/3", id, count)
	}
}

func TestOLAPSinkProduceIgnoresEmptyRecords(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE events (id TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	sink := NewOLAPSink(db)
	if err := sink.Produce(context.Background(), "events", map[string]any{}); err != nil {
		t.Fatalf("Produce with an empty record should be a no-op, got: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows inserted, got %d", count)
	}
}
