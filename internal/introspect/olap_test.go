package introspect

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/dcmcore/dcm/internal/core"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureTableThenListTablesRoundTrips(t *testing.T) {
	db := openTestDB(t)
	olap := NewSQLOLAP(db)

	cols := []core.Column{
		{Name: "event_id", Type: core.ColumnString, IsPrimary: true, PrimaryRank: 1},
		{Name: "count", Type: core.ColumnInt},
	}
	if err := olap.EnsureTable(context.Background(), "pageview_1_0_0", cols); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	nodes, err := olap.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID.Name != "pageview_1_0_0" {
		t.Fatalf("expected the created table to be observed, got %+v", nodes)
	}

	spec := nodes[0].Spec.(core.TableSpec)
	if len(spec.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d: %+v", len(spec.Columns), spec.Columns)
	}
}

func TestAddColumnIsVisibleInASubsequentListTables(t *testing.T) {
	db := openTestDB(t)
	olap := NewSQLOLAP(db)

	if err := olap.EnsureTable(context.Background(), "t", []core.Column{{Name: "id", Type: core.ColumnInt}}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := olap.AddColumn(context.Background(), "t", core.Column{Name: "extra", Type: core.ColumnString, Nullable: true}); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}

	nodes, err := olap.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	spec := nodes[0].Spec.(core.TableSpec)
	if len(spec.Columns) != 2 {
		t.Fatalf("expected the added column to be visible, got %+v", spec.Columns)
	}
}

func TestAddColumnOnNonNullableBackfillsWithADefault(t *testing.T) {
	db := openTestDB(t)
	olap := NewSQLOLAP(db)

	if err := olap.EnsureTable(context.Background(), "t", []core.Column{{Name: "id", Type: core.ColumnInt}}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO "t" (id) VALUES (1)`); err != nil {
		t.Fatalf("insert seed row: %v", err)
	}

	if err := olap.AddColumn(context.Background(), "t", core.Column{Name: "count", Type: core.ColumnInt, Nullable: false}); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT count FROM "t" WHERE id = 1`).Scan(&count); err != nil {
		t.Fatalf("scan backfilled default: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected the backfilled default to be 0, got %d", count)
	}
}

func TestDropTableRemovesIt(t *testing.T) {
	db := openTestDB(t)
	olap := NewSQLOLAP(db)

	if err := olap.EnsureTable(context.Background(), "t", []core.Column{{Name: "id", Type: core.ColumnInt}}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := olap.DropTable(context.Background(), "t"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	nodes, err := olap.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected no tables after drop, got %+v", nodes)
	}
}
