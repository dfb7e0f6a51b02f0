// Package introspect implements the Introspector (C2): it observes the
// actual state of the OLAP store and BUS broker and reports them back as
// core.Node values the Planner can diff against the desired
// InfrastructureMap.
package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dcmcore/dcm/internal/core"
)

// SQLOLAP introspects an OLAP store reachable through database/sql. In dev
// mode this is the same embedded modernc.org/sqlite database the State
// Store uses (§1 Domain Stack); a production OLAP driver would satisfy the
// same core.OLAPIntrospector interface without this package changing.
type SQLOLAP struct {
	db *sql.DB
}

// NewSQLOLAP wraps an already-open *sql.DB.
func NewSQLOLAP(db *sql.DB) *SQLOLAP { return &SQLOLAP{db: db} }

// ListTables reports every user table currently present, decoded back into
// Table nodes with enough column metadata to fingerprint against the
// desired map. SQLite's own tables, the migration bookkeeping table, and the
// State Store's infra_map table are not user tables and are skipped.
func (o *SQLOLAP) ListTables(ctx context.Context) ([]*core.Node, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE 'schema_migrations' AND name NOT LIKE 'infra_map'`)
	if err != nil {
		return nil, core.NewIntrospectError("list olap tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, core.NewIntrospectError("scan table name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewIntrospectError("iterate olap tables", err)
	}

	nodes := make([]*core.Node, 0, len(names))
	for _, name := range names {
		cols, err := o.tableColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &core.Node{
			ID:   core.NodeID{Kind: core.NodeTable, Name: name},
			Spec: core.TableSpec{Columns: cols},
		})
	}
	return nodes, nil
}

func (o *SQLOLAP) tableColumns(ctx context.Context, table string) ([]core.Column, error) {
	rows, err := o.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, core.NewIntrospectError("read table info", err).WithResource(table)
	}
	defer rows.Close()

	var cols []core.Column
	rank := 0
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &primaryKey); err != nil {
			return nil, core.NewIntrospectError("scan table info", err).WithResource(table)
		}
		col := core.Column{
			Name:     name,
			Type:     sqliteTypeToColumnType(ctype),
			Nullable: notNull == 0,
		}
		if primaryKey > 0 {
			rank++
			col.IsPrimary = true
			col.PrimaryRank = rank
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func sqliteTypeToColumnType(t string) core.ColumnType {
	switch t {
	case "INTEGER":
		return core.ColumnInt
	case "REAL":
		return core.ColumnFloat
	case "BOOLEAN":
		return core.ColumnBool
	case "TEXT_DATETIME":
		return core.ColumnDateTime
	case "JSON":
		return core.ColumnJSON
	default:
		return core.ColumnString
	}
}

// EnsureTable creates table with cols if it does not exist yet, the
// concrete DDL the Executor issues for core.NodeTable creates. An existing
// table is left as it is; columns are added in place only through AddColumn.
func (o *SQLOLAP) EnsureTable(ctx context.Context, table string, cols []core.Column) error {
	if _, err := o.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (%s)`, table, columnDDL(cols))); err != nil {
		return core.NewApplyError("create table", err).WithResource(table)
	}
	return nil
}

// AddColumn adds a single column to an already-existing table in place, the
// non-destructive path for a schema-compatible Table update (§4.4 rule 2).
// A non-nullable addition needs a constant default so SQLite can backfill
// existing rows.
func (o *SQLOLAP) AddColumn(ctx context.Context, table string, col core.Column) error {
	ddl := fmt.Sprintf("%q %s", col.Name, sqliteColumnDDLType(col.Type))
	if !col.Nullable {
		ddl += fmt.Sprintf(" NOT NULL DEFAULT %s", defaultLiteralFor(col.Type))
	}
	if _, err := o.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %q ADD COLUMN %s`, table, ddl)); err != nil {
		return core.NewApplyError("add column", err).WithResource(table)
	}
	return nil
}

func defaultLiteralFor(t core.ColumnType) string {
	switch t {
	case core.ColumnInt, core.ColumnFloat, core.ColumnBool:
		return "0"
	case core.ColumnJSON:
		return "'{}'"
	default:
		return "''"
	}
}

// DropTable removes table, the DDL for a Destructive Delete Change.
func (o *SQLOLAP) DropTable(ctx context.Context, table string) error {
	if _, err := o.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return core.NewApplyError("drop table", err).WithResource(table)
	}
	return nil
}

func columnDDL(cols []core.Column) string {
	s := ""
	for i, c := range cols {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%q %s", c.Name, sqliteColumnDDLType(c.Type))
		if !c.Nullable {
			s += " NOT NULL"
		}
		if c.IsPrimary {
			s += " PRIMARY KEY"
		}
	}
	if s == "" {
		return "_placeholder INTEGER"
	}
	return s
}

func sqliteColumnDDLType(t core.ColumnType) string {
	switch t {
	case core.ColumnInt:
		return "INTEGER"
	case core.ColumnFloat:
		return "REAL"
	case core.ColumnBool:
		return "BOOLEAN"
	case core.ColumnDateTime:
		return "TEXT_DATETIME"
	case core.ColumnJSON:
		return "JSON"
	default:
		return "TEXT"
	}
}
