// Package state implements the State Store (C10): the last successfully
// applied InfrastructureMap, persisted with golang-migrate/v4 schema
// migrations over modernc.org/sqlite, the same pairing pkg/stores.SQLiteStore
// uses in the teacher codebase. Writes only ever happen after a full,
// successful Executor run (§4.5, §4.10) -- callers never see a partially
// applied map reflected here.
package state

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"

	"github.com/dcmcore/dcm/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists the last-applied InfrastructureMap in a single-row table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, runs
// pending migrations, and returns a ready Store. It also exposes the raw
// *sql.DB so internal/introspect.SQLOLAP can observe/mutate the same
// database as the dev-mode OLAP stand-in (§1 Domain Stack).
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.NewInternalError("open state database", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, core.NewInternalError("ping state database", err)
	}

	if err := migrate1(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate1(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return core.NewInternalError("load embedded migrations", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return core.NewInternalError("create migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return core.NewInternalError("create migrator", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return core.NewInternalError("run migrations", err)
	}
	return nil
}

// DB returns the underlying connection, for components (the OLAP
// introspector) that share the same database.
func (s *Store) DB() *sql.DB { return s.db }

// snapshotNode is the serializable projection of a core.Node: enough to
// recompute Fingerprint identically to the live value (JSON canonicalizes
// the same regardless of concrete Go type), without needing a registry of
// concrete Spec types to unmarshal into.
type snapshotNode struct {
	Kind int    `json:"kind"`
	Name string `json:"name"`
	Spec any    `json:"spec"`
}

// Load returns the last-saved InfrastructureMap, or an empty one if none
// has ever been saved.
func (s *Store) Load(ctx context.Context) (*core.InfrastructureMap, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM infra_map WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return core.NewInfrastructureMap(), nil
	}
	if err != nil {
		return nil, core.NewInternalError("load state snapshot", err)
	}

	var nodes []snapshotNode
	if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
		return nil, core.NewInternalError("decode state snapshot", err)
	}

	m := core.NewInfrastructureMap()
	for _, n := range nodes {
		m.Put(&core.Node{ID: core.NodeID{Kind: core.NodeKind(n.Kind), Name: n.Name}, Spec: n.Spec})
	}
	return m, nil
}

// Save persists m as the new last-applied state. Callers must only invoke
// this after a full, successful Executor.Apply (§4.5).
func (s *Store) Save(ctx context.Context, m *core.InfrastructureMap) error {
	nodes := make([]snapshotNode, 0, len(m.Nodes))
	for id, n := range m.Nodes {
		nodes = append(nodes, snapshotNode{Kind: int(id.Kind), Name: id.Name, Spec: n.Spec})
	}

	raw, err := json.Marshal(nodes)
	if err != nil {
		return core.NewInternalError("encode state snapshot", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO infra_map (id, snapshot, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at
	`, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return core.NewInternalError("save state snapshot", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
