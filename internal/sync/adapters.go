package sync

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/dcmcore/dcm/internal/introspect"
)

// BUSSource adapts introspect.InMemoryBUS into a RecordSource.
type BUSSource struct {
	bus *introspect.InMemoryBUS
}

// NewBUSSource wraps bus.
func NewBUSSource(bus *introspect.InMemoryBUS) *BUSSource { return &BUSSource{bus: bus} }

// Consume subscribes to topic and returns its record stream.
func (s *BUSSource) Consume(ctx context.Context, topic string) (<-chan map[string]any, error) {
	return s.bus.Subscribe(ctx, topic), nil
}

// OLAPSink adapts a *sql.DB into a RecordSink, inserting one row per record.
type OLAPSink struct {
	db *sql.DB
}

// NewOLAPSink wraps db.
func NewOLAPSink(db *sql.DB) *OLAPSink { return &OLAPSink{db: db} }

// Produce inserts record into table, column order fixed by sorted key name
// so repeated calls against the same record shape produce identical SQL.
func (s *OLAPSink) Produce(ctx context.Context, table string, record map[string]any) error {
	if len(record) == 0 {
		return nil
	}

	cols := make([]string, 0, len(record))
	for k := range record {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		args[i] = record[c]
	}

	query := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", table, quoteJoin(cols), join(placeholders))
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func quoteJoin(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q", c)
	}
	return out
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
