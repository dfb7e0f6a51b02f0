package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Version identifies a model's schema generation. Versions are compared
// lexicographically by their dotted component parts, not as opaque strings.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return sign(v.Major - o.Major)
	case v.Minor != o.Minor:
		return sign(v.Minor - o.Minor)
	default:
		return sign(v.Patch - o.Patch)
	}
}

// IsImmediateSuccessor reports whether v is exactly one patch step ahead of o,
// the gap-free successor relation the Project Loader enforces across a
// model's version history (§4.1).
func (v Version) IsImmediateSuccessor(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch+1
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// ColumnType enumerates the primitive types a model column may declare.
type ColumnType string

const (
	ColumnString   ColumnType = "string"
	ColumnInt      ColumnType = "int"
	ColumnFloat    ColumnType = "float"
	ColumnBool     ColumnType = "bool"
	ColumnDateTime ColumnType = "datetime"
	ColumnJSON     ColumnType = "json"
	ColumnArray    ColumnType = "array"
)

// Column describes one field of a data model.
type Column struct {
	Name      string
	Type      ColumnType
	Nullable  bool
	IsPrimary bool
	// PrimaryRank orders composite primary keys; zero when IsPrimary is false.
	PrimaryRank int
}

// FrameworkObject is one versioned data model as the framework understands
// it: its columns, and the concrete OLAP/BUS identities derived from them.
type FrameworkObject struct {
	Name    string
	Version Version
	Columns []Column

	// IngestionTopic is the BUS topic name raw records land on.
	IngestionTopic string
	// DestinationTable is the OLAP table name processed records land in.
	DestinationTable string

	// SchemaHash is a deterministic fingerprint of Columns, used to detect
	// drift between consecutive versions (§2 DiffModelVersions) and between
	// the declared schema and the State Store's last-applied record.
	SchemaHash string
}

// FrameworkObjectVersions is the complete, gap-free, linearly ordered
// version history of one named model, as produced by the Project Loader.
type FrameworkObjectVersions struct {
	Name     string
	Versions []*FrameworkObject // ordered oldest to newest
}

// Latest returns the newest version in the history, or nil if empty.
func (f *FrameworkObjectVersions) Latest() *FrameworkObject {
	if len(f.Versions) == 0 {
		return nil
	}
	return f.Versions[len(f.Versions)-1]
}

// At returns the object at exactly v, or nil if no such version exists.
func (f *FrameworkObjectVersions) At(v Version) *FrameworkObject {
	for _, o := range f.Versions {
		if o.Version == v {
			return o
		}
	}
	return nil
}

// VersionSync is a materialized transform edge between two versions of a
// model (or between two different models): a streaming job reading the
// source's ingestion topic, applying a named transform, and writing to the
// target's destination.
type VersionSync struct {
	Source Version
	Target Version

	SourceModel string
	TargetModel string

	// Transform names the Starlark script the Sync Registry evaluates per
	// record; the empty string means an identity passthrough.
	Transform string
}

// Key uniquely identifies a VersionSync edge within a project.
func (s VersionSync) Key() string {
	return fmt.Sprintf("%s@%s->%s@%s", s.SourceModel, s.Source, s.TargetModel, s.Target)
}

// RouteMeta describes the dev-mode API Update Channel's view of one
// ingestion route: the path clients POST to, and the topic it feeds.
type RouteMeta struct {
	Path  string
	Topic string
	Model string
}

// ProcessKind distinguishes the three Process Registries (§4.6).
type ProcessKind string

const (
	ProcessFunction    ProcessKind = "function"
	ProcessAggregation ProcessKind = "aggregation"
	ProcessConsumption ProcessKind = "consumption"
)

// ProcessSpec is the argv/env/cwd a Process Registry needs to start one
// worker, independent of which registry owns it.
type ProcessSpec struct {
	Kind    ProcessKind
	ID      string
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
}

// HashColumns deterministically fingerprints a column list, the way the
// reference implementation hashed a table schema to detect drift between
// consecutive model versions (§2 DiffModelVersions).
func HashColumns(columns []Column) string {
	b, _ := json.Marshal(columns)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
