package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// NodeKind enumerates the kinds of infrastructure the Infrastructure Map
// (C3) tracks. Ordering here also fixes the Planner's prerequisite order for
// creates: a node of an earlier kind must be created before a node of a
// later kind that depends on it (§4.4).
type NodeKind int

const (
	NodeTopic NodeKind = iota
	NodeTable
	NodeView
	NodeSyncJob
	NodeIngestionRoute
	NodeConsumptionAPI
	NodeWorkerProcess
)

func (k NodeKind) String() string {
	switch k {
	case NodeTopic:
		return "topic"
	case NodeTable:
		return "table"
	case NodeView:
		return "view"
	case NodeSyncJob:
		return "sync_job"
	case NodeIngestionRoute:
		return "ingestion_route"
	case NodeConsumptionAPI:
		return "consumption_api"
	case NodeWorkerProcess:
		return "worker_process"
	default:
		return "unknown"
	}
}

// NodeID identifies a node within an InfrastructureMap.
type NodeID struct {
	Kind NodeKind
	Name string
}

// Node is one piece of concrete infrastructure the Introspector observed or
// the Planner wants to create, with a Spec payload whose shape depends on
// Kind (a TableSpec for tables, a TopicSpec for topics, a VersionSync for
// sync jobs, a *RouteMeta for routes, a ProcessSpec for workers, and so on).
type Node struct {
	ID   NodeID
	Spec any
}

// TableSpec is a Table node's structural-fields payload: the columns that
// define its schema. Only Columns participates in the content fingerprint,
// so a Table node built by introspection (which has no way to recover the
// owning model's name or version, only its columns) compares equal to the
// desired node once the schema truly matches -- the same "identical schema
// hash" equivalence spec.md defines for FrameworkObject, projected onto
// just the Table node.
type TableSpec struct {
	Columns []Column
}

// TopicSpec is a Topic node's structural-fields payload. A topic's only
// configurable property in this system is its partition count.
type TopicSpec struct {
	Partitions int
}

// Fingerprint returns a deterministic digest of the node's Spec, used to
// decide whether an existing node matches the desired one (§4.3).
func (n Node) Fingerprint() string {
	// Encode via a canonical map so struct field order never matters and
	// map key order is always sorted — mirrors the schema-hash technique
	// the reference implementation used for table schemas.
	b, err := json.Marshal(n.Spec)
	if err != nil {
		return ""
	}
	canon := canonicalizeJSON(b)
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}

// canonicalizeJSON re-serializes arbitrary JSON with object keys sorted, so
// that two semantically equal values always produce identical bytes.
func canonicalizeJSON(b []byte) []byte {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return b
	}
	out, err := json.Marshal(canonicalizeValue(v))
	if err != nil {
		return b
	}
	return out
}

func canonicalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = canonicalizeValue(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return t
	}
}

// InfrastructureMap is the full set of observed or desired infrastructure
// nodes for a project (C3).
type InfrastructureMap struct {
	Nodes map[NodeID]*Node
}

// NewInfrastructureMap returns an empty map.
func NewInfrastructureMap() *InfrastructureMap {
	return &InfrastructureMap{Nodes: make(map[NodeID]*Node)}
}

// Put inserts or replaces a node.
func (m *InfrastructureMap) Put(n *Node) {
	m.Nodes[n.ID] = n
}

// Get looks up a node by ID.
func (m *InfrastructureMap) Get(id NodeID) (*Node, bool) {
	n, ok := m.Nodes[id]
	return n, ok
}

// Clone performs a deep-enough copy for planning purposes: a new map with
// the same Node pointers. Node Spec payloads are treated as immutable once
// published into a map, so pointer sharing is safe.
func (m *InfrastructureMap) Clone() *InfrastructureMap {
	out := NewInfrastructureMap()
	for id, n := range m.Nodes {
		out.Nodes[id] = n
	}
	return out
}

// ChangeKind enumerates the operations the Planner may emit (§4.4).
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
	ChangeNoOp   ChangeKind = "noop"
)

// Change is a single unit of planned work: create, update, or delete a
// node. Destructive is true for deletes and for updates that cannot be
// applied without first destroying the existing node (§4.4, §4.5).
type Change struct {
	Kind        ChangeKind
	Node        *Node
	Previous    *Node // nil for creates
	Destructive bool
}

// Diff computes the set of Changes that would transform current into
// desired, without any ordering applied — ordering is the Planner's job
// (internal/plan), this is pure structural comparison (§4.3/§4.4).
func Diff(current, desired *InfrastructureMap) []Change {
	var changes []Change

	for id, want := range desired.Nodes {
		have, existed := current.Nodes[id]
		switch {
		case !existed:
			changes = append(changes, Change{Kind: ChangeCreate, Node: want})
		case have.Fingerprint() != want.Fingerprint():
			changes = append(changes, Change{
				Kind:        ChangeUpdate,
				Node:        want,
				Previous:    have,
				Destructive: isDestructiveUpdate(id.Kind, have, want),
			})
		}
	}

	for id, have := range current.Nodes {
		if _, stillWanted := desired.Nodes[id]; !stillWanted {
			changes = append(changes, Change{Kind: ChangeDelete, Previous: have, Destructive: true})
		}
	}

	return changes
}

// isDestructiveUpdate reports whether an update from have to want cannot be
// applied in place and instead requires tearing the node down (§4.4 rule 2:
// "schema-compatible in place; incompatible updates are expanded into
// ordered Delete+Create"). A Table update is non-destructive exactly when
// it only adds columns; every other Table change, and every Topic change
// (this system has no live partition migration), tears down and recreates.
func isDestructiveUpdate(k NodeKind, have, want *Node) bool {
	if k == NodeTable {
		return !isAdditiveTableChange(have, want)
	}
	return k == NodeTopic
}

// isAdditiveTableChange reports whether want's columns are a strict
// superset of have's: every column have already has is still present in
// want, unchanged. New columns may be appended; nothing may be removed,
// renamed, retyped, or have its nullability/primary-key rank changed.
func isAdditiveTableChange(have, want *Node) bool {
	prev, ok := have.Spec.(TableSpec)
	if !ok {
		return false
	}
	next, ok := want.Spec.(TableSpec)
	if !ok {
		return false
	}

	for _, c := range prev.Columns {
		nc, stillPresent := columnByName(next.Columns, c.Name)
		if !stillPresent || nc != c {
			return false
		}
	}
	return true
}

func columnByName(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
