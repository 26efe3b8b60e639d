// Package graph defines the Graph Backend contract the query pipeline
// consumes (spec.md §6.1) and the backend-owned entity shapes. Physical
// storage is explicitly out of scope for this module (spec.md §1); any
// implementation of Backend suffices. Package graph/memory supplies a
// reference implementation used by this module's own tests.
package graph

import "context"

// Direction constrains relationship traversal at an Expand operator
// (spec.md §6.1).
type Direction int

const (
	Out Direction = iota
	In
	Both
)

// Node is the backend-owned representation of a graph node: an immutable
// id, a label set, and a property map (spec.md §3.2).
type Node struct {
	ID         int64
	Labels     []string
	Properties map[string]any
}

// Relationship is the backend-owned representation of a directed edge with
// exactly one type (spec.md §3.2). Self-loops and multi-edges are
// permitted.
type Relationship struct {
	ID         int64
	Type       string
	Start      int64
	End        int64
	Properties map[string]any
}

// NodeIDStream and RelIDStream are single-pass iterators over ids. They
// model the backend's streaming contract (spec.md §6.1: "all streams are
// single-pass") without committing to a channel or slice representation,
// so a backend can page from disk/network lazily.
type NodeIDStream interface {
	// Next returns the next id, or ok=false when exhausted.
	Next() (id int64, ok bool, err error)
	Close() error
}

type RelIDStream interface {
	Next() (id int64, ok bool, err error)
	Close() error
}

// Backend is the abstract contract the core consumes. Every method must be
// safe to call for the duration of one query under the snapshot isolation
// the backend provides (spec.md §5: "read isolation is delegated to the
// backend, which must provide a snapshot for the duration of the query").
type Backend interface {
	// AllNodes streams every node id in backend iteration order.
	AllNodes(ctx context.Context) (NodeIDStream, error)
	// NodesByLabel streams node ids carrying the given label.
	NodesByLabel(ctx context.Context, label string) (NodeIDStream, error)

	// Node resolves a node id to its labels and properties.
	Node(ctx context.Context, id int64) (Node, error)
	// Rel resolves a relationship id to its type, endpoints and properties.
	Rel(ctx context.Context, id int64) (Relationship, error)

	// RelsOf streams relationship ids incident to node, constrained by
	// direction and, if non-empty, relationship type.
	RelsOf(ctx context.Context, node int64, dir Direction, relType string) (RelIDStream, error)

	// CreateNode and CreateRel implement the write side of CREATE
	// (spec.md §4.3).
	CreateNode(ctx context.Context, labels []string, props map[string]any) (int64, error)
	CreateRel(ctx context.Context, start, end int64, relType string, props map[string]any) (int64, error)

	// Begin/Commit/Rollback bracket a single query (spec.md §5: "if the
	// backend exposes a transaction, the entire query runs in one").
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
