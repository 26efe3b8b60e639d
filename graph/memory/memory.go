// Package memory implements graph.Backend as an in-memory adjacency-list
// graph, grounded in the node/edge map shape of
// ritamzico-pgraph/internal/graph's ProbabilisticAdjacencyListGraph: a node
// map, a relationship map, and per-node out/in adjacency indexes, here
// without the probabilistic sampling layer since this engine has no
// inference component.
//
// This is the reference backend the engine and its own test suite run
// against; it is not meant to be a production store (spec.md §1 scopes
// physical storage out of the core entirely).
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/jakewins/cyphercore/graph"
)

type node struct {
	id     int64
	labels map[string]struct{}
	props  map[string]any
}

type relationship struct {
	id    int64
	typ   string
	start int64
	end   int64
	props map[string]any
}

// Backend is a single-writer-at-a-time, snapshot-free in-memory graph. Its
// Begin/Commit/Rollback are no-ops beyond bookkeeping since it has no
// durability layer to bracket (spec.md's durability concerns are explicitly
// external to the core).
type Backend struct {
	mu sync.RWMutex

	nodes   map[int64]*node
	rels    map[int64]*relationship
	out     map[int64][]int64 // node id -> outgoing relationship ids
	in      map[int64][]int64 // node id -> incoming relationship ids
	byLabel map[string]map[int64]struct{}

	nextNodeID int64
	nextRelID  int64

	inTx bool
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		nodes:   make(map[int64]*node),
		rels:    make(map[int64]*relationship),
		out:     make(map[int64][]int64),
		in:      make(map[int64][]int64),
		byLabel: make(map[string]map[int64]struct{}),
	}
}

var _ graph.Backend = (*Backend)(nil)

type idStream struct {
	ids []int64
	pos int
}

func (s *idStream) Next() (int64, bool, error) {
	if s.pos >= len(s.ids) {
		return 0, false, nil
	}
	id := s.ids[s.pos]
	s.pos++
	return id, true, nil
}

func (s *idStream) Close() error { return nil }

func (b *Backend) AllNodes(ctx context.Context) (graph.NodeIDStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]int64, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &idStream{ids: ids}, nil
}

func (b *Backend) NodesByLabel(ctx context.Context, label string) (graph.NodeIDStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.byLabel[label]
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &idStream{ids: ids}, nil
}

func (b *Backend) Node(ctx context.Context, id int64) (graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return graph.Node{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[id]
	if !ok {
		return graph.Node{}, fmt.Errorf("memory: no such node %d", id)
	}
	labels := make([]string, 0, len(n.labels))
	for l := range n.labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return graph.Node{ID: n.id, Labels: labels, Properties: maps.Clone(n.props)}, nil
}

func (b *Backend) Rel(ctx context.Context, id int64) (graph.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return graph.Relationship{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rels[id]
	if !ok {
		return graph.Relationship{}, fmt.Errorf("memory: no such relationship %d", id)
	}
	return graph.Relationship{
		ID: r.id, Type: r.typ, Start: r.start, End: r.end,
		Properties: maps.Clone(r.props),
	}, nil
}

func (b *Backend) RelsOf(ctx context.Context, nodeID int64, dir graph.Direction, relType string) (graph.RelIDStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	var candidates []int64
	switch dir {
	case graph.Out:
		candidates = b.out[nodeID]
	case graph.In:
		candidates = b.in[nodeID]
	default:
		candidates = append(append([]int64{}, b.out[nodeID]...), b.in[nodeID]...)
	}

	ids := make([]int64, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))
	for _, rid := range candidates {
		if _, dup := seen[rid]; dup {
			continue // self-loops appear in both out[n] and in[n] under Both
		}
		seen[rid] = struct{}{}
		if relType != "" && b.rels[rid].typ != relType {
			continue
		}
		ids = append(ids, rid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &idStream{ids: ids}, nil
}

func (b *Backend) CreateNode(ctx context.Context, labels []string, props map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextNodeID++
	id := b.nextNodeID
	labelSet := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		labelSet[l] = struct{}{}
		if b.byLabel[l] == nil {
			b.byLabel[l] = make(map[int64]struct{})
		}
		b.byLabel[l][id] = struct{}{}
	}
	b.nodes[id] = &node{id: id, labels: labelSet, props: maps.Clone(props)}
	return id, nil
}

func (b *Backend) CreateRel(ctx context.Context, start, end int64, relType string, props map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.nodes[start]; !ok {
		return 0, fmt.Errorf("memory: no such node %d", start)
	}
	if _, ok := b.nodes[end]; !ok {
		return 0, fmt.Errorf("memory: no such node %d", end)
	}

	b.nextRelID++
	id := b.nextRelID
	b.rels[id] = &relationship{id: id, typ: relType, start: start, end: end, props: maps.Clone(props)}
	b.out[start] = append(b.out[start], id)
	b.in[end] = append(b.in[end], id)
	return id, nil
}

func (b *Backend) Begin(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inTx {
		return fmt.Errorf("memory: transaction already active")
	}
	b.inTx = true
	return nil
}

func (b *Backend) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inTx = false
	return nil
}

// Rollback on this backend cannot undo writes already applied in-place;
// callers that need rollback semantics over CREATE must buffer writes
// themselves. exec's CREATE iterator does not buffer: it calls CreateNode
// and CreateRel one entity at a time as it processes a row, so writes
// made before a failure stay in the graph.
func (b *Backend) Rollback(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inTx = false
	return nil
}
