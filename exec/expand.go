package exec

import (
	"context"
	"math"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/graph"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/value"
)

// expandIter traverses one relationship hop per outer row, per
// relationship type alternative in RelTypes (an empty list means "any
// type"), honouring Bound-slot equality checks and relationship
// uniqueness (spec.md §4.3: no two pattern-edge slots may bind the same
// relationship id within one MATCH).
type expandIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	outerRow  Row
	haveOuter bool
	typeIdx   int
	stream    stream
}

func (e *expandIter) Open(ctx context.Context) error {
	e.haveOuter = false
	e.typeIdx = 0
	e.stream = nil
	return e.child.Open(ctx)
}

func (e *expandIter) Close() error {
	if e.stream != nil {
		e.stream.Close()
		e.stream = nil
	}
	return e.child.Close()
}

func relTypes(op *planner.Op) []string {
	if len(op.RelTypes) == 0 {
		return []string{""}
	}
	return op.RelTypes
}

func otherEndpoint(rel graph.Relationship, fromID int64, dir graph.Direction) int64 {
	switch dir {
	case graph.Out:
		return rel.End
	case graph.In:
		return rel.Start
	default:
		if rel.Start == fromID {
			return rel.End
		}
		return rel.Start
	}
}

func (e *expandIter) Next(ctx context.Context) (Row, error) {
	types := relTypes(e.op)
	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if e.stream == nil {
			if !e.haveOuter {
				row, err := e.child.Next(ctx)
				if err == ErrDone {
					return nil, ErrDone
				}
				if err != nil {
					return nil, err
				}
				e.outerRow = row
				e.haveOuter = true
				e.typeIdx = 0
			}
			if e.typeIdx >= len(types) {
				e.haveOuter = false
				continue
			}
			fromVal := e.outerRow[e.op.FromSlot]
			fromNode, ok := fromVal.AsNode()
			if !ok {
				return nil, cerr.NewTypeError("Expand source slot %d does not hold a Node", e.op.FromSlot)
			}
			st, err := e.ec.Backend.RelsOf(ctx, fromNode.ID, e.op.Direction, types[e.typeIdx])
			e.typeIdx++
			if err != nil {
				return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
			}
			e.stream = st
		}

		id, ok, err := e.stream.Next()
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		if !ok {
			e.stream.Close()
			e.stream = nil
			continue
		}

		if isUsedRelationship(e.outerRow, e.op.UniquenessSlots, id) {
			continue
		}

		rel, err := e.ec.Backend.Rel(ctx, id)
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		fromVal := e.outerRow[e.op.FromSlot]
		fromNode, _ := fromVal.AsNode()
		other := otherEndpoint(rel, fromNode.ID, e.op.Direction)

		if e.op.RelBound {
			existing, ok := e.outerRow[e.op.RelSlot].AsRelationship()
			if !ok || existing.ID != id {
				continue
			}
		}
		var toNodeVal value.Value
		if e.op.ToBound {
			existing, ok := e.outerRow[e.op.ToSlot].AsNode()
			if !ok || existing.ID != other {
				continue
			}
			toNodeVal = e.outerRow[e.op.ToSlot]
		} else {
			gn, err := e.ec.Backend.Node(ctx, other)
			if err != nil {
				return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
			}
			toNodeVal = value.NodeVal(toValueNode(gn))
		}

		row := make(Row, e.op.Schema.Width())
		copy(row, e.outerRow)
		if !e.op.RelBound {
			row[e.op.RelSlot] = value.RelVal(toValueRel(rel))
		}
		if !e.op.ToBound {
			row[e.op.ToSlot] = toNodeVal
		}
		return row, nil
	}
}

func isUsedRelationship(row Row, slots []int, id int64) bool {
	for _, s := range slots {
		if r, ok := row[s].AsRelationship(); ok && r.ID == id {
			return true
		}
	}
	return false
}

// expandVarLenIter enumerates every simple path (no repeated relationship
// id) of length between Min and Max hops from the source node, depth
// first, yielding a row per path whose length satisfies the range.
// Max == -1 (unbounded) is clamped to ec.VarLenCeiling when that
// engine.Config-controlled ceiling is positive; with a zero ceiling there
// is no depth cap, and the no-repeated-relationship rule alone bounds how
// long a path can grow.
type expandVarLenIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	outerRow  Row
	haveOuter bool
	frames    []vlFrame
}

type vlFrame struct {
	nodeID  int64
	relIDs  []int64
	rels    []graph.Relationship
	typeIdx int
	stream  stream
}

func (e *expandVarLenIter) Open(ctx context.Context) error {
	e.haveOuter = false
	e.frames = nil
	return e.child.Open(ctx)
}

func (e *expandVarLenIter) Close() error {
	for _, f := range e.frames {
		if f.stream != nil {
			f.stream.Close()
		}
	}
	e.frames = nil
	return e.child.Close()
}

func (e *expandVarLenIter) ceiling() int {
	if e.op.Max >= 0 {
		return e.op.Max
	}
	if e.ec.VarLenCeiling > 0 {
		return e.ec.VarLenCeiling
	}
	return math.MaxInt
}

func (e *expandVarLenIter) Next(ctx context.Context) (Row, error) {
	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if len(e.frames) == 0 {
			if !e.haveOuter {
				row, err := e.child.Next(ctx)
				if err == ErrDone {
					return nil, ErrDone
				}
				if err != nil {
					return nil, err
				}
				e.outerRow = row
				e.haveOuter = true
			}
			fromVal := e.outerRow[e.op.FromSlot]
			fromNode, ok := fromVal.AsNode()
			if !ok {
				return nil, cerr.NewTypeError("ExpandVarLen source slot %d does not hold a Node", e.op.FromSlot)
			}
			e.frames = []vlFrame{{nodeID: fromNode.ID}}
		}

		top := &e.frames[len(e.frames)-1]
		hop := len(e.frames)
		types := relTypes(e.op)

		if hop > e.ceiling() {
			e.frames = e.frames[:len(e.frames)-1]
			continue
		}

		if top.stream == nil {
			if top.typeIdx >= len(types) {
				if len(e.frames) == 1 {
					e.frames = nil
					e.haveOuter = false
				} else {
					e.frames = e.frames[:len(e.frames)-1]
				}
				continue
			}
			st, err := e.ec.Backend.RelsOf(ctx, top.nodeID, e.op.Direction, types[top.typeIdx])
			top.typeIdx++
			if err != nil {
				return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
			}
			top.stream = st
		}

		id, ok, err := top.stream.Next()
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		if !ok {
			top.stream.Close()
			top.stream = nil
			continue
		}
		if containsID(top.relIDs, id) || isUsedRelationship(e.outerRow, e.op.UniquenessSlots, id) {
			continue
		}
		rel, err := e.ec.Backend.Rel(ctx, id)
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		nextNode := otherEndpoint(rel, top.nodeID, e.op.Direction)

		nextFrame := vlFrame{
			nodeID: nextNode,
			relIDs: append(append([]int64(nil), top.relIDs...), id),
			rels:   append(append([]graph.Relationship(nil), top.rels...), rel),
		}
		e.frames = append(e.frames, nextFrame)

		if hop < e.op.Min || hop > e.ceiling() {
			continue
		}
		if e.op.ToBound {
			existing, ok := e.outerRow[e.op.ToSlot].AsNode()
			if !ok || existing.ID != nextNode {
				continue
			}
		}
		row, err := e.materialize(ctx, nextFrame)
		if err != nil {
			return nil, err
		}
		return row, nil
	}
}

func containsID(ids []int64, id int64) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func (e *expandVarLenIter) materialize(ctx context.Context, f vlFrame) (Row, error) {
	row := make(Row, e.op.Schema.Width())
	copy(row, e.outerRow)
	relVals := make([]value.Value, len(f.rels))
	for i, r := range f.rels {
		relVals[i] = value.RelVal(toValueRel(r))
	}
	if !e.op.RelBound {
		row[e.op.RelSlot] = value.List(relVals)
	}
	if !e.op.ToBound {
		gn, err := e.ec.Backend.Node(ctx, f.nodeID)
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		row[e.op.ToSlot] = value.NodeVal(toValueNode(gn))
	}
	return row, nil
}
