// Package exec implements the pull-based execution engine (spec.md §4.4,
// SPEC_FULL.md §5.4): one Iterator type per planner.OpKind, each with an
// Open/Next/Close contract, dispatched by Build from the planner's tagged
// operator tree. The iterator shape follows spec.md §4.4's pull-based
// next() contract verbatim, with Go idioms substituted where the teacher
// corpus shows a convention for them: an error return instead of a boxed
// result envelope, and a context.Context as the first argument of Open
// and Next.
package exec

import (
	"context"
	"errors"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/eval"
	"github.com/jakewins/cyphercore/graph"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/semantic"
	"github.com/jakewins/cyphercore/value"
)

// Row is one tuple flowing through the pipeline; exec shares eval's
// definition so no copy is needed crossing the package boundary.
type Row = eval.Row

// ErrDone is the sentinel Next returns once an iterator is exhausted,
// mirroring io.EOF's role for a single-pass stream (spec.md §4.4).
var ErrDone = errors.New("exec: no more rows")

// Iterator is the pull contract every operator implements: Open once
// before the first Next, Next repeatedly until ErrDone, Close exactly
// once regardless of how iteration ended (spec.md §5: "resources are
// released deterministically even on early Limit/cancellation exit").
type Iterator interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (Row, error)
	Close() error
}

// Context carries the per-query dependencies every iterator needs:
// the backend to read/write through and the parameter bindings the
// evaluator resolves $name references against. VarLenCeiling bounds
// ExpandVarLen traversal depth (SPEC_FULL.md §5.7's engine.Config).
type Context struct {
	Backend       graph.Backend
	Params        map[string]value.Value
	VarLenCeiling int
}

// Build lowers a logical plan operator into its executable iterator,
// recursively building children first.
func Build(op *planner.Op, ec *Context) (Iterator, error) {
	it, _, err := build(op, ec)
	return it, err
}

// build additionally returns the single argumentIter leaf reachable from
// op, if any, so OpOptional can rebind it per outer row without walking
// the iterator tree again.
func build(op *planner.Op, ec *Context) (Iterator, *argumentIter, error) {
	if op == nil {
		// A nil *planner.Op means the clause this subtree belongs to is
		// the first in the query (no preceding MATCH/CREATE fed it a
		// child): e.g. a leading OPTIONAL MATCH's outer side, or a
		// standalone "UNWIND"/"RETURN"/"WITH". Substitute the one-row
		// unit source rather than a nil Iterator, so whatever sits above
		// it still has something to pull from.
		return &unitIterator{}, nil, nil
	}
	if op.Kind == planner.OpArgument {
		a := &argumentIter{op: op}
		return a, a, nil
	}
	if op.Kind == planner.OpOptional {
		outerIt, outerLeaf, err := build(op.Children[0], ec)
		if err != nil {
			return nil, nil, err
		}
		innerIt, innerLeaf, err := build(op.Children[1], ec)
		if err != nil {
			return nil, nil, err
		}
		return &optionalIter{op: op, ec: ec, outer: outerIt, inner: innerIt, innerLeaf: innerLeaf}, outerLeaf, nil
	}
	children := make([]Iterator, len(op.Children))
	var argLeaf *argumentIter
	for i, c := range op.Children {
		it, leaf, err := build(c, ec)
		if err != nil {
			return nil, nil, err
		}
		children[i] = it
		if leaf != nil {
			argLeaf = leaf
		}
	}
	switch op.Kind {
	case planner.OpScan:
		return &scanIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpExpand:
		return &expandIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpExpandVarLen:
		return &expandVarLenIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpFilter:
		return &filterIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpProject:
		return &projectIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpAggregate:
		return &aggregateIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpSort:
		return &sortIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpSkip:
		return &skipIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpLimit:
		return &limitIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpUnwind:
		return &unwindIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	case planner.OpCreateGraph:
		return &createIter{op: op, ec: ec, child: childOrUnit(children, 0)}, argLeaf, nil
	default:
		return nil, nil, cerr.NewSemanticError("unbuildable operator kind %d", op.Kind)
	}
}

// childOrUnit returns the i'th built child, or the one-row unit source
// when the operator had no Children at all (it is the first operator in
// its clause's subtree): see unitIterator and the op==nil branch of
// build above.
func childOrUnit(children []Iterator, i int) Iterator {
	if i >= len(children) {
		return &unitIterator{}
	}
	return children[i]
}

// unitIterator stands in for a missing child: it yields exactly one
// zero-width row per Open, then ErrDone. It gives leaf-shaped operators
// (Unwind, Filter, Project, Aggregate, Sort, Skip, Limit, Optional's
// outer side) something to pull from when their clause is the first in
// the query, the same role scanIter/createIter already synthesize a unit
// row for inline when built with no child.
type unitIterator struct {
	done bool
}

func (u *unitIterator) Open(ctx context.Context) error {
	u.done = false
	return nil
}

func (u *unitIterator) Next(ctx context.Context) (Row, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	if u.done {
		return nil, ErrDone
	}
	u.done = true
	return make(Row, 0), nil
}

func (u *unitIterator) Close() error { return nil }

// checkCancel is called between rows at every operator per spec.md §5
// ("cooperative cancellation checked between rows at every operator").
func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cerr.FromContext(ctx)
	}
	return nil
}

func toValueNode(n graph.Node) value.Node {
	return value.Node{ID: n.ID, Labels: n.Labels, Properties: toEntries(n.Properties)}
}

func toValueRel(r graph.Relationship) value.Relationship {
	return value.Relationship{ID: r.ID, Type: r.Type, Start: r.Start, End: r.End, Properties: toEntries(r.Properties)}
}

func toEntries(props map[string]any) []value.MapEntry {
	if len(props) == 0 {
		return nil
	}
	entries := make([]value.MapEntry, 0, len(props))
	for k, v := range props {
		entries = append(entries, value.MapEntry{Key: k, Value: fromAny(v)})
	}
	return entries
}

// fromAny lifts a backend-owned property (stored as an untyped Go value,
// since graph.Backend deliberately stays storage-agnostic) into value.Value.
func fromAny(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool(t)
	case int:
		return value.Int(int64(t))
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case string:
		return value.String(t)
	case []any:
		items := make([]value.Value, len(t))
		for i, e := range t {
			items[i] = fromAny(e)
		}
		return value.List(items)
	default:
		return value.Null
	}
}

// toAny lowers a value.Value into the untyped form graph.Backend.CreateNode/
// CreateRel store, the inverse of fromAny.
func toAny(v value.Value) any {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		b, _ := v.AsBool()
		return b
	case value.KindInt:
		i, _ := v.AsInt()
		return i
	case value.KindFloat:
		f, _ := v.AsFloat()
		return f
	case value.KindString:
		s, _ := v.AsString()
		return s
	case value.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = toAny(it)
		}
		return out
	default:
		return nil
	}
}

func evalEnv(row Row, ec *Context) *eval.Env {
	return &eval.Env{Row: row, Params: ec.Params}
}

// Eval evaluates expr against row using ec's parameter bindings; every
// operator that touches semantic.Expr goes through this one entry point
// into package eval.
func Eval(ctx context.Context, expr *semantic.Expr, row Row, ec *Context) (value.Value, error) {
	return eval.Eval(ctx, expr, evalEnv(row, ec))
}
