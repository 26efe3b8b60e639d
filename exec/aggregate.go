package exec

import (
	"context"

	"github.com/jakewins/cyphercore/eval"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/value"
)

// aggregateIter groups its child's rows by the Items group-key expressions
// and folds each AggSpec through an eval.Accumulator per group, fully
// materialising (spec.md §5: "bounded materialisation in Aggregate"
// since grouping cannot be streamed). An Aggregate with Aggs == nil is
// the DISTINCT lowering (spec.md §4.3): dedup-only, one output row per
// distinct key tuple.
type aggregateIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	rows    []Row
	pos     int
	built   bool
}

func (a *aggregateIter) Open(ctx context.Context) error {
	a.pos = 0
	a.built = false
	a.rows = nil
	return a.child.Open(ctx)
}

func (a *aggregateIter) Close() error { return a.child.Close() }

type aggGroup struct {
	key   []value.Value
	accs  []*eval.Accumulator
}

func (a *aggregateIter) build(ctx context.Context) error {
	var groups []*aggGroup
	index := map[string]*aggGroup{}
	for {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		row, err := a.child.Next(ctx)
		if err == ErrDone {
			break
		}
		if err != nil {
			return err
		}
		key := make([]value.Value, len(a.op.Items))
		for i, item := range a.op.Items {
			v, err := Eval(ctx, item.Expr, row, a.ec)
			if err != nil {
				return err
			}
			key[i] = v
		}
		k := groupKeyString(key)
		g, ok := index[k]
		if !ok {
			g = &aggGroup{key: key, accs: make([]*eval.Accumulator, len(a.op.Aggs))}
			for i, spec := range a.op.Aggs {
				g.accs[i] = eval.NewAccumulator(spec.Func, spec.Distinct, spec.Arg == nil)
			}
			index[k] = g
			groups = append(groups, g)
		}
		for i, spec := range a.op.Aggs {
			if spec.Arg == nil {
				g.accs[i].Add(value.Null)
				continue
			}
			v, err := Eval(ctx, spec.Arg, row, a.ec)
			if err != nil {
				return err
			}
			g.accs[i].Add(v)
		}
	}

	// An aggregate with no group-by keys and no input rows still produces
	// exactly one row (e.g. RETURN count(*) over an empty match), unless
	// it is a dedup-only DISTINCT lowering with group keys, per Cypher's
	// standard aggregate-without-GROUP-BY convention.
	if len(groups) == 0 && len(a.op.Items) == 0 && len(a.op.Aggs) > 0 {
		g := &aggGroup{accs: make([]*eval.Accumulator, len(a.op.Aggs))}
		for i, spec := range a.op.Aggs {
			g.accs[i] = eval.NewAccumulator(spec.Func, spec.Distinct, spec.Arg == nil)
		}
		groups = append(groups, g)
	}

	a.rows = make([]Row, 0, len(groups))
	for _, g := range groups {
		row := make(Row, a.op.Schema.Width())
		for i, item := range a.op.Items {
			row[item.Slot] = g.key[i]
		}
		for i, spec := range a.op.Aggs {
			v, err := g.accs[i].Result()
			if err != nil {
				return err
			}
			row[spec.Slot] = v
		}
		a.rows = append(a.rows, row)
	}
	return nil
}

func groupKeyString(key []value.Value) string {
	s := ""
	for _, v := range key {
		s += v.Kind().String() + ":" + v.String() + "|"
	}
	return s
}

func (a *aggregateIter) Next(ctx context.Context) (Row, error) {
	if !a.built {
		if err := a.build(ctx); err != nil {
			return nil, err
		}
		a.built = true
	}
	if a.pos >= len(a.rows) {
		return nil, ErrDone
	}
	row := a.rows[a.pos]
	a.pos++
	return row, nil
}
