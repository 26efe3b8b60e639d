package exec

import (
	"context"

	"github.com/jakewins/cyphercore/planner"
)

// filterIter drops rows whose predicate does not evaluate to true; Null
// and false are both treated as "drop" per spec.md §4.5's three-valued
// WHERE semantics.
type filterIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator
}

func (f *filterIter) Open(ctx context.Context) error { return f.child.Open(ctx) }
func (f *filterIter) Close() error                   { return f.child.Close() }

func (f *filterIter) Next(ctx context.Context) (Row, error) {
	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		row, err := f.child.Next(ctx)
		if err != nil {
			return nil, err
		}
		v, err := Eval(ctx, f.op.Pred, row, f.ec)
		if err != nil {
			return nil, err
		}
		if b, ok := v.AsBool(); ok && b {
			return row, nil
		}
	}
}

// projectIter computes each ProjectItem into a fresh row of the
// operator's own (narrower or equal) width.
type projectIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator
}

func (p *projectIter) Open(ctx context.Context) error { return p.child.Open(ctx) }
func (p *projectIter) Close() error                   { return p.child.Close() }

func (p *projectIter) Next(ctx context.Context) (Row, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	row, err := p.child.Next(ctx)
	if err != nil {
		return nil, err
	}
	out := make(Row, p.op.Schema.Width())
	for _, item := range p.op.Items {
		v, err := Eval(ctx, item.Expr, row, p.ec)
		if err != nil {
			return nil, err
		}
		out[item.Slot] = v
	}
	return out, nil
}
