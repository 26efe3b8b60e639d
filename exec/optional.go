package exec

import (
	"context"

	"github.com/jakewins/cyphercore/planner"
)

// optionalIter implements OPTIONAL MATCH (spec.md §4.3/§8): for each outer
// row it reopens the inner subplan with that row bound into innerLeaf,
// and yields every inner result row at the Optional's output width, with
// the slots the inner pattern bound carrying their matched values. If the
// inner subplan yields nothing, it substitutes exactly one row holding the
// outer values with every inner-introduced slot Null — the
// max(1, |inner|) row-count rule.
type optionalIter struct {
	op        *planner.Op
	ec        *Context
	outer     Iterator
	inner     Iterator
	innerLeaf *argumentIter

	innerOpen   bool
	producedAny bool
}

func (o *optionalIter) Open(ctx context.Context) error {
	o.innerOpen = false
	return o.outer.Open(ctx)
}

func (o *optionalIter) Close() error {
	if o.innerOpen {
		o.inner.Close()
	}
	return o.outer.Close()
}

func (o *optionalIter) openInner(ctx context.Context, row Row) error {
	if o.innerOpen {
		o.inner.Close()
	}
	o.innerLeaf.Row = row
	o.producedAny = false
	if err := o.inner.Open(ctx); err != nil {
		return err
	}
	o.innerOpen = true
	return nil
}

func (o *optionalIter) Next(ctx context.Context) (Row, error) {
	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if !o.innerOpen {
			outerRow, err := o.outer.Next(ctx)
			if err == ErrDone {
				return nil, ErrDone
			}
			if err != nil {
				return nil, err
			}
			if err := o.openInner(ctx, outerRow); err != nil {
				return nil, err
			}
		}
		innerRow, err := o.inner.Next(ctx)
		if err == ErrDone {
			o.inner.Close()
			o.innerOpen = false
			if !o.producedAny {
				row := make(Row, o.op.Schema.Width())
				copy(row, o.innerLeaf.Row)
				return row, nil
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		o.producedAny = true
		row := make(Row, o.op.Schema.Width())
		copy(row, innerRow)
		return row, nil
	}
}
