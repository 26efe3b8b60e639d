package exec

import (
	"context"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/value"
)

// unwindIter expands UnwindExpr into one output row per list element,
// per pulled input row. UNWIND of a non-list, non-null value is a
// TypeError (spec.md §4.3); UNWIND of null or an empty list yields no
// rows for that input row.
type unwindIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	haveOuter bool
	outerRow  Row
	items     []value.Value
	idx       int
}

func (u *unwindIter) Open(ctx context.Context) error {
	u.haveOuter = false
	u.items, u.idx = nil, 0
	return u.child.Open(ctx)
}

func (u *unwindIter) Close() error { return u.child.Close() }

func (u *unwindIter) Next(ctx context.Context) (Row, error) {
	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if !u.haveOuter {
			row, err := u.child.Next(ctx)
			if err == ErrDone {
				return nil, ErrDone
			}
			if err != nil {
				return nil, err
			}
			u.outerRow = row
			u.haveOuter = true
			u.idx = 0

			v, err := Eval(ctx, u.op.UnwindExpr, row, u.ec)
			if err != nil {
				return nil, err
			}
			if v.IsNull() {
				u.items = nil
			} else if items, ok := v.AsList(); ok {
				u.items = items
			} else {
				return nil, cerr.NewTypeError("UNWIND requires a List or null, got %s", v.Kind())
			}
		}
		if u.idx >= len(u.items) {
			u.haveOuter = false
			continue
		}
		item := u.items[u.idx]
		u.idx++
		row := make(Row, u.op.Schema.Width())
		copy(row, u.outerRow)
		row[u.op.UnwindSlot] = item
		return row, nil
	}
}
