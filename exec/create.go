package exec

import (
	"context"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/value"
)

// createIter issues backend writes for one CREATE pattern per input row
// (or, with no MATCH preceding it, exactly once), in the write order the
// planner chose: every node write of a pattern part before its
// relationship writes, so CreateRel always has resolved endpoint ids
// (spec.md §4.3).
type createIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	haveOnce bool
}

func (c *createIter) Open(ctx context.Context) error {
	c.haveOnce = false
	if c.child != nil {
		return c.child.Open(ctx)
	}
	return nil
}

func (c *createIter) Close() error {
	if c.child != nil {
		return c.child.Close()
	}
	return nil
}

func (c *createIter) nextInput(ctx context.Context) (Row, bool, error) {
	if c.child != nil {
		row, err := c.child.Next(ctx)
		if err == ErrDone {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return row, true, nil
	}
	if c.haveOnce {
		return nil, false, nil
	}
	c.haveOnce = true
	return make(Row, 0), true, nil
}

func (c *createIter) Next(ctx context.Context) (Row, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	input, ok, err := c.nextInput(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDone
	}
	row := make(Row, c.op.Schema.Width())
	copy(row, input)

	for _, w := range c.op.Writes {
		if w.Bound {
			continue
		}
		props, err := c.evalProps(ctx, w.Properties, row)
		if err != nil {
			return nil, err
		}
		if w.IsNode {
			id, err := c.ec.Backend.CreateNode(ctx, w.Labels, props)
			if err != nil {
				return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
			}
			gn, err := c.ec.Backend.Node(ctx, id)
			if err != nil {
				return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
			}
			row[w.Slot] = value.NodeVal(toValueNode(gn))
			continue
		}
		startNode, ok := row[w.StartSlot].AsNode()
		if !ok {
			return nil, cerr.NewSemanticError("CREATE relationship endpoint slot %d is not a Node", w.StartSlot)
		}
		endNode, ok := row[w.EndSlot].AsNode()
		if !ok {
			return nil, cerr.NewSemanticError("CREATE relationship endpoint slot %d is not a Node", w.EndSlot)
		}
		id, err := c.ec.Backend.CreateRel(ctx, startNode.ID, endNode.ID, w.Type, props)
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		gr, err := c.ec.Backend.Rel(ctx, id)
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		row[w.Slot] = value.RelVal(toValueRel(gr))
	}
	return row, nil
}

// evalProps evaluates one entity's property writes. A PropWrite with an
// empty Key is the ParamProperties convention: its Value must evaluate
// to a Map, merged entry by entry, modelling `CREATE (a {props})`.
func (c *createIter) evalProps(ctx context.Context, writes []planner.PropWrite, row Row) (map[string]any, error) {
	if len(writes) == 0 {
		return nil, nil
	}
	props := map[string]any{}
	for _, w := range writes {
		v, err := Eval(ctx, w.Value, row, c.ec)
		if err != nil {
			return nil, err
		}
		if w.Key == "" {
			entries, ok := v.AsMap()
			if !ok {
				return nil, cerr.NewTypeError("property map parameter must evaluate to a Map, got %s", v.Kind())
			}
			for _, e := range entries {
				props[e.Key] = toAny(e.Value)
			}
			continue
		}
		props[w.Key] = toAny(v)
	}
	return props, nil
}
