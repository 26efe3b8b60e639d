package exec

import (
	"context"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/value"
)

// scanIter emits one row per node in the backend (or per label-filtered
// subset), cross-joined against whatever rows its child produces: with
// no child it is the pattern's root scan; with a child it behaves as the
// inner side of a nested-loop join against an already-matched earlier
// pattern part (spec.md §4.3's "a pattern with several comma-separated
// parts composes as an implicit join").
type scanIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	outerRow      Row
	haveOuterOnce bool
	stream        stream
}

type stream interface {
	Next() (int64, bool, error)
	Close() error
}

func (s *scanIter) Open(ctx context.Context) error {
	s.haveOuterOnce = false
	s.outerRow = nil
	s.stream = nil
	if s.child != nil {
		if err := s.child.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanIter) Close() error {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	if s.child != nil {
		return s.child.Close()
	}
	return nil
}

func (s *scanIter) nextOuter(ctx context.Context) (Row, bool, error) {
	if s.child != nil {
		row, err := s.child.Next(ctx)
		if err == ErrDone {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return row, true, nil
	}
	if s.haveOuterOnce {
		return nil, false, nil
	}
	s.haveOuterOnce = true
	return make(Row, 0), true, nil
}

func (s *scanIter) openStream(ctx context.Context) error {
	var (
		st  stream
		err error
	)
	if s.op.ScanLabel == "" {
		st, err = s.ec.Backend.AllNodes(ctx)
	} else {
		st, err = s.ec.Backend.NodesByLabel(ctx, s.op.ScanLabel)
	}
	if err != nil {
		return &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
	}
	s.stream = st
	return nil
}

func (s *scanIter) Next(ctx context.Context) (Row, error) {
	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if s.stream == nil {
			row, ok, err := s.nextOuter(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrDone
			}
			s.outerRow = row
			if err := s.openStream(ctx); err != nil {
				return nil, err
			}
		}
		id, ok, err := s.stream.Next()
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		if !ok {
			s.stream.Close()
			s.stream = nil
			continue
		}
		gn, err := s.ec.Backend.Node(ctx, id)
		if err != nil {
			return nil, &cerr.BackendError{Transient: cerr.IsTransientBackendError(err), Cause: err}
		}
		row := make(Row, s.op.Schema.Width())
		copy(row, s.outerRow)
		row[s.op.ScanSlot] = value.NodeVal(toValueNode(gn))
		return row, nil
	}
}

// argumentIter yields exactly the one row bound into it before Open, used
// as the leaf of an OPTIONAL MATCH's inner subplan (spec.md §4.3): the
// executor rebinds Row and calls Open once per outer row.
type argumentIter struct {
	op    *planner.Op
	Row   Row
	done  bool
}

func (a *argumentIter) Open(ctx context.Context) error {
	a.done = false
	return nil
}

func (a *argumentIter) Next(ctx context.Context) (Row, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	if a.done {
		return nil, ErrDone
	}
	a.done = true
	return a.Row, nil
}

func (a *argumentIter) Close() error { return nil }
