package exec

import (
	"context"
	"sort"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/value"
)

// sortIter fully materialises its input (spec.md §5: "bounded
// materialisation in ... Sort") and orders it by SortKeys using
// value.SortCompare, the first key as primary, each subsequent key
// breaking ties.
type sortIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	rows  []Row
	pos   int
	built bool
}

func (s *sortIter) Open(ctx context.Context) error {
	s.pos, s.built, s.rows = 0, false, nil
	return s.child.Open(ctx)
}

func (s *sortIter) Close() error { return s.child.Close() }

func (s *sortIter) build(ctx context.Context) error {
	type keyedRow struct {
		row  Row
		keys []value.Value
	}
	var rows []keyedRow
	for {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		row, err := s.child.Next(ctx)
		if err == ErrDone {
			break
		}
		if err != nil {
			return err
		}
		keys := make([]value.Value, len(s.op.SortKeys))
		for i, k := range s.op.SortKeys {
			v, err := Eval(ctx, k.Expr, row, s.ec)
			if err != nil {
				return err
			}
			keys[i] = v
		}
		rows = append(rows, keyedRow{row: row, keys: keys})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for k, sk := range s.op.SortKeys {
			cmp := value.SortCompare(rows[i].keys[k], rows[j].keys[k])
			if sk.Desc {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	s.rows = make([]Row, len(rows))
	for i, r := range rows {
		s.rows[i] = r.row
	}
	return nil
}

func (s *sortIter) Next(ctx context.Context) (Row, error) {
	if !s.built {
		if err := s.build(ctx); err != nil {
			return nil, err
		}
		s.built = true
	}
	if s.pos >= len(s.rows) {
		return nil, ErrDone
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// skipIter discards the first N rows; N is evaluated once, on the first
// Next call, since SKIP's argument may reference a parameter but never a
// row column (spec.md §4.3).
type skipIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	n       int64
	skipped int64
	ready   bool
}

func (s *skipIter) Open(ctx context.Context) error {
	s.skipped, s.ready = 0, false
	return s.child.Open(ctx)
}

func (s *skipIter) Close() error { return s.child.Close() }

func (s *skipIter) ensure(ctx context.Context) error {
	if s.ready {
		return nil
	}
	v, err := Eval(ctx, s.op.CountExpr, nil, s.ec)
	if err != nil {
		return err
	}
	n, ok := v.AsInt()
	if !ok || n < 0 {
		return cerr.NewTypeError("SKIP requires a non-negative Integer")
	}
	s.n = n
	s.ready = true
	return nil
}

func (s *skipIter) Next(ctx context.Context) (Row, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	for s.skipped < s.n {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if _, err := s.child.Next(ctx); err != nil {
			return nil, err
		}
		s.skipped++
	}
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	return s.child.Next(ctx)
}

// limitIter stops after N rows, per spec.md §4.3 "Limit short-circuits
// the pull chain rather than draining its child."
type limitIter struct {
	op    *planner.Op
	ec    *Context
	child Iterator

	n       int64
	emitted int64
	ready   bool
}

func (l *limitIter) Open(ctx context.Context) error {
	l.emitted, l.ready = 0, false
	return l.child.Open(ctx)
}

func (l *limitIter) Close() error { return l.child.Close() }

func (l *limitIter) ensure(ctx context.Context) error {
	if l.ready {
		return nil
	}
	v, err := Eval(ctx, l.op.CountExpr, nil, l.ec)
	if err != nil {
		return err
	}
	n, ok := v.AsInt()
	if !ok || n < 0 {
		return cerr.NewTypeError("LIMIT requires a non-negative Integer")
	}
	l.n = n
	l.ready = true
	return nil
}

func (l *limitIter) Next(ctx context.Context) (Row, error) {
	if err := l.ensure(ctx); err != nil {
		return nil, err
	}
	if l.emitted >= l.n {
		return nil, ErrDone
	}
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	row, err := l.child.Next(ctx)
	if err != nil {
		return nil, err
	}
	l.emitted++
	return row, nil
}
