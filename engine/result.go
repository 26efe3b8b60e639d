package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/exec"
	"github.com/jakewins/cyphercore/planner"
)

// Stream is the query surface spec.md §6.2 describes: a column-name header
// plus a sequence of rows, pulled one at a time, backed by exec.Iterator.
// On a transient graph.Backend error (spec.md §7), a read-only Stream
// rebuilds a fresh iterator and fast-forwards it to the row count already
// delivered, up to Config.MaxBackendRetries, instead of surfacing the
// error immediately.
type Stream struct {
	engine   *Engine
	ctx      context.Context
	plan     *planner.Plan
	ec       *exec.Context
	it       exec.Iterator
	readOnly bool

	retries int
	emitted int
	failed  bool
	closed  bool
}

// Columns returns the result header: the projection aliases, or the
// auto-named source text for unaliased expressions (spec.md §6.2).
func (s *Stream) Columns() []string { return s.plan.ColumnNames }

// Next returns the next row, or an error wrapping exec.ErrDone (test with
// IsDone) once the query is exhausted.
func (s *Stream) Next() (exec.Row, error) {
	for {
		row, err := s.it.Next(s.ctx)
		if err == nil {
			s.emitted++
			return row, nil
		}
		if IsDone(err) {
			return nil, err
		}
		if s.readOnly && cerr.IsTransientBackendError(err) && s.retries < s.engine.config.MaxBackendRetries {
			s.retries++
			s.engine.log.Warn("retrying query after transient backend error",
				zap.Int("attempt", s.retries),
				zap.Int("rows_to_replay", s.emitted),
				zap.Error(err))
			if rerr := s.reopen(); rerr != nil {
				s.failed = true
				return nil, rerr
			}
			continue
		}
		s.failed = true
		return nil, err
	}
}

// reopen rebuilds a fresh iterator over the same plan and replays it to
// the row count already delivered to the caller, so a retried query
// resumes where the caller left off rather than re-emitting rows.
func (s *Stream) reopen() error {
	_ = s.it.Close()
	it, err := exec.Build(s.plan.Root, s.ec)
	if err != nil {
		return err
	}
	if err := it.Open(s.ctx); err != nil {
		return err
	}
	for i := 0; i < s.emitted; i++ {
		if _, err := it.Next(s.ctx); err != nil {
			_ = it.Close()
			return err
		}
	}
	s.it = it
	return nil
}

// Close releases the iterator tree and brackets the backend transaction:
// a stream on which no Next call has failed commits, whether or not it was
// drained and whether or not the query wrote; a stream whose Next returned
// an error rolls back.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	closeErr := s.it.Close()

	var txErr error
	if s.failed {
		txErr = s.engine.backend.Rollback(s.ctx)
	} else {
		txErr = s.engine.backend.Commit(s.ctx)
	}
	if closeErr != nil {
		return closeErr
	}
	return txErr
}
