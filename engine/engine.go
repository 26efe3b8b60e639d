// Package engine is the facade that composes the pipeline spec.md §2
// describes end to end: text -> cyphergrammar.Parse -> semantic.Analyze ->
// planner.Build -> exec pull loop, against a caller-supplied graph.Backend
// (SPEC_FULL.md §5.7). It owns the pieces spec.md leaves to "the CLI/REPL
// wrapper" or implies without naming a package for: configuration, logging,
// and the transient-BackendError retry loop for read-only queries.
package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/cyphergrammar"
	"github.com/jakewins/cyphercore/exec"
	"github.com/jakewins/cyphercore/graph"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/semantic"
	"github.com/jakewins/cyphercore/value"
)

// Engine binds a graph.Backend to the configuration and logger every query
// against it shares.
type Engine struct {
	backend graph.Backend
	config  Config
	log     *zap.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithLogger sets the zap.Logger the engine logs query lifecycle events to.
// Absent a WithLogger option, New defaults to zap.NewNop(), the same
// fallback the teacher's optional-logger parameters use.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine bound to backend.
func New(backend graph.Backend, opts ...Option) *Engine {
	e := &Engine{backend: backend, config: DefaultConfig(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query compiles and executes text against e's backend. params binds
// declared $name references; pass nil for a query with no parameters.
// Returns a Stream the caller pulls rows from; the caller must Close it.
func (e *Engine) Query(ctx context.Context, text string, params map[string]value.Value) (*Stream, error) {
	if err := cerr.FromContext(ctx); err != nil {
		return nil, err
	}

	script, err := cyphergrammar.Parse(text)
	if err != nil {
		e.log.Debug("parse failed", zap.Error(err))
		return nil, err
	}

	query, err := semantic.Analyze(script, knownParamNames(params))
	if err != nil {
		e.log.Debug("analysis failed", zap.Error(err))
		return nil, err
	}

	plan, err := planner.Build(query)
	if err != nil {
		e.log.Debug("planning failed", zap.Error(err))
		return nil, err
	}
	e.log.Debug("plan built", zap.String("plan", plan.Describe()))

	readOnly := !plan.HasWrites()
	ec := &exec.Context{
		Backend:       e.backend,
		Params:        params,
		VarLenCeiling: e.config.VarLenExpansionCeiling,
	}

	if err := e.backend.Begin(ctx); err != nil {
		return nil, &cerr.BackendError{Cause: err}
	}

	it, err := exec.Build(plan.Root, ec)
	if err != nil {
		_ = e.backend.Rollback(ctx)
		return nil, err
	}
	if err := it.Open(ctx); err != nil {
		_ = e.backend.Rollback(ctx)
		return nil, err
	}

	return &Stream{
		engine:   e,
		ctx:      ctx,
		plan:     plan,
		ec:       ec,
		it:       it,
		readOnly: readOnly,
	}, nil
}

func knownParamNames(params map[string]value.Value) map[string]bool {
	if params == nil {
		return map[string]bool{}
	}
	names := make(map[string]bool, len(params))
	for name := range params {
		names[name] = true
	}
	return names
}

// errDone re-exports exec.ErrDone so callers of Stream.Next don't need to
// import exec just to compare against it.
var errDone = exec.ErrDone

// IsDone reports whether err is the end-of-stream sentinel Stream.Next
// returns once a query's rows are exhausted.
func IsDone(err error) bool { return errors.Is(err, errDone) }
