package eval

import (
	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/value"
)

// Accumulator folds a stream of values into one of the aggregate
// functions spec.md §4.5/SPEC_FULL.md §5.5 names: count, count(*), sum,
// avg, min, max, collect, all DISTINCT-capable. exec.Aggregate owns one
// Accumulator per group per AggSpec and calls Add once per input row.
type Accumulator struct {
	fn       string
	distinct bool
	countAll bool

	seen  []value.Value // only populated when distinct
	count int64
	sum   float64
	sumIsFloat bool
	min   value.Value
	max   value.Value
	have  bool
	items []value.Value
}

// NewAccumulator constructs an accumulator for fn (already lowercased by
// the analyser). countAll distinguishes count(*) — which counts every
// row regardless of value — from count(expr), which skips null.
func NewAccumulator(fn string, distinct, countAll bool) *Accumulator {
	return &Accumulator{fn: fn, distinct: distinct, countAll: countAll, min: value.Null, max: value.Null}
}

// Add folds one value into the accumulator. For count(*) v is ignored and
// may be value.Null.
func (a *Accumulator) Add(v value.Value) {
	if !a.countAll && v.IsNull() {
		return
	}
	if a.distinct && !a.countAll {
		for _, s := range a.seen {
			if value.Equal(s, v) {
				return
			}
		}
		a.seen = append(a.seen, v)
	}
	switch a.fn {
	case "count":
		a.count++
	case "sum", "avg":
		f, ok := v.Float64()
		if !ok {
			return
		}
		if _, isInt := v.AsInt(); !isInt {
			a.sumIsFloat = true
		}
		a.sum += f
		a.count++
	case "min":
		if !a.have || value.SortCompare(v, a.min) < 0 {
			a.min, a.have = v, true
		}
	case "max":
		if !a.have || value.SortCompare(v, a.max) > 0 {
			a.max, a.have = v, true
		}
	case "collect":
		a.items = append(a.items, v)
	}
}

// Result reads out the accumulated value.
func (a *Accumulator) Result() (value.Value, error) {
	switch a.fn {
	case "count":
		return value.Int(a.count), nil
	case "sum":
		if a.count == 0 {
			return value.Int(0), nil
		}
		if a.sumIsFloat {
			return value.Float(a.sum), nil
		}
		return value.Int(int64(a.sum)), nil
	case "avg":
		if a.count == 0 {
			return value.Null, nil
		}
		return value.Float(a.sum / float64(a.count)), nil
	case "min":
		return a.min, nil
	case "max":
		return a.max, nil
	case "collect":
		if a.items == nil {
			return value.List(nil), nil
		}
		return value.List(a.items), nil
	default:
		return value.Null, cerr.NewSemanticError("unknown aggregate function %q", a.fn)
	}
}
