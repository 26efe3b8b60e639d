// Package eval implements the stateless, row-scoped expression evaluator
// (spec.md §4.5, SPEC_FULL.md §5.5). It knows nothing about the pipeline
// shape that produced a Row; exec and engine supply one row (plus, for a
// nested list comprehension, a stack of comprehension-local bindings) and
// read back a value.Value.
package eval

import (
	"context"
	"math"
	"strings"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/semantic"
	"github.com/jakewins/cyphercore/value"
)

// Row is one tuple flowing through the pipeline: a flat slot-indexed
// array, per spec.md §3.3/§9 ("rows are arrays, not maps; every symbol
// resolves to a row index at analysis time").
type Row []value.Value

// Env binds an expression tree to the data it closes over: the current
// row, any list-comprehension-local values (innermost first, matching
// semantic.Ref's Depth numbering), and the query's parameter map.
type Env struct {
	Row    Row
	Locals []value.Value
	Params map[string]value.Value
}

// push returns a new Env with v bound as the new innermost local, used
// when entering a list comprehension's element scope.
func (e *Env) push(v value.Value) *Env {
	locals := make([]value.Value, len(e.Locals)+1)
	locals[0] = v
	copy(locals[1:], e.Locals)
	return &Env{Row: e.Row, Locals: locals, Params: e.Params}
}

// Eval evaluates expr against env. ctx is threaded through so a pathological
// deeply-nested comprehension can still observe cancellation (spec.md §5).
func Eval(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return value.Null, cerr.FromContext(ctx)
	}
	if expr == nil {
		return value.Null, nil
	}
	switch expr.Kind {
	case semantic.ExprLiteral:
		return expr.Literal, nil

	case semantic.ExprParameter:
		if v, ok := env.Params[expr.Name]; ok {
			return v, nil
		}
		return value.Null, nil

	case semantic.ExprRef:
		return evalRef(expr, env)

	case semantic.ExprListLit:
		items := make([]value.Value, len(expr.Items))
		for i, it := range expr.Items {
			v, err := Eval(ctx, it, env)
			if err != nil {
				return value.Null, err
			}
			items[i] = v
		}
		return value.List(items), nil

	case semantic.ExprMapLit:
		entries := make([]value.MapEntry, len(expr.MapPairs))
		for i, p := range expr.MapPairs {
			v, err := Eval(ctx, p.Value, env)
			if err != nil {
				return value.Null, err
			}
			entries[i] = value.MapEntry{Key: p.Key, Value: v}
		}
		return value.Map(entries), nil

	case semantic.ExprProperty:
		return evalProperty(ctx, expr, env)

	case semantic.ExprIndex:
		return evalIndex(ctx, expr, env)

	case semantic.ExprHasLabel:
		return evalHasLabel(ctx, expr, env)

	case semantic.ExprUnaryMinus:
		return evalUnaryMinus(ctx, expr, env)

	case semantic.ExprUnaryPlus:
		return Eval(ctx, expr.Base, env)

	case semantic.ExprArith:
		return evalArith(ctx, expr, env)

	case semantic.ExprCompare:
		return evalCompare(ctx, expr, env)

	case semantic.ExprAnd:
		l, err := Eval(ctx, expr.Left, env)
		if err != nil {
			return value.Null, err
		}
		r, err := Eval(ctx, expr.Right, env)
		if err != nil {
			return value.Null, err
		}
		return value.And(l, r), nil

	case semantic.ExprOr:
		l, err := Eval(ctx, expr.Left, env)
		if err != nil {
			return value.Null, err
		}
		r, err := Eval(ctx, expr.Right, env)
		if err != nil {
			return value.Null, err
		}
		return value.Or(l, r), nil

	case semantic.ExprXor:
		l, err := Eval(ctx, expr.Left, env)
		if err != nil {
			return value.Null, err
		}
		r, err := Eval(ctx, expr.Right, env)
		if err != nil {
			return value.Null, err
		}
		return value.Xor(l, r), nil

	case semantic.ExprNot:
		v, err := Eval(ctx, expr.Base, env)
		if err != nil {
			return value.Null, err
		}
		return value.Not(v), nil

	case semantic.ExprIsNull:
		v, err := Eval(ctx, expr.Base, env)
		if err != nil {
			return value.Null, err
		}
		isNull := v.IsNull()
		if expr.Op == "not" {
			return value.Bool(!isNull), nil
		}
		return value.Bool(isNull), nil

	case semantic.ExprIn:
		return evalIn(ctx, expr, env)

	case semantic.ExprStringPred:
		return evalStringPred(ctx, expr, env)

	case semantic.ExprFunctionCall:
		return evalFunctionCall(ctx, expr, env)

	case semantic.ExprCountAll:
		// Only meaningful inside an Aggregate operator's accumulator;
		// evaluated as a scalar this has no row-local value.
		return value.Null, nil

	case semantic.ExprCase:
		return evalCase(ctx, expr, env)

	case semantic.ExprListComprehension:
		return evalListComprehension(ctx, expr, env)

	case semantic.ExprPathBuild:
		return evalPathBuild(ctx, expr, env)

	default:
		return value.Null, cerr.NewSemanticError("unevaluable expression kind %d", expr.Kind)
	}
}

func evalRef(expr *semantic.Expr, env *Env) (value.Value, error) {
	switch expr.Ref.Kind {
	case semantic.RefRow:
		if expr.Ref.Slot < 0 || expr.Ref.Slot >= len(env.Row) {
			return value.Null, cerr.NewSemanticError("slot %d out of range for row of width %d", expr.Ref.Slot, len(env.Row))
		}
		return env.Row[expr.Ref.Slot], nil
	case semantic.RefLocal:
		if expr.Ref.Depth < 0 || expr.Ref.Depth >= len(env.Locals) {
			return value.Null, cerr.NewSemanticError("comprehension variable %q out of scope", expr.Ref.Name)
		}
		return env.Locals[expr.Ref.Depth], nil
	default:
		return value.Null, cerr.NewSemanticError("unknown reference kind")
	}
}

func evalProperty(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	base, err := Eval(ctx, expr.Base, env)
	if err != nil {
		return value.Null, err
	}
	switch base.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindNode:
		n, _ := base.AsNode()
		return value.Property(n.Properties, expr.Property), nil
	case value.KindRelationship:
		r, _ := base.AsRelationship()
		return value.Property(r.Properties, expr.Property), nil
	case value.KindMap:
		m, _ := base.AsMap()
		return value.Property(m, expr.Property), nil
	default:
		return value.Null, cerr.NewTypeError("cannot access property %q on a %s value", expr.Property, base.Kind())
	}
}

func evalHasLabel(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	base, err := Eval(ctx, expr.Base, env)
	if err != nil {
		return value.Null, err
	}
	if base.IsNull() {
		return value.Null, nil
	}
	n, ok := base.AsNode()
	if !ok {
		return value.Null, cerr.NewTypeError("label predicate requires a Node, got %s", base.Kind())
	}
	for _, l := range expr.Labels {
		if !n.HasLabel(l) {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func evalUnaryMinus(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	v, err := Eval(ctx, expr.Base, env)
	if err != nil {
		return value.Null, err
	}
	if v.IsNull() {
		return value.Null, nil
	}
	if i, ok := v.AsInt(); ok {
		return value.Int(-i), nil
	}
	if f, ok := v.AsFloat(); ok {
		return value.Float(-f), nil
	}
	return value.Null, cerr.NewTypeError("unary minus requires a number, got %s", v.Kind())
}

func evalIndex(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	base, err := Eval(ctx, expr.Base, env)
	if err != nil {
		return value.Null, err
	}
	if base.IsNull() {
		return value.Null, nil
	}
	list, ok := base.AsList()
	if !ok {
		return value.Null, cerr.NewTypeError("indexing requires a List, got %s", base.Kind())
	}
	if expr.IndexRange {
		start, err := indexBound(ctx, expr.IndexStart, env, 0, len(list))
		if err != nil {
			return value.Null, err
		}
		end, err := indexBound(ctx, expr.IndexEnd, env, len(list), len(list))
		if err != nil {
			return value.Null, err
		}
		start, end = clampRange(start, end, len(list))
		return value.List(append([]value.Value(nil), list[start:end]...)), nil
	}
	idx, err := indexBound(ctx, expr.IndexStart, env, 0, len(list))
	if err != nil {
		return value.Null, err
	}
	if idx < 0 {
		idx += len(list)
	}
	if idx < 0 || idx >= len(list) {
		return value.Null, nil
	}
	return list[idx], nil
}

func indexBound(ctx context.Context, e *semantic.Expr, env *Env, def, _ int) (int, error) {
	if e == nil {
		return def, nil
	}
	v, err := Eval(ctx, e, env)
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt()
	if !ok {
		return 0, cerr.NewTypeError("index must be an Integer, got %s", v.Kind())
	}
	return int(i), nil
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

func evalArith(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	l, err := Eval(ctx, expr.Left, env)
	if err != nil {
		return value.Null, err
	}
	r, err := Eval(ctx, expr.Right, env)
	if err != nil {
		return value.Null, err
	}
	if expr.Op == "+" && (l.Kind() == value.KindString || r.Kind() == value.KindString) {
		if l.IsNull() || r.IsNull() {
			return value.Null, nil
		}
		return value.String(toDisplayString(l) + toDisplayString(r)), nil
	}
	if expr.Op == "+" && (l.Kind() == value.KindList || r.Kind() == value.KindList) {
		return concatLists(l, r), nil
	}
	if l.IsNull() || r.IsNull() {
		return value.Null, nil
	}
	li, liok := l.AsInt()
	ri, riok := r.AsInt()
	if liok && riok {
		return intArith(expr.Op, li, ri)
	}
	lf, lfok := l.Float64()
	rf, rfok := r.Float64()
	if !lfok || !rfok {
		return value.Null, cerr.NewTypeError("arithmetic %q requires numbers, got %s and %s", expr.Op, l.Kind(), r.Kind())
	}
	return floatArith(expr.Op, lf, rf)
}

func concatLists(l, r value.Value) value.Value {
	var out []value.Value
	if items, ok := l.AsList(); ok {
		out = append(out, items...)
	} else if !l.IsNull() {
		out = append(out, l)
	}
	if items, ok := r.AsList(); ok {
		out = append(out, items...)
	} else if !r.IsNull() {
		out = append(out, r)
	}
	return value.List(out)
}

func intArith(op string, l, r int64) (value.Value, error) {
	switch op {
	case "+":
		if (r > 0 && l > math.MaxInt64-r) || (r < 0 && l < math.MinInt64-r) {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticOverflow, "integer overflow")
		}
		return value.Int(l + r), nil
	case "-":
		if (r < 0 && l > math.MaxInt64+r) || (r > 0 && l < math.MinInt64+r) {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticOverflow, "integer overflow")
		}
		return value.Int(l - r), nil
	case "*":
		if l != 0 && r != 0 && ((l*r)/r != l || (r == -1 && l == math.MinInt64)) {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticOverflow, "integer overflow")
		}
		return value.Int(l * r), nil
	case "/":
		if r == 0 {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticDivideByZero, "division by zero")
		}
		if r == -1 && l == math.MinInt64 {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticOverflow, "integer overflow")
		}
		// Int/Int division truncates toward zero (spec.md §4.5); Go's
		// integer division already does this, unlike floatArith's
		// real-valued quotient.
		return value.Int(l / r), nil
	case "%":
		if r == 0 {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticDivideByZero, "modulo by zero")
		}
		return value.Int(l % r), nil
	case "^":
		return value.Float(math.Pow(float64(l), float64(r))), nil
	default:
		return value.Null, cerr.NewSemanticError("unknown arithmetic operator %q", op)
	}
}

func floatArith(op string, l, r float64) (value.Value, error) {
	switch op {
	case "+":
		return value.Float(l + r), nil
	case "-":
		return value.Float(l - r), nil
	case "*":
		return value.Float(l * r), nil
	case "/":
		if r == 0 {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticDivideByZero, "division by zero")
		}
		return value.Float(l / r), nil
	case "%":
		if r == 0 {
			return value.Null, cerr.NewArithmeticError(cerr.ArithmeticDivideByZero, "modulo by zero")
		}
		return value.Float(math.Mod(l, r)), nil
	case "^":
		return value.Float(math.Pow(l, r)), nil
	default:
		return value.Null, cerr.NewSemanticError("unknown arithmetic operator %q", op)
	}
}

func evalCompare(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	l, err := Eval(ctx, expr.Left, env)
	if err != nil {
		return value.Null, err
	}
	r, err := Eval(ctx, expr.Right, env)
	if err != nil {
		return value.Null, err
	}
	if l.IsNull() || r.IsNull() {
		return value.Null, nil
	}
	switch expr.Op {
	case "=":
		return value.Bool(value.Equal(l, r)), nil
	case "<>":
		return value.Bool(!value.Equal(l, r)), nil
	}
	cmp, ok := value.Compare(l, r)
	if !ok {
		return value.Null, nil
	}
	switch expr.Op {
	case "<":
		return value.Bool(cmp < 0), nil
	case ">":
		return value.Bool(cmp > 0), nil
	case "<=":
		return value.Bool(cmp <= 0), nil
	case ">=":
		return value.Bool(cmp >= 0), nil
	default:
		return value.Null, cerr.NewSemanticError("unknown comparison operator %q", expr.Op)
	}
}

func evalIn(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	needle, err := Eval(ctx, expr.Left, env)
	if err != nil {
		return value.Null, err
	}
	haystack, err := Eval(ctx, expr.Right, env)
	if err != nil {
		return value.Null, err
	}
	if haystack.IsNull() {
		return value.Null, nil
	}
	items, ok := haystack.AsList()
	if !ok {
		return value.Null, cerr.NewTypeError("IN requires a List on the right, got %s", haystack.Kind())
	}
	if needle.IsNull() {
		// null IN [...] is null unless the list is empty, in which case
		// Cypher still reports null (no element can ever equal null).
		return value.Null, nil
	}
	sawNull := false
	for _, it := range items {
		if it.IsNull() {
			sawNull = true
			continue
		}
		if value.Equal(needle, it) {
			return value.Bool(true), nil
		}
	}
	if sawNull {
		return value.Null, nil
	}
	return value.Bool(false), nil
}

func evalStringPred(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	l, err := Eval(ctx, expr.Left, env)
	if err != nil {
		return value.Null, err
	}
	r, err := Eval(ctx, expr.Right, env)
	if err != nil {
		return value.Null, err
	}
	if l.IsNull() || r.IsNull() {
		return value.Null, nil
	}
	ls, lok := l.AsString()
	rs, rok := r.AsString()
	if !lok || !rok {
		return value.Null, cerr.NewTypeError("%s requires Strings, got %s and %s", expr.Op, l.Kind(), r.Kind())
	}
	switch expr.Op {
	case "STARTS_WITH":
		return value.Bool(strings.HasPrefix(ls, rs)), nil
	case "ENDS_WITH":
		return value.Bool(strings.HasSuffix(ls, rs)), nil
	case "CONTAINS":
		return value.Bool(strings.Contains(ls, rs)), nil
	default:
		return value.Null, cerr.NewSemanticError("unknown string predicate %q", expr.Op)
	}
}

func evalCase(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	var input value.Value
	hasInput := expr.CaseInput != nil
	if hasInput {
		v, err := Eval(ctx, expr.CaseInput, env)
		if err != nil {
			return value.Null, err
		}
		input = v
	}
	for _, w := range expr.CaseWhens {
		whenVal, err := Eval(ctx, w.When, env)
		if err != nil {
			return value.Null, err
		}
		var matched bool
		if hasInput {
			matched = !input.IsNull() && !whenVal.IsNull() && value.Equal(input, whenVal)
		} else {
			b, ok := whenVal.AsBool()
			matched = ok && b
		}
		if matched {
			return Eval(ctx, w.Then, env)
		}
	}
	if expr.CaseElse != nil {
		return Eval(ctx, expr.CaseElse, env)
	}
	return value.Null, nil
}

func evalListComprehension(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	src, err := Eval(ctx, expr.CompSource, env)
	if err != nil {
		return value.Null, err
	}
	if src.IsNull() {
		return value.Null, nil
	}
	items, ok := src.AsList()
	if !ok {
		return value.Null, cerr.NewTypeError("list comprehension source must be a List, got %s", src.Kind())
	}
	var out []value.Value
	for _, it := range items {
		inner := env.push(it)
		if expr.CompWhere != nil {
			keep, err := Eval(ctx, expr.CompWhere, inner)
			if err != nil {
				return value.Null, err
			}
			if b, ok := keep.AsBool(); !ok || !b {
				continue
			}
		}
		if expr.CompMapping != nil {
			mapped, err := Eval(ctx, expr.CompMapping, inner)
			if err != nil {
				return value.Null, err
			}
			out = append(out, mapped)
		} else {
			out = append(out, it)
		}
	}
	return value.List(out), nil
}

func evalPathBuild(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	if len(expr.Items) == 0 || len(expr.Items)%2 != 1 {
		return value.Null, cerr.NewSemanticError("malformed path expression")
	}
	startVal, err := Eval(ctx, expr.Items[0], env)
	if err != nil {
		return value.Null, err
	}
	start, ok := startVal.AsNode()
	if !ok {
		return value.Null, nil
	}
	p := value.Path{Start: start}
	for i := 1; i < len(expr.Items); i += 2 {
		relVal, err := Eval(ctx, expr.Items[i], env)
		if err != nil {
			return value.Null, err
		}
		nodeVal, err := Eval(ctx, expr.Items[i+1], env)
		if err != nil {
			return value.Null, err
		}
		rel, ok := relVal.AsRelationship()
		if !ok {
			return value.Null, nil
		}
		node, ok := nodeVal.AsNode()
		if !ok {
			return value.Null, nil
		}
		p.Steps = append(p.Steps, value.PathStep{Rel: rel, Node: node})
	}
	return value.PathVal(p), nil
}

func toDisplayString(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}
