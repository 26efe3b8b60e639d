package eval

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/semantic"
	"github.com/jakewins/cyphercore/value"
)

// evalFunctionCall dispatches a resolved call by its already-lowercased
// name (semantic.resolveFunctionCall normalises case at analysis time).
// semantic.IsKnownFunction has already rejected any name that is neither
// in this table nor an aggregate; aggregate names are not in this table,
// so an aggregate evaluated as a scalar reaches the default branch, which
// fails loudly instead of silently returning Null.
func evalFunctionCall(ctx context.Context, expr *semantic.Expr, env *Env) (value.Value, error) {
	args := make([]value.Value, len(expr.Items))
	for i, a := range expr.Items {
		v, err := Eval(ctx, a, env)
		if err != nil {
			return value.Null, err
		}
		args[i] = v
	}
	switch expr.Name {
	case "toupper":
		return stringUnary(args, strings.ToUpper)
	case "tolower":
		return stringUnary(args, strings.ToLower)
	case "tostring":
		return fnToString(args)
	case "tointeger":
		return fnToInteger(args)
	case "tofloat":
		return fnToFloat(args)
	case "size":
		return fnSize(args)
	case "abs":
		return fnAbs(args)
	case "coalesce":
		return fnCoalesce(args)
	case "type":
		return fnType(args)
	case "labels":
		return fnLabels(args)
	case "keys":
		return fnKeys(args)
	case "id":
		return fnID(args)
	case "startnode":
		return fnStartNode(args)
	case "endnode":
		return fnEndNode(args)
	case "range":
		return fnRange(args)
	case "head":
		return fnHead(args)
	case "last":
		return fnLast(args)
	case "reverse":
		return fnReverse(args)
	case "sqrt":
		return floatUnary(args, math.Sqrt)
	case "sign":
		return fnSign(args)
	case "floor":
		return floatUnary(args, math.Floor)
	case "ceil":
		return floatUnary(args, math.Ceil)
	case "round":
		return floatUnary(args, math.Round)
	case "substring":
		return fnSubstring(args)
	case "replace":
		return fnReplace(args)
	case "split":
		return fnSplit(args)
	case "trim":
		return stringUnary(args, strings.TrimSpace)
	default:
		return value.Null, cerr.NewSemanticError("unknown function %q", expr.Name)
	}
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Null
}

func stringUnary(args []value.Value, f func(string) string) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	s, ok := v.AsString()
	if !ok {
		return value.Null, cerr.NewTypeError("expected a String, got %s", v.Kind())
	}
	return value.String(f(s)), nil
}

func floatUnary(args []value.Value, f func(float64) float64) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	n, ok := v.Float64()
	if !ok {
		return value.Null, cerr.NewTypeError("expected a number, got %s", v.Kind())
	}
	return value.Float(f(n)), nil
}

func fnToString(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	switch v.Kind() {
	case value.KindString:
		return v, nil
	case value.KindBool, value.KindInt, value.KindFloat:
		return value.String(v.String()), nil
	default:
		return value.Null, cerr.NewTypeError("toString() does not accept a %s", v.Kind())
	}
}

func fnToInteger(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if i, ok := v.AsInt(); ok {
		return value.Int(i), nil
	}
	if f, ok := v.AsFloat(); ok {
		return value.Int(int64(f)), nil
	}
	if s, ok := v.AsString(); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return value.Null, nil
		}
		return value.Int(i), nil
	}
	return value.Null, cerr.NewTypeError("toInteger() does not accept a %s", v.Kind())
}

func fnToFloat(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if f, ok := v.Float64(); ok {
		return value.Float(f), nil
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value.Null, nil
		}
		return value.Float(f), nil
	}
	return value.Null, cerr.NewTypeError("toFloat() does not accept a %s", v.Kind())
}

func fnSize(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if items, ok := v.AsList(); ok {
		return value.Int(int64(len(items))), nil
	}
	if s, ok := v.AsString(); ok {
		return value.Int(int64(len([]rune(s)))), nil
	}
	return value.Null, cerr.NewTypeError("size() requires a List or String, got %s", v.Kind())
}

func fnAbs(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if i, ok := v.AsInt(); ok {
		if i < 0 {
			i = -i
		}
		return value.Int(i), nil
	}
	if f, ok := v.AsFloat(); ok {
		return value.Float(math.Abs(f)), nil
	}
	return value.Null, cerr.NewTypeError("abs() requires a number, got %s", v.Kind())
}

func fnCoalesce(args []value.Value) (value.Value, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return value.Null, nil
}

func fnType(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	r, ok := v.AsRelationship()
	if !ok {
		if v.IsNull() {
			return value.Null, nil
		}
		return value.Null, cerr.NewTypeError("type() requires a Relationship, got %s", v.Kind())
	}
	return value.String(r.Type), nil
}

func fnLabels(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	n, ok := v.AsNode()
	if !ok {
		return value.Null, cerr.NewTypeError("labels() requires a Node, got %s", v.Kind())
	}
	items := make([]value.Value, len(n.Labels))
	for i, l := range n.Labels {
		items[i] = value.String(l)
	}
	return value.List(items), nil
}

func fnKeys(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	var entries []value.MapEntry
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindNode:
		n, _ := v.AsNode()
		entries = n.Properties
	case value.KindRelationship:
		r, _ := v.AsRelationship()
		entries = r.Properties
	case value.KindMap:
		entries, _ = v.AsMap()
	default:
		return value.Null, cerr.NewTypeError("keys() requires a Node, Relationship or Map, got %s", v.Kind())
	}
	items := make([]value.Value, len(entries))
	for i, e := range entries {
		items[i] = value.String(e.Key)
	}
	return value.List(items), nil
}

func fnID(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if n, ok := v.AsNode(); ok {
		return value.Int(n.ID), nil
	}
	if r, ok := v.AsRelationship(); ok {
		return value.Int(r.ID), nil
	}
	if v.IsNull() {
		return value.Null, nil
	}
	return value.Null, cerr.NewTypeError("id() requires a Node or Relationship, got %s", v.Kind())
}

func fnStartNode(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	r, ok := v.AsRelationship()
	if !ok {
		return value.Null, cerr.NewTypeError("startNode() requires a Relationship, got %s", v.Kind())
	}
	return value.Int(r.Start), nil
}

func fnEndNode(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	r, ok := v.AsRelationship()
	if !ok {
		return value.Null, cerr.NewTypeError("endNode() requires a Relationship, got %s", v.Kind())
	}
	return value.Int(r.End), nil
}

func fnRange(args []value.Value) (value.Value, error) {
	startV, endV := arg(args, 0), arg(args, 1)
	if startV.IsNull() || endV.IsNull() {
		return value.Null, nil
	}
	start, ok := startV.AsInt()
	if !ok {
		return value.Null, cerr.NewTypeError("range() requires Integers")
	}
	end, ok := endV.AsInt()
	if !ok {
		return value.Null, cerr.NewTypeError("range() requires Integers")
	}
	step := int64(1)
	if len(args) > 2 && !args[2].IsNull() {
		s, ok := args[2].AsInt()
		if !ok || s == 0 {
			return value.Null, cerr.NewTypeError("range() step must be a non-zero Integer")
		}
		step = s
	}
	var out []value.Value
	if step > 0 {
		for i := start; i <= end; i += step {
			out = append(out, value.Int(i))
		}
	} else {
		for i := start; i >= end; i += step {
			out = append(out, value.Int(i))
		}
	}
	return value.List(out), nil
}

func fnHead(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	items, ok := v.AsList()
	if !ok {
		return value.Null, cerr.NewTypeError("head() requires a List, got %s", v.Kind())
	}
	if len(items) == 0 {
		return value.Null, nil
	}
	return items[0], nil
}

func fnLast(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	items, ok := v.AsList()
	if !ok {
		return value.Null, cerr.NewTypeError("last() requires a List, got %s", v.Kind())
	}
	if len(items) == 0 {
		return value.Null, nil
	}
	return items[len(items)-1], nil
}

func fnReverse(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if s, ok := v.AsString(); ok {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return value.String(string(r)), nil
	}
	items, ok := v.AsList()
	if !ok {
		return value.Null, cerr.NewTypeError("reverse() requires a List or String, got %s", v.Kind())
	}
	out := make([]value.Value, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return value.List(out), nil
}

func fnSign(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	f, ok := v.Float64()
	if !ok {
		return value.Null, cerr.NewTypeError("sign() requires a number, got %s", v.Kind())
	}
	switch {
	case f > 0:
		return value.Int(1), nil
	case f < 0:
		return value.Int(-1), nil
	default:
		return value.Int(0), nil
	}
}

func fnSubstring(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	s, ok := v.AsString()
	if !ok {
		return value.Null, cerr.NewTypeError("substring() requires a String, got %s", v.Kind())
	}
	r := []rune(s)
	start, ok := arg(args, 1).AsInt()
	if !ok {
		return value.Null, cerr.NewTypeError("substring() start must be an Integer")
	}
	if start < 0 {
		start = 0
	}
	if start > int64(len(r)) {
		start = int64(len(r))
	}
	length := int64(len(r)) - start
	if len(args) > 2 && !args[2].IsNull() {
		l, ok := args[2].AsInt()
		if !ok {
			return value.Null, cerr.NewTypeError("substring() length must be an Integer")
		}
		length = l
	}
	end := start + length
	if end > int64(len(r)) {
		end = int64(len(r))
	}
	if end < start {
		end = start
	}
	return value.String(string(r[start:end])), nil
}

func fnReplace(args []value.Value) (value.Value, error) {
	v, search, replacement := arg(args, 0), arg(args, 1), arg(args, 2)
	if v.IsNull() {
		return value.Null, nil
	}
	s, ok1 := v.AsString()
	search2, ok2 := search.AsString()
	repl, ok3 := replacement.AsString()
	if !ok1 || !ok2 || !ok3 {
		return value.Null, cerr.NewTypeError("replace() requires String arguments")
	}
	return value.String(strings.ReplaceAll(s, search2, repl)), nil
}

func fnSplit(args []value.Value) (value.Value, error) {
	v, sep := arg(args, 0), arg(args, 1)
	if v.IsNull() {
		return value.Null, nil
	}
	s, ok1 := v.AsString()
	d, ok2 := sep.AsString()
	if !ok1 || !ok2 {
		return value.Null, cerr.NewTypeError("split() requires String arguments")
	}
	parts := strings.Split(s, d)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.String(p)
	}
	return value.List(out), nil
}
