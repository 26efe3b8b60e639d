package semantic

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/cyphergrammar"
	"github.com/jakewins/cyphercore/value"
)

// comprehensionScope is a singly-linked chain of list-comprehension-local
// variables, innermost first. List comprehensions (`[x IN list | expr]`)
// introduce a variable that never reaches a row slot (spec.md §9: "Rows
// are arrays, not mappings" — but a comprehension variable has no row to
// live in, hence RefLocal rather than RefRow in ref.go).
type comprehensionScope struct {
	name   string
	parent *comprehensionScope
}

func (s *comprehensionScope) resolve(name string) (Ref, bool) {
	depth := 0
	for c := s; c != nil; c = c.parent {
		if c.name == name {
			return Ref{Kind: RefLocal, Depth: depth, Name: name}, true
		}
		depth++
	}
	return Ref{}, false
}

// resolveExpr lowers a parsed expression into the flat Expr tree, resolving
// every identifier against the current row schema (or, inside a list
// comprehension, the comprehension scope chain first) and classifying
// every node scalar/aggregate per spec.md §4.2.
func (a *analyzer) resolveExpr(expr *cyphergrammar.Expression, comp *comprehensionScope) (*Expr, error) {
	left, err := a.resolveXor(expr.Left, comp)
	if err != nil {
		return nil, err
	}
	for _, term := range expr.Right {
		right, err := a.resolveXor(term.Expr, comp)
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprOr, Pos: term.Pos, Left: left, Right: right, Aggregate: left.Aggregate || right.Aggregate}
	}
	return left, nil
}

func (a *analyzer) resolveXor(x *cyphergrammar.XorExpr, comp *comprehensionScope) (*Expr, error) {
	left, err := a.resolveAnd(x.Left, comp)
	if err != nil {
		return nil, err
	}
	for _, term := range x.Right {
		right, err := a.resolveAnd(term.Expr, comp)
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprXor, Pos: term.Pos, Left: left, Right: right, Aggregate: left.Aggregate || right.Aggregate}
	}
	return left, nil
}

func (a *analyzer) resolveAnd(n *cyphergrammar.AndExpr, comp *comprehensionScope) (*Expr, error) {
	left, err := a.resolveNot(n.Left, comp)
	if err != nil {
		return nil, err
	}
	for _, term := range n.Right {
		right, err := a.resolveNot(term.Expr, comp)
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprAnd, Pos: term.Pos, Left: left, Right: right, Aggregate: left.Aggregate || right.Aggregate}
	}
	return left, nil
}

func (a *analyzer) resolveNot(n *cyphergrammar.NotExpr, comp *comprehensionScope) (*Expr, error) {
	inner, err := a.resolveComparison(n.Expr, comp)
	if err != nil {
		return nil, err
	}
	if !n.Not {
		return inner, nil
	}
	return &Expr{Kind: ExprNot, Pos: n.Pos, Base: inner, Aggregate: inner.Aggregate}, nil
}

// resolveComparison folds a chain of comparison terms pairwise-ANDed,
// since the grammar permits `a = b <> c` chaining even though a single
// pair is the overwhelmingly common case.
func (a *analyzer) resolveComparison(c *cyphergrammar.ComparisonExpr, comp *comprehensionScope) (*Expr, error) {
	left, err := a.resolveAddSub(c.Left, comp)
	if err != nil {
		return nil, err
	}
	if len(c.Right) == 0 {
		return left, nil
	}
	var result *Expr
	prev := left
	for _, term := range c.Right {
		next, err := a.resolveAddSub(term.Expr, comp)
		if err != nil {
			return nil, err
		}
		cmp := &Expr{Kind: ExprCompare, Pos: term.Pos, Op: term.Op, Left: prev, Right: next, Aggregate: prev.Aggregate || next.Aggregate}
		if result == nil {
			result = cmp
		} else {
			result = &Expr{Kind: ExprAnd, Pos: term.Pos, Left: result, Right: cmp, Aggregate: result.Aggregate || cmp.Aggregate}
		}
		prev = next
	}
	return result, nil
}

func (a *analyzer) resolveAddSub(n *cyphergrammar.AddSubExpr, comp *comprehensionScope) (*Expr, error) {
	left, err := a.resolveMultDiv(n.Left, comp)
	if err != nil {
		return nil, err
	}
	for _, term := range n.Right {
		right, err := a.resolveMultDiv(term.Expr, comp)
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprArith, Pos: term.Pos, Op: term.Op, Left: left, Right: right, Aggregate: left.Aggregate || right.Aggregate}
	}
	return left, nil
}

func (a *analyzer) resolveMultDiv(n *cyphergrammar.MultDivExpr, comp *comprehensionScope) (*Expr, error) {
	left, err := a.resolvePower(n.Left, comp)
	if err != nil {
		return nil, err
	}
	for _, term := range n.Right {
		right, err := a.resolvePower(term.Expr, comp)
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprArith, Pos: term.Pos, Op: term.Op, Left: left, Right: right, Aggregate: left.Aggregate || right.Aggregate}
	}
	return left, nil
}

func (a *analyzer) resolvePower(n *cyphergrammar.PowerExpr, comp *comprehensionScope) (*Expr, error) {
	left, err := a.resolveUnary(n.Left, comp)
	if err != nil {
		return nil, err
	}
	for _, term := range n.Right {
		right, err := a.resolveUnary(term.Expr, comp)
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprArith, Pos: term.Pos, Op: "^", Left: left, Right: right, Aggregate: left.Aggregate || right.Aggregate}
	}
	return left, nil
}

func (a *analyzer) resolveUnary(u *cyphergrammar.UnaryExpr, comp *comprehensionScope) (*Expr, error) {
	inner, err := a.resolvePostfix(u.Expr, comp)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "-":
		// spec.md's Open Questions: treat a subtractive-prefix unary minus
		// as (0 - x) at the AST level rather than a distinct operator.
		zero := &Expr{Kind: ExprLiteral, Pos: u.Pos, Literal: value.Int(0)}
		return &Expr{Kind: ExprArith, Pos: u.Pos, Op: "-", Left: zero, Right: inner, Aggregate: inner.Aggregate}, nil
	case "+":
		return &Expr{Kind: ExprUnaryPlus, Pos: u.Pos, Base: inner, Aggregate: inner.Aggregate}, nil
	default:
		return inner, nil
	}
}

func (a *analyzer) resolvePostfix(p *cyphergrammar.PostfixExpr, comp *comprehensionScope) (*Expr, error) {
	current, err := a.resolveAtom(p.Atom, comp)
	if err != nil {
		return nil, err
	}
	for _, suffix := range p.Suffixes {
		switch {
		case suffix.Property != "":
			current = &Expr{Kind: ExprProperty, Pos: suffix.Pos, Base: current, Property: suffix.Property, Aggregate: current.Aggregate}
		case suffix.Index != nil:
			idx := suffix.Index
			var start, end *Expr
			if idx.Start != nil {
				start, err = a.resolveExpr(idx.Start, comp)
				if err != nil {
					return nil, err
				}
			}
			if idx.End != nil {
				end, err = a.resolveExpr(idx.End, comp)
				if err != nil {
					return nil, err
				}
			}
			agg := current.Aggregate || (start != nil && start.Aggregate) || (end != nil && end.Aggregate)
			current = &Expr{Kind: ExprIndex, Pos: suffix.Pos, Base: current, IndexStart: start, IndexEnd: end, IndexRange: idx.Range, Aggregate: agg}
		case suffix.Labels != nil:
			current = &Expr{Kind: ExprHasLabel, Pos: suffix.Pos, Base: current, Labels: suffix.Labels.Labels, Aggregate: current.Aggregate}
		case suffix.IsNull != nil:
			current = &Expr{Kind: ExprIsNull, Pos: suffix.Pos, Base: current, Op: boolOp(suffix.IsNull.Not), Aggregate: current.Aggregate}
		case suffix.In != nil:
			right, err := a.resolveAddSub(suffix.In.Expr, comp)
			if err != nil {
				return nil, err
			}
			current = &Expr{Kind: ExprIn, Pos: suffix.Pos, Left: current, Right: right, Aggregate: current.Aggregate || right.Aggregate}
		case suffix.StringPred != nil:
			sp := suffix.StringPred
			var op string
			var operand *cyphergrammar.AddSubExpr
			switch {
			case sp.StartsWith != nil:
				op, operand = "STARTS_WITH", sp.StartsWith
			case sp.EndsWith != nil:
				op, operand = "ENDS_WITH", sp.EndsWith
			default:
				op, operand = "CONTAINS", sp.Contains
			}
			right, err := a.resolveAddSub(operand, comp)
			if err != nil {
				return nil, err
			}
			current = &Expr{Kind: ExprStringPred, Pos: suffix.Pos, Op: op, Left: current, Right: right, Aggregate: current.Aggregate || right.Aggregate}
		}
	}
	return current, nil
}

// boolOp is a small readability aid for the Op field ExprIsNull overloads:
// "not" for IS NOT NULL, "" for IS NULL (see expr.go).
func boolOp(not bool) string {
	if not {
		return "not"
	}
	return ""
}

func (a *analyzer) resolveAtom(atom *cyphergrammar.Atom, comp *comprehensionScope) (*Expr, error) {
	switch {
	case atom.ListComprehension != nil:
		return a.resolveListComprehension(atom.ListComprehension, comp)
	case atom.Parameter != nil:
		return a.resolveParameter(atom.Parameter)
	case atom.CaseExpr != nil:
		return a.resolveCase(atom.CaseExpr, comp)
	case atom.CountAll:
		return &Expr{Kind: ExprCountAll, Pos: atom.Pos, Aggregate: true}, nil
	case atom.Parenthesized != nil:
		return a.resolveExpr(atom.Parenthesized, comp)
	case atom.FunctionCall != nil:
		return a.resolveFunctionCall(atom.FunctionCall, comp)
	case atom.Literal != nil:
		return a.resolveLiteral(atom.Literal, comp)
	case atom.Variable != "":
		return a.resolveVariable(atom.Variable, atom.Pos, comp)
	default:
		return nil, cerr.NewSemanticError("empty expression atom")
	}
}

func (a *analyzer) resolveVariable(name string, pos lexer.Position, comp *comprehensionScope) (*Expr, error) {
	if ref, ok := comp.resolve(name); ok {
		return &Expr{Kind: ExprRef, Pos: pos, Ref: ref, Name: name}, nil
	}
	if slot, ok := a.schema.IndexOf(name); ok {
		return &Expr{Kind: ExprRef, Pos: pos, Ref: Ref{Kind: RefRow, Slot: slot, Name: name}, Name: name}, nil
	}
	return nil, cerr.NewSemanticError("undefined symbol %q", name)
}

func (a *analyzer) resolveParameter(p *cyphergrammar.Parameter) (*Expr, error) {
	if a.knownParams != nil && !a.knownParams[p.Name] {
		return nil, cerr.NewSemanticError("undeclared parameter $%s", p.Name)
	}
	return &Expr{Kind: ExprParameter, Pos: p.Pos, Name: p.Name}, nil
}

func (a *analyzer) resolveLiteral(lit *cyphergrammar.Literal, comp *comprehensionScope) (*Expr, error) {
	switch {
	case lit.List != nil:
		items := make([]*Expr, 0, len(lit.List.Items))
		agg := false
		for _, item := range lit.List.Items {
			e, err := a.resolveExpr(item, comp)
			if err != nil {
				return nil, err
			}
			agg = agg || e.Aggregate
			items = append(items, e)
		}
		return &Expr{Kind: ExprListLit, Pos: lit.Pos, Items: items, Aggregate: agg}, nil
	case lit.Map != nil:
		pairs := make([]MapPairExpr, 0, len(lit.Map.Pairs))
		agg := false
		for _, pair := range lit.Map.Pairs {
			v, err := a.resolveExpr(pair.Value, comp)
			if err != nil {
				return nil, err
			}
			agg = agg || v.Aggregate
			pairs = append(pairs, MapPairExpr{Key: pair.Key, Value: v})
		}
		return &Expr{Kind: ExprMapLit, Pos: lit.Pos, MapPairs: pairs, Aggregate: agg}, nil
	case lit.HexInt != nil:
		i, err := parseSignedInt(*lit.HexInt, 0)
		if err != nil {
			return nil, cerr.NewSemanticError("invalid hex literal %q: %v", *lit.HexInt, err)
		}
		return &Expr{Kind: ExprLiteral, Pos: lit.Pos, Literal: value.Int(i)}, nil
	case lit.OctInt != nil:
		i, err := parseSignedInt(*lit.OctInt, 0)
		if err != nil {
			return nil, cerr.NewSemanticError("invalid octal literal %q: %v", *lit.OctInt, err)
		}
		return &Expr{Kind: ExprLiteral, Pos: lit.Pos, Literal: value.Int(i)}, nil
	default:
		return &Expr{Kind: ExprLiteral, Pos: lit.Pos, Literal: literalValue(lit)}, nil
	}
}

// parseSignedInt parses a Go-style integer literal (with optional leading
// "-" and a "0x"/"0" prefix baked in by the lexer) using base 0 so strconv
// infers hex/octal from the prefix.
func parseSignedInt(s string, base int) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		uv, uerr := strconv.ParseUint(s, base, 64)
		if uerr != nil {
			return 0, err
		}
		v = int64(uv)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func (a *analyzer) resolveListComprehension(lc *cyphergrammar.ListComprehension, comp *comprehensionScope) (*Expr, error) {
	source, err := a.resolveExpr(lc.Source, comp)
	if err != nil {
		return nil, err
	}
	inner := &comprehensionScope{name: lc.Variable, parent: comp}
	var where, mapping *Expr
	if lc.Where != nil {
		where, err = a.resolveExpr(lc.Where.Expr, inner)
		if err != nil {
			return nil, err
		}
	}
	if lc.Mapping != nil {
		mapping, err = a.resolveExpr(lc.Mapping, inner)
		if err != nil {
			return nil, err
		}
	}
	agg := source.Aggregate || (where != nil && where.Aggregate) || (mapping != nil && mapping.Aggregate)
	if agg {
		return nil, cerr.NewSemanticError("aggregate functions are not allowed inside a list comprehension")
	}
	return &Expr{
		Kind:        ExprListComprehension,
		Pos:         lc.Pos,
		CompVar:     lc.Variable,
		CompSource:  source,
		CompWhere:   where,
		CompMapping: mapping,
	}, nil
}

func (a *analyzer) resolveCase(c *cyphergrammar.CaseExpression, comp *comprehensionScope) (*Expr, error) {
	var input *Expr
	var err error
	if c.Input != nil {
		input, err = a.resolveExpr(c.Input, comp)
		if err != nil {
			return nil, err
		}
	}
	agg := input != nil && input.Aggregate
	whens := make([]CaseWhenExpr, 0, len(c.Whens))
	for _, w := range c.Whens {
		when, err := a.resolveExpr(w.When, comp)
		if err != nil {
			return nil, err
		}
		then, err := a.resolveExpr(w.Then, comp)
		if err != nil {
			return nil, err
		}
		agg = agg || when.Aggregate || then.Aggregate
		whens = append(whens, CaseWhenExpr{When: when, Then: then})
	}
	var elseExpr *Expr
	if c.Else != nil {
		elseExpr, err = a.resolveExpr(c.Else, comp)
		if err != nil {
			return nil, err
		}
		agg = agg || elseExpr.Aggregate
	}
	return &Expr{
		Kind:      ExprCase,
		Pos:       c.Pos,
		CaseInput: input,
		CaseWhens: whens,
		CaseElse:  elseExpr,
		Aggregate: agg,
	}, nil
}

func (a *analyzer) resolveFunctionCall(fc *cyphergrammar.FunctionCall, comp *comprehensionScope) (*Expr, error) {
	name := fc.Name.String()
	lower := strings.ToLower(name)
	if !IsKnownFunction(lower) {
		return nil, cerr.NewSemanticError("unknown function %q", name)
	}
	args := make([]*Expr, 0, len(fc.Args))
	for _, arg := range fc.Args {
		e, err := a.resolveExpr(arg, comp)
		if err != nil {
			return nil, err
		}
		if IsAggregateFunction(lower) && e.Aggregate {
			return nil, cerr.NewSemanticError("aggregate functions cannot be nested inside %s(...)", name)
		}
		args = append(args, e)
	}
	isAgg := IsAggregateFunction(lower)
	agg := isAgg
	if !isAgg {
		for _, e := range args {
			agg = agg || e.Aggregate
		}
	}
	return &Expr{
		Kind:      ExprFunctionCall,
		Pos:       fc.Pos,
		Name:      lower,
		Items:     args,
		Distinct:  fc.Distinct,
		Aggregate: agg,
	}, nil
}
