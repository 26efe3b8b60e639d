package semantic

import (
	"fmt"
	"strings"

	"github.com/jakewins/cyphercore/cyphergrammar"
)

// renderExpr reconstructs source text for an unaliased projection item, so
// RETURN/WITH can auto-name it per spec.md §6.2 ("m.num" -> "m.num",
// "count(*)" -> "count(*)"). Grounded in the teacher's analyzer.go
// expressionToString/xorToString/... chain, which walks the same
// precedence productions for the same reason (IDE hover text there, a
// column header here).
func renderExpr(expr *cyphergrammar.Expression) string {
	if expr == nil {
		return ""
	}
	var sb strings.Builder
	renderXor(&sb, expr.Left)
	for _, term := range expr.Right {
		sb.WriteString(" OR ")
		renderXor(&sb, term.Expr)
	}
	return sb.String()
}

func renderXor(sb *strings.Builder, x *cyphergrammar.XorExpr) {
	if x == nil {
		return
	}
	renderAnd(sb, x.Left)
	for _, term := range x.Right {
		sb.WriteString(" XOR ")
		renderAnd(sb, term.Expr)
	}
}

func renderAnd(sb *strings.Builder, a *cyphergrammar.AndExpr) {
	if a == nil {
		return
	}
	renderNot(sb, a.Left)
	for _, term := range a.Right {
		sb.WriteString(" AND ")
		renderNot(sb, term.Expr)
	}
}

func renderNot(sb *strings.Builder, n *cyphergrammar.NotExpr) {
	if n == nil {
		return
	}
	if n.Not {
		sb.WriteString("NOT ")
	}
	renderComparison(sb, n.Expr)
}

func renderComparison(sb *strings.Builder, c *cyphergrammar.ComparisonExpr) {
	if c == nil {
		return
	}
	renderAddSub(sb, c.Left)
	for _, term := range c.Right {
		sb.WriteString(" ")
		sb.WriteString(term.Op)
		sb.WriteString(" ")
		renderAddSub(sb, term.Expr)
	}
}

func renderAddSub(sb *strings.Builder, a *cyphergrammar.AddSubExpr) {
	if a == nil {
		return
	}
	renderMultDiv(sb, a.Left)
	for _, term := range a.Right {
		sb.WriteString(" ")
		sb.WriteString(term.Op)
		sb.WriteString(" ")
		renderMultDiv(sb, term.Expr)
	}
}

func renderMultDiv(sb *strings.Builder, m *cyphergrammar.MultDivExpr) {
	if m == nil {
		return
	}
	renderPower(sb, m.Left)
	for _, term := range m.Right {
		sb.WriteString(" ")
		sb.WriteString(term.Op)
		sb.WriteString(" ")
		renderPower(sb, term.Expr)
	}
}

func renderPower(sb *strings.Builder, p *cyphergrammar.PowerExpr) {
	if p == nil {
		return
	}
	renderUnary(sb, p.Left)
	for _, term := range p.Right {
		sb.WriteString(" ^ ")
		renderUnary(sb, term.Expr)
	}
}

func renderUnary(sb *strings.Builder, u *cyphergrammar.UnaryExpr) {
	if u == nil {
		return
	}
	sb.WriteString(u.Op)
	renderPostfix(sb, u.Expr)
}

func renderPostfix(sb *strings.Builder, p *cyphergrammar.PostfixExpr) {
	if p == nil {
		return
	}
	renderAtom(sb, p.Atom)
	for _, suffix := range p.Suffixes {
		switch {
		case suffix.Property != "":
			sb.WriteString(".")
			sb.WriteString(suffix.Property)
		case suffix.Index != nil:
			sb.WriteString("[")
			if suffix.Index.Start != nil {
				sb.WriteString(renderExpr(suffix.Index.Start))
			}
			if suffix.Index.Range {
				sb.WriteString("..")
			}
			if suffix.Index.End != nil {
				sb.WriteString(renderExpr(suffix.Index.End))
			}
			sb.WriteString("]")
		case suffix.Labels != nil:
			for _, l := range suffix.Labels.Labels {
				sb.WriteString(":")
				sb.WriteString(l)
			}
		case suffix.IsNull != nil:
			sb.WriteString(" IS ")
			if suffix.IsNull.Not {
				sb.WriteString("NOT ")
			}
			sb.WriteString("NULL")
		case suffix.In != nil:
			sb.WriteString(" IN ")
			renderAddSub(sb, suffix.In.Expr)
		case suffix.StringPred != nil:
			switch {
			case suffix.StringPred.StartsWith != nil:
				sb.WriteString(" STARTS WITH ")
				renderAddSub(sb, suffix.StringPred.StartsWith)
			case suffix.StringPred.EndsWith != nil:
				sb.WriteString(" ENDS WITH ")
				renderAddSub(sb, suffix.StringPred.EndsWith)
			case suffix.StringPred.Contains != nil:
				sb.WriteString(" CONTAINS ")
				renderAddSub(sb, suffix.StringPred.Contains)
			}
		}
	}
}

func renderAtom(sb *strings.Builder, a *cyphergrammar.Atom) {
	if a == nil {
		return
	}
	switch {
	case a.Literal != nil:
		renderLiteral(sb, a.Literal)
	case a.Parameter != nil:
		sb.WriteString("$")
		sb.WriteString(a.Parameter.Name)
	case a.CountAll:
		sb.WriteString("count(*)")
	case a.ListComprehension != nil:
		lc := a.ListComprehension
		sb.WriteString("[")
		sb.WriteString(lc.Variable)
		sb.WriteString(" IN ")
		sb.WriteString(renderExpr(lc.Source))
		if lc.Where != nil {
			sb.WriteString(" WHERE ")
			sb.WriteString(renderExpr(lc.Where.Expr))
		}
		if lc.Mapping != nil {
			sb.WriteString(" | ")
			sb.WriteString(renderExpr(lc.Mapping))
		}
		sb.WriteString("]")
	case a.CaseExpr != nil:
		sb.WriteString("CASE")
		if a.CaseExpr.Input != nil {
			sb.WriteString(" ")
			sb.WriteString(renderExpr(a.CaseExpr.Input))
		}
		for _, when := range a.CaseExpr.Whens {
			sb.WriteString(" WHEN ")
			sb.WriteString(renderExpr(when.When))
			sb.WriteString(" THEN ")
			sb.WriteString(renderExpr(when.Then))
		}
		if a.CaseExpr.Else != nil {
			sb.WriteString(" ELSE ")
			sb.WriteString(renderExpr(a.CaseExpr.Else))
		}
		sb.WriteString(" END")
	case a.Parenthesized != nil:
		sb.WriteString("(")
		sb.WriteString(renderExpr(a.Parenthesized))
		sb.WriteString(")")
	case a.FunctionCall != nil:
		sb.WriteString(a.FunctionCall.Name.String())
		sb.WriteString("(")
		if a.FunctionCall.Distinct {
			sb.WriteString("DISTINCT ")
		}
		for i, arg := range a.FunctionCall.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(renderExpr(arg))
		}
		sb.WriteString(")")
	case a.Variable != "":
		sb.WriteString(a.Variable)
	}
}

func renderLiteral(sb *strings.Builder, lit *cyphergrammar.Literal) {
	switch {
	case lit.Null:
		sb.WriteString("null")
	case lit.True:
		sb.WriteString("true")
	case lit.False:
		sb.WriteString("false")
	case lit.Int != nil:
		fmt.Fprintf(sb, "%d", *lit.Int)
	case lit.Float != nil:
		fmt.Fprintf(sb, "%g", *lit.Float)
	case lit.String != nil:
		sb.WriteString(*lit.String)
	case lit.List != nil:
		sb.WriteString("[")
		for i, item := range lit.List.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(renderExpr(item))
		}
		sb.WriteString("]")
	case lit.Map != nil:
		sb.WriteString("{")
		for i, pair := range lit.Map.Pairs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(pair.Key)
			sb.WriteString(": ")
			sb.WriteString(renderExpr(pair.Value))
		}
		sb.WriteString("}")
	}
}

// autoName infers a column name from unaliased projection source text,
// e.g. "u.name" stays "u.name", "count(*)" stays "count(*)".
func autoName(expression string) string {
	return expression
}
