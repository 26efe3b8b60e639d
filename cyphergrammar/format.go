package cyphergrammar

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders an AST back into Cypher source text, re-parsing which
// yields a structurally equal AST (spec.md §8: "Parser round-trip:
// pretty-printing the AST and re-parsing yields a structurally equal
// AST"). It is not meant to reproduce the original formatting, only a
// syntactically valid reconstruction of what the parser captured.
func Format(s *Script) string {
	if s == nil || s.Query == nil {
		return ""
	}
	var sb strings.Builder
	formatQuery(&sb, s.Query)
	return sb.String()
}

func formatQuery(sb *strings.Builder, q *Query) {
	if q == nil || q.SingleQuery == nil {
		return
	}
	for i, c := range q.SingleQuery.Clauses {
		if i > 0 {
			sb.WriteString(" ")
		}
		formatClause(sb, c)
	}
}

func formatClause(sb *strings.Builder, c *Clause) {
	if c == nil {
		return
	}
	switch {
	case c.Reading != nil:
		formatReadingClause(sb, c.Reading)
	case c.Updating != nil:
		formatUpdatingClause(sb, c.Updating)
	case c.With != nil:
		formatWithClause(sb, c.With)
	case c.Return != nil:
		formatReturnClause(sb, c.Return)
	}
}

func formatReadingClause(sb *strings.Builder, r *ReadingClause) {
	switch {
	case r.Match != nil:
		formatMatchClause(sb, r.Match)
	case r.Unwind != nil:
		formatUnwindClause(sb, r.Unwind)
	}
}

func formatUpdatingClause(sb *strings.Builder, u *UpdatingClause) {
	if u.Create != nil {
		formatCreateClause(sb, u.Create)
	}
}

func formatMatchClause(sb *strings.Builder, m *MatchClause) {
	if m.Optional {
		sb.WriteString("OPTIONAL ")
	}
	sb.WriteString("MATCH ")
	formatPattern(sb, m.Pattern)
	if m.Where != nil {
		sb.WriteString(" ")
		formatWhere(sb, m.Where)
	}
}

func formatUnwindClause(sb *strings.Builder, u *UnwindClause) {
	sb.WriteString("UNWIND ")
	formatExpression(sb, u.Expr)
	sb.WriteString(" AS ")
	sb.WriteString(u.Symbol)
}

func formatCreateClause(sb *strings.Builder, c *CreateClause) {
	sb.WriteString("CREATE ")
	formatPattern(sb, c.Pattern)
}

func formatWithClause(sb *strings.Builder, w *WithClause) {
	sb.WriteString("WITH ")
	formatProjectionBody(sb, w.Body)
	if w.Where != nil {
		sb.WriteString(" ")
		formatWhere(sb, w.Where)
	}
}

func formatReturnClause(sb *strings.Builder, r *ReturnClause) {
	sb.WriteString("RETURN ")
	formatProjectionBody(sb, r.Body)
}

func formatProjectionBody(sb *strings.Builder, b *ProjectionBody) {
	if b.Distinct {
		sb.WriteString("DISTINCT ")
	}
	formatProjectionItems(sb, b.Items)
	if b.Order != nil {
		sb.WriteString(" ")
		formatOrderBy(sb, b.Order)
	}
	if b.Skip != nil {
		sb.WriteString(" ")
		formatSkip(sb, b.Skip)
	}
	if b.Limit != nil {
		sb.WriteString(" ")
		formatLimit(sb, b.Limit)
	}
}

func formatProjectionItems(sb *strings.Builder, items *ProjectionItems) {
	if items.Star {
		sb.WriteString("*")
		return
	}
	for i, item := range items.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatExpression(sb, item.Expr)
		if item.Alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(item.Alias)
		}
	}
}

func formatOrderBy(sb *strings.Builder, o *OrderBy) {
	sb.WriteString("ORDER BY ")
	for i, item := range o.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatExpression(sb, item.Expr)
		if item.Desc {
			sb.WriteString(" DESC")
		}
	}
}

func formatSkip(sb *strings.Builder, s *Skip) {
	sb.WriteString("SKIP ")
	formatExpression(sb, s.Expr)
}

func formatLimit(sb *strings.Builder, l *Limit) {
	sb.WriteString("LIMIT ")
	formatExpression(sb, l.Expr)
}

func formatWhere(sb *strings.Builder, w *Where) {
	sb.WriteString("WHERE ")
	formatExpression(sb, w.Expr)
}

// --- patterns ---

func formatPattern(sb *strings.Builder, p *Pattern) {
	for i, part := range p.Parts {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatPatternPart(sb, part)
	}
}

func formatPatternPart(sb *strings.Builder, p *PatternPart) {
	if p.Var != "" {
		sb.WriteString(p.Var)
		sb.WriteString(" = ")
	}
	formatPatternElement(sb, p.Element)
}

func formatPatternElement(sb *strings.Builder, e *PatternElement) {
	if e == nil {
		return
	}
	if e.Paren != nil {
		sb.WriteString("(")
		formatPatternElement(sb, e.Paren)
		sb.WriteString(")")
	} else {
		formatNodePattern(sb, e.Node)
	}
	for _, chain := range e.Chain {
		formatRelationshipPattern(sb, chain.Rel)
		formatNodePattern(sb, chain.Node)
	}
}

func formatNodePattern(sb *strings.Builder, n *NodePattern) {
	sb.WriteString("(")
	sb.WriteString(n.Variable)
	if n.Labels != nil {
		formatNodeLabels(sb, n.Labels)
	}
	if n.Properties != nil {
		if n.Variable != "" || n.Labels != nil {
			sb.WriteString(" ")
		}
		formatProperties(sb, n.Properties)
	}
	sb.WriteString(")")
}

func formatNodeLabels(sb *strings.Builder, l *NodeLabels) {
	for _, label := range l.Labels {
		sb.WriteString(":")
		sb.WriteString(label)
	}
}

func formatProperties(sb *strings.Builder, p *Properties) {
	switch {
	case p.Map != nil:
		formatMapLiteral(sb, p.Map)
	case p.Param != nil:
		formatParameter(sb, p.Param)
	}
}

func formatRelationshipPattern(sb *strings.Builder, r *RelationshipPattern) {
	if r.LeftArrow {
		sb.WriteString("<")
	}
	sb.WriteString("-")
	if r.Detail != nil {
		sb.WriteString("[")
		formatRelationshipDetail(sb, r.Detail)
		sb.WriteString("]")
	}
	sb.WriteString("-")
	if r.RightArrow {
		sb.WriteString(">")
	}
}

func formatRelationshipDetail(sb *strings.Builder, d *RelationshipDetail) {
	sb.WriteString(d.Variable)
	if d.Types != nil {
		formatRelationshipTypes(sb, d.Types)
	}
	if d.Range != nil {
		formatRangeLiteral(sb, d.Range)
	}
	if d.Properties != nil {
		formatProperties(sb, d.Properties)
	}
}

func formatRelationshipTypes(sb *strings.Builder, t *RelationshipTypes) {
	for i, typ := range t.Types {
		if i == 0 {
			sb.WriteString(":")
		} else {
			sb.WriteString("|")
		}
		sb.WriteString(typ)
	}
}

func formatRangeLiteral(sb *strings.Builder, r *RangeLiteral) {
	sb.WriteString("*")
	if r.Min != nil {
		fmt.Fprintf(sb, "%d", *r.Min)
	}
	if r.Range {
		sb.WriteString("..")
	}
	if r.Max != nil {
		fmt.Fprintf(sb, "%d", *r.Max)
	}
}

// --- expressions, lowest to highest precedence ---

func formatExpression(sb *strings.Builder, e *Expression) {
	if e == nil {
		return
	}
	formatXor(sb, e.Left)
	for _, term := range e.Right {
		sb.WriteString(" OR ")
		formatXor(sb, term.Expr)
	}
}

func formatXor(sb *strings.Builder, x *XorExpr) {
	if x == nil {
		return
	}
	formatAnd(sb, x.Left)
	for _, term := range x.Right {
		sb.WriteString(" XOR ")
		formatAnd(sb, term.Expr)
	}
}

func formatAnd(sb *strings.Builder, a *AndExpr) {
	if a == nil {
		return
	}
	formatNot(sb, a.Left)
	for _, term := range a.Right {
		sb.WriteString(" AND ")
		formatNot(sb, term.Expr)
	}
}

func formatNot(sb *strings.Builder, n *NotExpr) {
	if n == nil {
		return
	}
	if n.Not {
		sb.WriteString("NOT ")
	}
	formatComparison(sb, n.Expr)
}

func formatComparison(sb *strings.Builder, c *ComparisonExpr) {
	if c == nil {
		return
	}
	formatAddSub(sb, c.Left)
	for _, term := range c.Right {
		sb.WriteString(" ")
		sb.WriteString(term.Op)
		sb.WriteString(" ")
		formatAddSub(sb, term.Expr)
	}
}

func formatAddSub(sb *strings.Builder, a *AddSubExpr) {
	if a == nil {
		return
	}
	formatMultDiv(sb, a.Left)
	for _, term := range a.Right {
		sb.WriteString(" ")
		sb.WriteString(term.Op)
		sb.WriteString(" ")
		formatMultDiv(sb, term.Expr)
	}
}

func formatMultDiv(sb *strings.Builder, m *MultDivExpr) {
	if m == nil {
		return
	}
	formatPower(sb, m.Left)
	for _, term := range m.Right {
		sb.WriteString(" ")
		sb.WriteString(term.Op)
		sb.WriteString(" ")
		formatPower(sb, term.Expr)
	}
}

func formatPower(sb *strings.Builder, p *PowerExpr) {
	if p == nil {
		return
	}
	formatUnary(sb, p.Left)
	for _, term := range p.Right {
		sb.WriteString(" ^ ")
		formatUnary(sb, term.Expr)
	}
}

func formatUnary(sb *strings.Builder, u *UnaryExpr) {
	if u == nil {
		return
	}
	sb.WriteString(u.Op)
	formatPostfix(sb, u.Expr)
}

func formatPostfix(sb *strings.Builder, p *PostfixExpr) {
	if p == nil {
		return
	}
	formatAtom(sb, p.Atom)
	for _, suffix := range p.Suffixes {
		switch {
		case suffix.Property != "":
			sb.WriteString(".")
			sb.WriteString(suffix.Property)
		case suffix.Index != nil:
			sb.WriteString("[")
			if suffix.Index.Start != nil {
				formatExpression(sb, suffix.Index.Start)
			}
			if suffix.Index.Range {
				sb.WriteString("..")
			}
			if suffix.Index.End != nil {
				formatExpression(sb, suffix.Index.End)
			}
			sb.WriteString("]")
		case suffix.Labels != nil:
			formatNodeLabels(sb, suffix.Labels)
		case suffix.IsNull != nil:
			sb.WriteString(" IS ")
			if suffix.IsNull.Not {
				sb.WriteString("NOT ")
			}
			sb.WriteString("NULL")
		case suffix.In != nil:
			sb.WriteString(" IN ")
			formatAddSub(sb, suffix.In.Expr)
		case suffix.StringPred != nil:
			switch {
			case suffix.StringPred.StartsWith != nil:
				sb.WriteString(" STARTS WITH ")
				formatAddSub(sb, suffix.StringPred.StartsWith)
			case suffix.StringPred.EndsWith != nil:
				sb.WriteString(" ENDS WITH ")
				formatAddSub(sb, suffix.StringPred.EndsWith)
			case suffix.StringPred.Contains != nil:
				sb.WriteString(" CONTAINS ")
				formatAddSub(sb, suffix.StringPred.Contains)
			}
		}
	}
}

func formatAtom(sb *strings.Builder, a *Atom) {
	if a == nil {
		return
	}
	switch {
	case a.ListComprehension != nil:
		formatListComprehension(sb, a.ListComprehension)
	case a.Parameter != nil:
		formatParameter(sb, a.Parameter)
	case a.CaseExpr != nil:
		formatCaseExpression(sb, a.CaseExpr)
	case a.CountAll:
		sb.WriteString("count(*)")
	case a.Parenthesized != nil:
		sb.WriteString("(")
		formatExpression(sb, a.Parenthesized)
		sb.WriteString(")")
	case a.FunctionCall != nil:
		formatFunctionCall(sb, a.FunctionCall)
	case a.Literal != nil:
		formatLiteral(sb, a.Literal)
	case a.Variable != "":
		sb.WriteString(a.Variable)
	}
}

func formatParameter(sb *strings.Builder, p *Parameter) {
	sb.WriteString("$")
	sb.WriteString(p.Name)
}

func formatListComprehension(sb *strings.Builder, lc *ListComprehension) {
	sb.WriteString("[")
	sb.WriteString(lc.Variable)
	sb.WriteString(" IN ")
	formatExpression(sb, lc.Source)
	if lc.Where != nil {
		sb.WriteString(" WHERE ")
		formatExpression(sb, lc.Where.Expr)
	}
	if lc.Mapping != nil {
		sb.WriteString(" | ")
		formatExpression(sb, lc.Mapping)
	}
	sb.WriteString("]")
}

func formatCaseExpression(sb *strings.Builder, c *CaseExpression) {
	sb.WriteString("CASE")
	if c.Input != nil {
		sb.WriteString(" ")
		formatExpression(sb, c.Input)
	}
	for _, when := range c.Whens {
		sb.WriteString(" WHEN ")
		formatExpression(sb, when.When)
		sb.WriteString(" THEN ")
		formatExpression(sb, when.Then)
	}
	if c.Else != nil {
		sb.WriteString(" ELSE ")
		formatExpression(sb, c.Else)
	}
	sb.WriteString(" END")
}

func formatFunctionCall(sb *strings.Builder, f *FunctionCall) {
	sb.WriteString(f.Name.String())
	sb.WriteString("(")
	if f.Distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, arg := range f.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatExpression(sb, arg)
	}
	sb.WriteString(")")
}

func formatLiteral(sb *strings.Builder, lit *Literal) {
	switch {
	case lit.Null:
		sb.WriteString("null")
	case lit.True:
		sb.WriteString("true")
	case lit.False:
		sb.WriteString("false")
	case lit.HexInt != nil:
		sb.WriteString(*lit.HexInt)
	case lit.OctInt != nil:
		sb.WriteString(*lit.OctInt)
	case lit.Int != nil:
		fmt.Fprintf(sb, "%d", *lit.Int)
	case lit.Float != nil:
		sb.WriteString(strconv.FormatFloat(*lit.Float, 'g', -1, 64))
	case lit.String != nil:
		formatQuotedString(sb, *lit.String)
	case lit.List != nil:
		formatListLiteral(sb, lit.List)
	case lit.Map != nil:
		formatMapLiteral(sb, lit.Map)
	}
}

func formatListLiteral(sb *strings.Builder, l *ListLiteral) {
	sb.WriteString("[")
	for i, item := range l.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatExpression(sb, item)
	}
	sb.WriteString("]")
}

func formatMapLiteral(sb *strings.Builder, m *MapLiteral) {
	sb.WriteString("{")
	for i, pair := range m.Pairs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pair.Key)
		sb.WriteString(": ")
		formatExpression(sb, pair.Value)
	}
	sb.WriteString("}")
}

// formatQuotedString re-escapes a decoded string value back into a
// double-quoted Cypher string literal using the escape set spec.md §4.1
// names, the inverse of unquoteString.
func formatQuotedString(sb *strings.Builder, s string) {
	sb.WriteString(`"`)
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString(`"`)
}
