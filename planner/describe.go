package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jakewins/cyphercore/graph"
	"github.com/jakewins/cyphercore/semantic"
)

// Describe renders the plan as an indented operator tree, one line per
// operator with its bound parameters, in the style of an EXPLAIN dump
// (SPEC_FULL.md §10 supplemented feature). It exists purely for human
// inspection and tests; nothing in exec parses it back.
func (p *Plan) Describe() string {
	var b strings.Builder
	if p.Root == nil {
		return "<empty>\n"
	}
	describeOp(&b, p.Root, 0)
	return b.String()
}

func describeOp(b *strings.Builder, op *Op, depth int) {
	fmt.Fprintf(b, "%s%s%s\n", strings.Repeat("  ", depth), op.Kind.String(), detail(op))
	for _, c := range op.Children {
		describeOp(b, c, depth+1)
	}
}

func detail(op *Op) string {
	switch op.Kind {
	case OpScan:
		if op.ScanLabel == "" {
			return fmt.Sprintf("(slot=%d)", op.ScanSlot)
		}
		return fmt.Sprintf("(slot=%d, label=%s)", op.ScanSlot, op.ScanLabel)
	case OpArgument:
		return fmt.Sprintf("(width=%d)", op.Schema.Width())
	case OpExpand, OpExpandVarLen:
		dir := "->"
		switch op.Direction {
		case graph.In:
			dir = "<-"
		case graph.Both:
			dir = "--"
		}
		s := fmt.Sprintf("(%d %s[%d%s]%s %d", op.FromSlot, dir, op.RelSlot, typesOf(op.RelTypes), dir, op.ToSlot)
		if op.Kind == OpExpandVarLen {
			s += fmt.Sprintf(", range=%d..%s", op.Min, maxStr(op.Max))
		}
		return s + ")"
	case OpFilter:
		return "(" + exprString(op.Pred) + ")"
	case OpProject:
		return "(" + itemsString(op.Items) + ")"
	case OpAggregate:
		parts := itemsString(op.Items)
		for _, a := range op.Aggs {
			if parts != "" {
				parts += ", "
			}
			d := ""
			if a.Distinct {
				d = "DISTINCT "
			}
			arg := "*"
			if a.Arg != nil {
				arg = exprString(a.Arg)
			}
			parts += fmt.Sprintf("%d=%s(%s%s)", a.Slot, a.Func, d, arg)
		}
		return "(" + parts + ")"
	case OpSort:
		parts := make([]string, 0, len(op.SortKeys))
		for _, k := range op.SortKeys {
			dir := "ASC"
			if k.Desc {
				dir = "DESC"
			}
			parts = append(parts, exprString(k.Expr)+" "+dir)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case OpSkip, OpLimit:
		return "(" + exprString(op.CountExpr) + ")"
	case OpUnwind:
		return fmt.Sprintf("(%d = %s)", op.UnwindSlot, exprString(op.UnwindExpr))
	case OpOptional:
		return ""
	case OpCreateGraph:
		return fmt.Sprintf("(%d writes)", len(op.Writes))
	default:
		return ""
	}
}

func maxStr(max int) string {
	if max < 0 {
		return "inf"
	}
	return strconv.Itoa(max)
}

func typesOf(types []string) string {
	if len(types) == 0 {
		return ""
	}
	return ":" + strings.Join(types, "|")
}

func itemsString(items []ProjectItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%d=%s", it.Slot, exprString(it.Expr)))
	}
	return strings.Join(parts, ", ")
}

// exprString renders an Expr for EXPLAIN-style display only; it is not
// a parser round-trip and need not reconstruct valid Cypher syntax.
func exprString(e *semantic.Expr) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case semantic.ExprLiteral:
		return e.Literal.String()
	case semantic.ExprParameter:
		return "$" + e.Name
	case semantic.ExprRef:
		if e.Ref.Kind == semantic.RefLocal {
			return "~" + e.Name
		}
		return e.Name
	case semantic.ExprListLit:
		return "[" + joinExprs(e.Items) + "]"
	case semantic.ExprMapLit:
		parts := make([]string, 0, len(e.MapPairs))
		for _, p := range e.MapPairs {
			parts = append(parts, p.Key+": "+exprString(p.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case semantic.ExprProperty:
		return exprString(e.Base) + "." + e.Property
	case semantic.ExprIndex:
		if e.IndexRange {
			return fmt.Sprintf("%s[%s..%s]", exprString(e.Base), exprString(e.IndexStart), exprString(e.IndexEnd))
		}
		return fmt.Sprintf("%s[%s]", exprString(e.Base), exprString(e.IndexStart))
	case semantic.ExprHasLabel:
		return exprString(e.Base) + ":" + strings.Join(e.Labels, ":")
	case semantic.ExprUnaryMinus:
		return "-" + exprString(e.Base)
	case semantic.ExprUnaryPlus:
		return "+" + exprString(e.Base)
	case semantic.ExprArith, semantic.ExprCompare:
		return exprString(e.Left) + " " + e.Op + " " + exprString(e.Right)
	case semantic.ExprAnd:
		return exprString(e.Left) + " AND " + exprString(e.Right)
	case semantic.ExprOr:
		return exprString(e.Left) + " OR " + exprString(e.Right)
	case semantic.ExprXor:
		return exprString(e.Left) + " XOR " + exprString(e.Right)
	case semantic.ExprNot:
		return "NOT " + exprString(e.Base)
	case semantic.ExprIsNull:
		if e.Op == "not" {
			return exprString(e.Base) + " IS NOT NULL"
		}
		return exprString(e.Base) + " IS NULL"
	case semantic.ExprIn:
		return exprString(e.Left) + " IN " + exprString(e.Right)
	case semantic.ExprStringPred:
		return exprString(e.Left) + " " + e.Op + " " + exprString(e.Right)
	case semantic.ExprFunctionCall:
		d := ""
		if e.Distinct {
			d = "DISTINCT "
		}
		return e.Name + "(" + d + joinExprs(e.Items) + ")"
	case semantic.ExprCountAll:
		return "count(*)"
	case semantic.ExprCase:
		return "CASE ... END"
	case semantic.ExprListComprehension:
		return "[" + e.CompVar + " IN " + exprString(e.CompSource) + "]"
	case semantic.ExprPathBuild:
		return "path(" + joinExprs(e.Items) + ")"
	default:
		return "?"
	}
}

func joinExprs(items []*semantic.Expr) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, exprString(it))
	}
	return strings.Join(parts, ", ")
}
