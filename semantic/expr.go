package semantic

import (
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/jakewins/cyphercore/value"
)

// ExprKind tags the resolved expression variant. Analyze collapses the
// parser's deep precedence-chain productions (OR > XOR > AND > NOT >
// comparison > add/sub > mul/div/mod > power > unary > postfix > atom)
// into this flat tagged union once precedence has done its job; neither
// the planner nor the evaluator need to know the grammar shape.
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprParameter
	ExprRef
	ExprListLit
	ExprMapLit
	ExprProperty
	ExprIndex
	ExprHasLabel
	ExprUnaryMinus
	ExprUnaryPlus
	ExprArith    // Op: + - * / % ^
	ExprCompare  // Op: = <> < > <= >=
	ExprAnd
	ExprOr
	ExprXor
	ExprNot
	ExprIsNull   // Op: "not" for IS NOT NULL, "" for IS NULL
	ExprIn
	ExprStringPred // Op: STARTS_WITH | ENDS_WITH | CONTAINS
	ExprFunctionCall
	ExprCountAll
	ExprCase
	ExprListComprehension
	// ExprPathBuild assembles a named path variable's value from the
	// slots its pattern part bound, in order: node, rel, node, ...,
	// node (Items holds alternating ExprRef nodes). The planner emits
	// it, never the parser/analyser from source text.
	ExprPathBuild
)

// MapPairExpr is one key/expression pair of a resolved map literal.
type MapPairExpr struct {
	Key   string
	Value *Expr
}

// CaseWhenExpr is one WHEN/THEN arm of a resolved CASE expression.
type CaseWhenExpr struct {
	When *Expr
	Then *Expr
}

// Expr is the resolved, classified form of a cyphergrammar.Expression.
// Aggregate is set on ExprFunctionCall nodes (and propagates to any node
// transitively containing one) per spec.md §4.2's scalar/aggregate tag.
type Expr struct {
	Kind ExprKind
	Pos  lexer.Position

	Aggregate bool

	Literal value.Value // ExprLiteral
	Name    string      // ExprParameter name; ExprFunctionCall name; ExprProperty/ExprIndex property name holder unused
	Ref     Ref         // ExprRef

	Items    []*Expr       // ExprListLit; ExprFunctionCall args
	MapPairs []MapPairExpr // ExprMapLit

	Base     *Expr // ExprProperty/ExprIndex/ExprUnary*/ExprNot/ExprIsNull base operand
	Property string

	IndexStart *Expr // ExprIndex
	IndexEnd   *Expr
	IndexRange bool

	Labels []string // ExprHasLabel

	Op    string // ExprArith/ExprCompare/ExprStringPred operator text
	Left  *Expr  // ExprArith/ExprCompare/ExprAnd/ExprOr/ExprXor/ExprIn/ExprStringPred left operand
	Right *Expr  // right operand

	Distinct bool // ExprFunctionCall DISTINCT

	CaseInput *Expr
	CaseWhens []CaseWhenExpr
	CaseElse  *Expr

	CompVar     string // ExprListComprehension
	CompSource  *Expr
	CompWhere   *Expr
	CompMapping *Expr
}

// IsAggregate reports the scalar/aggregate classification spec.md §4.2
// requires the analyser attach to every expression.
func (e *Expr) IsAggregate() bool { return e != nil && e.Aggregate }
