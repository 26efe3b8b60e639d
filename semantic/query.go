package semantic

import "github.com/jakewins/cyphercore/planner"

// Clause is implemented by every resolved clause type. It carries no
// behaviour; the planner type-switches on the concrete type.
type Clause interface {
	clauseNode()
}

// MatchClause is a resolved MATCH or OPTIONAL MATCH.
type MatchClause struct {
	Optional     bool
	Pattern      *Pattern
	Where        *Expr
	InputSchema  planner.Schema
	OutputSchema planner.Schema
}

func (*MatchClause) clauseNode() {}

// UnwindClause is a resolved UNWIND expr AS x.
type UnwindClause struct {
	Expr         *Expr
	Variable     string
	Slot         int
	InputSchema  planner.Schema
	OutputSchema planner.Schema
}

func (*UnwindClause) clauseNode() {}

// ProjectionItem is one resolved WITH/RETURN projection entry.
type ProjectionItem struct {
	Expr  *Expr
	Alias string
	Slot  int
}

// OrderItem is one resolved ORDER BY entry.
type OrderItem struct {
	Expr *Expr
	Desc bool
}

// ProjectionClause is a resolved WITH or RETURN clause; the two share a
// shape (spec.md §4.3: "RETURN — same as WITH except it is terminal").
type ProjectionClause struct {
	IsReturn     bool
	Distinct     bool
	Star         bool
	Items        []ProjectionItem
	HasAggregate bool
	Where        *Expr // WITH only
	OrderBy      []OrderItem
	Skip         *Expr
	Limit        *Expr
	InputSchema  planner.Schema
	OutputSchema planner.Schema
}

func (*ProjectionClause) clauseNode() {}

// CreateClause is a resolved CREATE pattern.
type CreateClause struct {
	Pattern      *Pattern
	InputSchema  planner.Schema
	OutputSchema planner.Schema
}

func (*CreateClause) clauseNode() {}

// Query is the fully resolved clause sequence Analyze produces, ready
// for planner.Build.
type Query struct {
	Clauses []Clause
}
