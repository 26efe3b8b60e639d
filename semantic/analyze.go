// Package semantic resolves a cyphergrammar parse tree into a Query: a
// clause sequence in which every identifier reference has been resolved
// to a (scope-depth, slot-index) pair, every expression is tagged
// scalar/aggregate, and every clause carries its input and output row
// schemas (spec.md §4.2).
//
// It is grounded in the teacher's dialects/cypher/analyzer.go clause-order
// walk and queryContext/withLocal scope-chaining shape, generalised from
// IDE-metadata extraction to full slot resolution: instead of attaching
// annotations to the existing parse tree via parallel maps, Analyze
// produces its own typed tree (this package's Query/Clause/Expr types)
// that mirrors the clause sequence one-for-one — the original AST is left
// untouched either way, and a typed result tree is less error-prone than
// maps keyed by node pointer identity.
package semantic

import (
	"fmt"
	"strings"

	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/cyphergrammar"
	"github.com/jakewins/cyphercore/graph"
	"github.com/jakewins/cyphercore/planner"
	"github.com/jakewins/cyphercore/value"
)

type analyzer struct {
	schema      planner.Schema
	roles       map[string]Role
	knownParams map[string]bool
	anon        int
}

// Analyze resolves script into a Query. knownParams, if non-nil, is the
// set of parameter names the caller will supply; references to names
// outside it are rejected eagerly. Pass nil to skip that check (e.g. when
// analysing before parameters are known).
func Analyze(script *cyphergrammar.Script, knownParams map[string]bool) (*Query, error) {
	if script == nil || script.Query == nil || script.Query.SingleQuery == nil {
		return &Query{}, nil
	}
	a := &analyzer{
		schema:      planner.EmptySchema,
		roles:       make(map[string]Role),
		knownParams: knownParams,
	}

	clauses := script.Query.SingleQuery.Clauses
	out := make([]Clause, 0, len(clauses))
	for i, c := range clauses {
		last := i == len(clauses)-1
		switch {
		case c.Reading != nil && c.Reading.Match != nil:
			mc, err := a.analyzeMatch(c.Reading.Match)
			if err != nil {
				return nil, err
			}
			out = append(out, mc)
		case c.Reading != nil && c.Reading.Unwind != nil:
			uc, err := a.analyzeUnwind(c.Reading.Unwind)
			if err != nil {
				return nil, err
			}
			out = append(out, uc)
		case c.Updating != nil && c.Updating.Create != nil:
			cc, err := a.analyzeCreate(c.Updating.Create)
			if err != nil {
				return nil, err
			}
			out = append(out, cc)
		case c.With != nil:
			wc, err := a.analyzeProjection(c.With.Body, c.With.Where, false)
			if err != nil {
				return nil, err
			}
			out = append(out, wc)
		case c.Return != nil:
			if !last {
				return nil, cerr.NewSemanticError("RETURN must be the final clause")
			}
			rc, err := a.analyzeProjection(c.Return.Body, nil, true)
			if err != nil {
				return nil, err
			}
			out = append(out, rc)
		default:
			return nil, cerr.NewSemanticError("empty clause")
		}
	}
	return &Query{Clauses: out}, nil
}

// --- MATCH ---

func (a *analyzer) analyzeMatch(m *cyphergrammar.MatchClause) (*MatchClause, error) {
	input := a.schema
	pat, err := a.resolvePattern(m.Pattern)
	if err != nil {
		return nil, err
	}
	var where *Expr
	if m.Where != nil {
		where, err = a.resolveExpr(m.Where.Expr, nil)
		if err != nil {
			return nil, err
		}
		if where.Aggregate {
			return nil, cerr.NewSemanticError("aggregate functions are not allowed in WHERE")
		}
	}
	return &MatchClause{
		Optional:     m.Optional,
		Pattern:      pat,
		Where:        where,
		InputSchema:  input,
		OutputSchema: a.schema,
	}, nil
}

// --- UNWIND ---

func (a *analyzer) analyzeUnwind(u *cyphergrammar.UnwindClause) (*UnwindClause, error) {
	input := a.schema
	expr, err := a.resolveExpr(u.Expr, nil)
	if err != nil {
		return nil, err
	}
	if expr.Aggregate {
		return nil, cerr.NewSemanticError("aggregate functions are not allowed in UNWIND")
	}
	newSchema, slot := a.schema.Append(u.Symbol)
	a.schema = newSchema
	a.roles[u.Symbol] = RoleScalar
	return &UnwindClause{
		Expr:         expr,
		Variable:     u.Symbol,
		Slot:         slot,
		InputSchema:  input,
		OutputSchema: a.schema,
	}, nil
}

// --- CREATE ---

func (a *analyzer) analyzeCreate(c *cyphergrammar.CreateClause) (*CreateClause, error) {
	input := a.schema
	pat, err := a.resolvePattern(c.Pattern)
	if err != nil {
		return nil, err
	}
	return &CreateClause{
		Pattern:      pat,
		InputSchema:  input,
		OutputSchema: a.schema,
	}, nil
}

// --- WITH / RETURN ---

func (a *analyzer) analyzeProjection(body *cyphergrammar.ProjectionBody, where *cyphergrammar.Where, isReturn bool) (*ProjectionClause, error) {
	input := a.schema
	pc := &ProjectionClause{
		IsReturn:    isReturn,
		Distinct:    body.Distinct,
		InputSchema: input,
	}

	if body.Items.Star {
		pc.Star = true
		for _, sym := range input.Symbols {
			if strings.HasPrefix(sym.Name, "$anon") {
				continue
			}
			pc.Items = append(pc.Items, ProjectionItem{
				Expr:  &Expr{Kind: ExprRef, Ref: Ref{Kind: RefRow, Slot: sym.Slot, Name: sym.Name}},
				Alias: sym.Name,
			})
		}
	} else {
		seen := make(map[string]bool, len(body.Items.Items))
		for _, item := range body.Items.Items {
			expr, err := a.resolveExpr(item.Expr, nil)
			if err != nil {
				return nil, err
			}
			alias := item.Alias
			if alias == "" {
				alias = renderExpr(item.Expr)
			}
			if seen[alias] {
				return nil, cerr.NewSemanticError("duplicate projection alias %q", alias)
			}
			seen[alias] = true
			if expr.Aggregate {
				pc.HasAggregate = true
			}
			pc.Items = append(pc.Items, ProjectionItem{Expr: expr, Alias: alias})
		}
	}

	// WITH/RETURN opens a fresh scope: only the projected aliases are
	// visible afterward (spec.md §4.2).
	newSchema := planner.EmptySchema
	newRoles := make(map[string]Role, len(pc.Items))
	for i := range pc.Items {
		var slot int
		newSchema, slot = newSchema.Append(pc.Items[i].Alias)
		pc.Items[i].Slot = slot
		newRoles[pc.Items[i].Alias] = a.roleOfExpr(pc.Items[i].Expr)
	}
	a.schema = newSchema
	a.roles = newRoles

	if where != nil {
		if isReturn {
			return nil, cerr.NewSemanticError("RETURN cannot have a WHERE clause")
		}
		w, err := a.resolveExpr(where.Expr, nil)
		if err != nil {
			return nil, err
		}
		if w.Aggregate {
			return nil, cerr.NewSemanticError("aggregate functions are not allowed in WHERE")
		}
		pc.Where = w
	}

	if body.Order != nil {
		for _, item := range body.Order.Items {
			// An ORDER BY expression spelled exactly like an unaliased
			// projection item sorts on that item's output column.
			if slot, ok := a.schema.IndexOf(renderExpr(item.Expr)); ok {
				ref := &Expr{Kind: ExprRef, Ref: Ref{Kind: RefRow, Slot: slot, Name: renderExpr(item.Expr)}}
				pc.OrderBy = append(pc.OrderBy, OrderItem{Expr: ref, Desc: item.Desc})
				continue
			}
			oe, err := a.resolveExpr(item.Expr, nil)
			if err != nil {
				return nil, err
			}
			pc.OrderBy = append(pc.OrderBy, OrderItem{Expr: oe, Desc: item.Desc})
		}
	}
	if body.Skip != nil {
		se, err := a.resolveExpr(body.Skip.Expr, nil)
		if err != nil {
			return nil, err
		}
		pc.Skip = se
	}
	if body.Limit != nil {
		le, err := a.resolveExpr(body.Limit.Expr, nil)
		if err != nil {
			return nil, err
		}
		pc.Limit = le
	}

	pc.OutputSchema = a.schema
	return pc, nil
}

// roleOfExpr reports the role a projected alias should carry going
// forward, so a later clause can still detect e.g. `WITH r RETURN r.x`
// treating r correctly as a relationship.
func (a *analyzer) roleOfExpr(e *Expr) Role {
	if e.Kind == ExprRef && e.Ref.Kind == RefRow {
		for name, role := range a.roles {
			if name == e.Ref.Name {
				return role
			}
		}
	}
	return RoleScalar
}

// --- Patterns ---

func (a *analyzer) resolvePattern(p *cyphergrammar.Pattern) (*Pattern, error) {
	out := &Pattern{}
	for _, part := range p.Parts {
		pp, err := a.resolvePatternPart(part)
		if err != nil {
			return nil, err
		}
		out.Parts = append(out.Parts, pp)
	}
	return out, nil
}

func (a *analyzer) resolvePatternPart(part *cyphergrammar.PatternPart) (*PatternPart, error) {
	pp := &PatternPart{}
	if part.Var != "" {
		pp.Variable = part.Var
		pp.HasPath = true
	}
	start, chain, err := a.resolvePatternElement(part.Element)
	if err != nil {
		return nil, err
	}
	pp.Start = start
	pp.Chain = chain

	if pp.HasPath {
		if role := a.roles[pp.Variable]; role != RoleUnknown && role != RolePath {
			return nil, cerr.NewSemanticError("variable %q already bound as %s, cannot be used as a path", pp.Variable, roleName(role))
		}
		if slot, ok := a.schema.IndexOf(pp.Variable); ok {
			pp.Ref = Ref{Kind: RefRow, Slot: slot, Name: pp.Variable}
		} else {
			newSchema, slot := a.schema.Append(pp.Variable)
			a.schema = newSchema
			pp.Ref = Ref{Kind: RefRow, Slot: slot, Name: pp.Variable}
		}
		a.roles[pp.Variable] = RolePath
	}
	return pp, nil
}

func (a *analyzer) resolvePatternElement(elem *cyphergrammar.PatternElement) (*NodePattern, []*PatternChainElem, error) {
	if elem.Paren != nil {
		return a.resolvePatternElement(elem.Paren)
	}
	start, err := a.resolveNode(elem.Node)
	if err != nil {
		return nil, nil, err
	}
	var chain []*PatternChainElem
	for _, c := range elem.Chain {
		rel, err := a.resolveRel(c.Rel)
		if err != nil {
			return nil, nil, err
		}
		node, err := a.resolveNode(c.Node)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, &PatternChainElem{Rel: rel, Node: node})
	}
	return start, chain, nil
}

func roleName(r Role) string {
	switch r {
	case RoleNode:
		return "a node"
	case RoleRelationship:
		return "a relationship"
	case RolePath:
		return "a path"
	default:
		return "a scalar"
	}
}

func (a *analyzer) resolveNode(n *cyphergrammar.NodePattern) (*NodePattern, error) {
	name := n.Variable
	anonymous := name == ""
	if anonymous {
		a.anon++
		name = fmt.Sprintf("$anon_node_%d", a.anon)
	}

	np := &NodePattern{Variable: n.Variable}
	if n.Labels != nil {
		np.Labels = n.Labels.Labels
	}

	if !anonymous {
		if role := a.roles[name]; role != RoleUnknown && role != RoleNode {
			return nil, cerr.NewSemanticError("variable %q already bound as %s, cannot be used as a node", name, roleName(role))
		}
	}

	if slot, ok := a.schema.IndexOf(name); ok {
		np.Ref = Ref{Kind: RefRow, Slot: slot, Name: name}
		np.Bound = true
	} else {
		newSchema, slot := a.schema.Append(name)
		a.schema = newSchema
		np.Ref = Ref{Kind: RefRow, Slot: slot, Name: name}
		np.Bound = false
	}
	a.roles[name] = RoleNode

	if err := a.resolveProperties(n.Properties, np); err != nil {
		return nil, err
	}
	return np, nil
}

func (a *analyzer) resolveProperties(props *cyphergrammar.Properties, dst any) error {
	if props == nil {
		return nil
	}
	var constraints *[]PropertyConstraint
	var param **Expr
	switch d := dst.(type) {
	case *NodePattern:
		constraints, param = &d.Properties, &d.ParamProperties
	case *RelPattern:
		constraints, param = &d.Properties, &d.ParamProperties
	}
	if props.Map != nil {
		for _, pair := range props.Map.Pairs {
			v, err := a.resolveExpr(pair.Value, nil)
			if err != nil {
				return err
			}
			*constraints = append(*constraints, PropertyConstraint{Key: pair.Key, Value: v})
		}
	} else if props.Param != nil {
		pe, err := a.resolveParameter(props.Param)
		if err != nil {
			return err
		}
		*param = pe
	}
	return nil
}

func (a *analyzer) resolveRel(r *cyphergrammar.RelationshipPattern) (*RelPattern, error) {
	rp := &RelPattern{}
	switch {
	case r.LeftArrow && !r.RightArrow:
		rp.Direction = graph.In
	case r.RightArrow && !r.LeftArrow:
		rp.Direction = graph.Out
	default:
		rp.Direction = graph.Both
	}

	name := ""
	anonymous := true
	if r.Detail != nil {
		if r.Detail.Variable != "" {
			name = r.Detail.Variable
			anonymous = false
		}
		if r.Detail.Types != nil {
			rp.Types = r.Detail.Types.Types
		}
		if r.Detail.Range != nil {
			rp.VarLength = true
			rp.Min, rp.Max = resolveRange(r.Detail.Range)
		}
	}
	if anonymous {
		a.anon++
		name = fmt.Sprintf("$anon_rel_%d", a.anon)
	}

	if !anonymous {
		if role := a.roles[name]; role != RoleUnknown && role != RoleRelationship {
			return nil, cerr.NewSemanticError("variable %q already bound as %s, cannot be used as a relationship", name, roleName(role))
		}
	}

	if slot, ok := a.schema.IndexOf(name); ok {
		rp.Ref = Ref{Kind: RefRow, Slot: slot, Name: name}
		rp.Bound = true
	} else {
		newSchema, slot := a.schema.Append(name)
		a.schema = newSchema
		rp.Ref = Ref{Kind: RefRow, Slot: slot, Name: name}
		rp.Bound = false
	}
	rp.Variable = strings.TrimPrefix(name, "$anon_rel_")
	if anonymous {
		rp.Variable = ""
	}
	a.roles[name] = RoleRelationship

	if r.Detail != nil {
		if err := a.resolveProperties(r.Detail.Properties, rp); err != nil {
			return nil, err
		}
	}
	return rp, nil
}

func resolveRange(r *cyphergrammar.RangeLiteral) (min, max int) {
	switch {
	case !r.Range && r.Min != nil:
		return *r.Min, *r.Min
	case !r.Range:
		return 1, -1
	default:
		min = 1
		if r.Min != nil {
			min = *r.Min
		}
		max = -1
		if r.Max != nil {
			max = *r.Max
		}
		return min, max
	}
}

func literalValue(lit *cyphergrammar.Literal) value.Value {
	switch {
	case lit.Null:
		return value.Null
	case lit.True:
		return value.Bool(true)
	case lit.False:
		return value.Bool(false)
	case lit.Int != nil:
		return value.Int(*lit.Int)
	case lit.Float != nil:
		return value.Float(*lit.Float)
	case lit.String != nil:
		return value.String(*lit.String)
	default:
		return value.Null
	}
}
