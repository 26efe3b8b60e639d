// Package planner lowers a semantically analysed query into a logical
// operator tree (spec.md §4.3). It also owns the plan-time entities
// (Symbol, Schema) that travel with every operator (spec.md §3.3).
//
// Grounded in the small BuildPlan component-walk shape found in
// other_examples' DeusData-codebase-memory-mcp internal/cypher/planner.go
// (ScanNodes -> early filter -> ExpandRelationship chain -> late filter),
// generalised here to the full operator set spec.md §4.3/§4.4 names and
// to the schema bookkeeping a pull-based executor needs.
package planner

import (
	"github.com/jakewins/cyphercore/cerr"
	"github.com/jakewins/cyphercore/graph"
	"github.com/jakewins/cyphercore/semantic"
)

type builder struct{}

// Build lowers a resolved Query into a Plan. Each clause's operator
// subtree becomes the input of the next clause's lowering, per spec.md
// §4.3's "root becomes the input of the next clause" composition rule.
func Build(q *semantic.Query) (*Plan, error) {
	b := &builder{}
	var cur *Op
	for _, clause := range q.Clauses {
		var err error
		switch c := clause.(type) {
		case *semantic.MatchClause:
			cur, err = b.lowerMatch(cur, c)
		case *semantic.UnwindClause:
			cur = b.lowerUnwind(cur, c)
		case *semantic.CreateClause:
			cur = b.lowerCreate(cur, c)
		case *semantic.ProjectionClause:
			cur, err = b.lowerProjection(cur, c)
		default:
			err = cerr.NewSemanticError("unrecognised clause type")
		}
		if err != nil {
			return nil, err
		}
	}

	plan := &Plan{Root: cur}
	if cur != nil {
		plan.OutputSchema = cur.Schema
		plan.ColumnNames = cur.Schema.Names()
	}
	return plan, nil
}

// --- schema helpers ---

func schemaOf(op *Op) Schema {
	if op == nil {
		return EmptySchema
	}
	return op.Schema
}

func childrenOf(op *Op) []*Op {
	if op == nil {
		return nil
	}
	return []*Op{op}
}

// prefixSchema returns the first width symbols of full. Every clause's
// final OutputSchema is already computed by the semantic analyser in
// pattern-walk order (append-only, spec.md §3.3), so an intermediate
// operator's schema partway through lowering a pattern is simply a
// prefix of that final schema, as long as the planner visits pattern
// elements in the same left-to-right order the analyser did (see
// lowerPatternPart).
func prefixSchema(full Schema, width int) Schema {
	return Schema{Symbols: full.Symbols[:width]}
}

func refExpr(ref semantic.Ref) *semantic.Expr {
	return &semantic.Expr{Kind: semantic.ExprRef, Ref: ref, Name: ref.Name}
}

func propExpr(ref semantic.Ref, key string) *semantic.Expr {
	return &semantic.Expr{Kind: semantic.ExprProperty, Base: refExpr(ref), Property: key}
}

func equalExpr(l, r *semantic.Expr) *semantic.Expr {
	return &semantic.Expr{Kind: semantic.ExprCompare, Op: "=", Left: l, Right: r}
}

func andAll(preds []*semantic.Expr) *semantic.Expr {
	result := preds[0]
	for _, p := range preds[1:] {
		result = &semantic.Expr{Kind: semantic.ExprAnd, Left: result, Right: p}
	}
	return result
}

// passthroughItems builds identity ProjectItems for every slot of s, used
// when an operator must widen a row without disturbing existing columns
// (named-path construction, DISTINCT dedupe keys).
func passthroughItems(s Schema) []ProjectItem {
	items := make([]ProjectItem, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		items = append(items, ProjectItem{
			Expr: refExpr(semantic.Ref{Kind: semantic.RefRow, Slot: sym.Slot, Name: sym.Name}),
			Slot: sym.Slot,
		})
	}
	return items
}

// --- MATCH / OPTIONAL MATCH ---

func (b *builder) lowerMatch(current *Op, mc *semantic.MatchClause) (*Op, error) {
	if !mc.Optional {
		relSlots := []int{}
		cur, err := b.lowerPattern(current, mc.Pattern, mc.OutputSchema, &relSlots)
		if err != nil {
			return nil, err
		}
		if mc.Where != nil {
			cur = &Op{Kind: OpFilter, Children: []*Op{cur}, Schema: cur.Schema, Pred: mc.Where}
		}
		return cur, nil
	}

	argSchema := mc.InputSchema
	argOp := &Op{Kind: OpArgument, Schema: argSchema}
	relSlots := []int{}
	inner, err := b.lowerPattern(argOp, mc.Pattern, mc.OutputSchema, &relSlots)
	if err != nil {
		return nil, err
	}
	if mc.Where != nil {
		inner = &Op{Kind: OpFilter, Children: []*Op{inner}, Schema: inner.Schema, Pred: mc.Where}
	}
	return &Op{
		Kind:      OpOptional,
		Children:  []*Op{current, inner},
		Schema:    mc.OutputSchema,
		ArgSchema: argSchema,
	}, nil
}

// lowerPattern lowers every comma-separated part of a pattern in sequence,
// each becoming the input of the next (an implicit cross/nested-loop join
// when parts share no bound variable, a selective join when they do).
func (b *builder) lowerPattern(current *Op, pattern *semantic.Pattern, full Schema, relSlots *[]int) (*Op, error) {
	cur := current
	for _, part := range pattern.Parts {
		var err error
		cur, err = b.lowerPatternPart(cur, part, full, relSlots)
		if err != nil {
			return nil, err
		}
	}
	if cur == nil {
		return nil, cerr.NewSemanticError("empty pattern")
	}
	return cur, nil
}

// lowerPatternPart walks one pattern part left to right — Start, then
// each (rel, node) chain hop in textual order — exactly mirroring the
// semantic analyser's slot-assignment walk (analyze.go's
// resolvePatternPart/resolvePatternElement). Root selection therefore
// always picks the Start node: spec.md §4.3 additionally allows picking
// a more selective interior node as root when Start is unbound and some
// later chain node already is, but honouring that would require walking
// the chain out of textual order, which would desynchronise from the
// analyser's monotonic slot numbering. This planner is rule-based, not
// cost-based, and the only cost of this simplification is scan
// selectivity, never correctness: Bound interior nodes/relationships
// still constrain their Expand via ToBound/RelBound regardless of where
// in the chain they fall.
func (b *builder) lowerPatternPart(current *Op, part *semantic.PatternPart, full Schema, relSlots *[]int) (*Op, error) {
	cur, err := b.emitNodeRoot(current, part.Start, full)
	if err != nil {
		return nil, err
	}
	prevNode := part.Start
	for _, elem := range part.Chain {
		cur, err = b.emitExpand(cur, prevNode, elem.Rel, elem.Node, full, relSlots)
		if err != nil {
			return nil, err
		}
		prevNode = elem.Node
	}
	if part.HasPath {
		cur = b.emitPathBuild(cur, part, full)
	}
	return cur, nil
}

func (b *builder) emitNodeRoot(current *Op, n *semantic.NodePattern, full Schema) (*Op, error) {
	if n.Bound {
		return b.applyNodeConstraints(current, n, false), nil
	}
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	width := schemaOf(current).Width() + 1
	scanOp := &Op{
		Kind:      OpScan,
		Children:  childrenOf(current),
		Schema:    prefixSchema(full, width),
		ScanLabel: label,
		ScanSlot:  n.Ref.Slot,
	}
	return b.applyNodeConstraints(scanOp, n, label != ""), nil
}

// applyNodeConstraints pushes inline label/property equality checks into
// a Filter immediately above op, per spec.md §4.3 ("Inline property
// equalities and label checks push into the originating Scan or Expand
// as Filter immediately above"). skipFirstLabel is set when the first
// label was already consumed choosing a NodeByLabel scan.
func (b *builder) applyNodeConstraints(op *Op, n *semantic.NodePattern, skipFirstLabel bool) *Op {
	var preds []*semantic.Expr
	labels := n.Labels
	if skipFirstLabel && len(labels) > 0 {
		labels = labels[1:]
	}
	for _, l := range labels {
		preds = append(preds, &semantic.Expr{Kind: semantic.ExprHasLabel, Base: refExpr(n.Ref), Labels: []string{l}})
	}
	for _, pc := range n.Properties {
		preds = append(preds, equalExpr(propExpr(n.Ref, pc.Key), pc.Value))
	}
	if len(preds) == 0 {
		return op
	}
	return &Op{Kind: OpFilter, Children: []*Op{op}, Schema: op.Schema, Pred: andAll(preds)}
}

func (b *builder) emitExpand(current *Op, from *semantic.NodePattern, rel *semantic.RelPattern, to *semantic.NodePattern, full Schema, relSlots *[]int) (*Op, error) {
	kind := OpExpand
	if rel.VarLength {
		kind = OpExpandVarLen
	}
	width := schemaOf(current).Width()
	if !rel.Bound {
		width++
	}
	if !to.Bound {
		width++
	}
	op := &Op{
		Kind:            kind,
		Children:        []*Op{current},
		Schema:          prefixSchema(full, width),
		FromSlot:        from.Ref.Slot,
		ToSlot:          to.Ref.Slot,
		ToBound:         to.Bound,
		RelSlot:         rel.Ref.Slot,
		RelBound:        rel.Bound,
		Direction:       rel.Direction,
		RelTypes:        rel.Types,
		UniquenessSlots: append([]int(nil), (*relSlots)...),
	}
	if kind == OpExpandVarLen {
		op.Min, op.Max, op.PathSlot = rel.Min, rel.Max, -1
	}
	if !rel.Bound {
		*relSlots = append(*relSlots, rel.Ref.Slot)
	}

	result := b.applyNodeConstraints(op, to, false)
	if len(rel.Properties) > 0 {
		preds := make([]*semantic.Expr, 0, len(rel.Properties))
		for _, pc := range rel.Properties {
			preds = append(preds, equalExpr(propExpr(rel.Ref, pc.Key), pc.Value))
		}
		result = &Op{Kind: OpFilter, Children: []*Op{result}, Schema: result.Schema, Pred: andAll(preds)}
	}
	return result, nil
}

func (b *builder) emitPathBuild(cur *Op, part *semantic.PatternPart, full Schema) *Op {
	elems := []*semantic.Expr{refExpr(part.Start.Ref)}
	for _, c := range part.Chain {
		elems = append(elems, refExpr(c.Rel.Ref), refExpr(c.Node.Ref))
	}
	sch := prefixSchema(full, schemaOf(cur).Width()+1)
	items := passthroughItems(cur.Schema)
	items = append(items, ProjectItem{
		Expr: &semantic.Expr{Kind: semantic.ExprPathBuild, Items: elems},
		Slot: part.Ref.Slot,
	})
	return &Op{Kind: OpProject, Children: []*Op{cur}, Schema: sch, Items: items}
}

// --- UNWIND ---

func (b *builder) lowerUnwind(current *Op, uc *semantic.UnwindClause) *Op {
	return &Op{
		Kind:       OpUnwind,
		Children:   childrenOf(current),
		Schema:     uc.OutputSchema,
		UnwindExpr: uc.Expr,
		UnwindSlot: uc.Slot,
	}
}

// --- CREATE ---

func (b *builder) lowerCreate(current *Op, cc *semantic.CreateClause) *Op {
	var writes []PatternWrite
	for _, part := range cc.Pattern.Parts {
		nodes := append([]*semantic.NodePattern{part.Start}, chainNodes(part)...)
		for _, n := range nodes {
			writes = append(writes, nodeWrite(n))
		}
		prev := part.Start
		for _, c := range part.Chain {
			writes = append(writes, relWrite(c.Rel, prev, c.Node))
			prev = c.Node
		}
	}
	return &Op{
		Kind:     OpCreateGraph,
		Children: childrenOf(current),
		Schema:   cc.OutputSchema,
		Writes:   writes,
	}
}

func chainNodes(part *semantic.PatternPart) []*semantic.NodePattern {
	nodes := make([]*semantic.NodePattern, 0, len(part.Chain))
	for _, c := range part.Chain {
		nodes = append(nodes, c.Node)
	}
	return nodes
}

func constProps(props []semantic.PropertyConstraint, param *semantic.Expr) []PropWrite {
	out := make([]PropWrite, 0, len(props)+1)
	for _, p := range props {
		out = append(out, PropWrite{Key: p.Key, Value: p.Value})
	}
	if param != nil {
		// Key=="" is the convention exec.CreateGraph uses to merge an
		// entire $param map's entries as properties (RelPattern/NodePattern
		// ParamProperties), rather than a single key/value pair.
		out = append(out, PropWrite{Key: "", Value: param})
	}
	return out
}

func nodeWrite(n *semantic.NodePattern) PatternWrite {
	return PatternWrite{
		IsNode:     true,
		Slot:       n.Ref.Slot,
		Bound:      n.Bound,
		Labels:     n.Labels,
		Properties: constProps(n.Properties, n.ParamProperties),
	}
}

func relWrite(r *semantic.RelPattern, from, to *semantic.NodePattern) PatternWrite {
	typ := ""
	if len(r.Types) > 0 {
		typ = r.Types[0]
	}
	start, end := from.Ref.Slot, to.Ref.Slot
	if r.Direction == graph.In {
		start, end = end, start
	}
	return PatternWrite{
		IsNode:     false,
		Slot:       r.Ref.Slot,
		Bound:      r.Bound,
		Type:       typ,
		StartSlot:  start,
		EndSlot:    end,
		Properties: constProps(r.Properties, r.ParamProperties),
	}
}

// --- WITH / RETURN ---

func (b *builder) lowerProjection(current *Op, pc *semantic.ProjectionClause) (*Op, error) {
	var cur *Op
	switch {
	case pc.HasAggregate:
		var groupItems []ProjectItem
		var aggs []AggSpec
		for _, item := range pc.Items {
			switch {
			case item.Expr.Kind == semantic.ExprCountAll:
				aggs = append(aggs, AggSpec{Func: "count", Slot: item.Slot})
			case item.Expr.Aggregate:
				if item.Expr.Kind != semantic.ExprFunctionCall {
					return nil, cerr.NewSemanticError("aggregate functions cannot be combined with scalar operators in one projection expression")
				}
				var arg *semantic.Expr
				if len(item.Expr.Items) > 0 {
					arg = item.Expr.Items[0]
				}
				aggs = append(aggs, AggSpec{Func: item.Expr.Name, Arg: arg, Distinct: item.Expr.Distinct, Slot: item.Slot})
			default:
				groupItems = append(groupItems, ProjectItem{Expr: item.Expr, Slot: item.Slot})
			}
		}
		cur = &Op{Kind: OpAggregate, Children: childrenOf(current), Schema: pc.OutputSchema, Items: groupItems, Aggs: aggs}

	case pc.Distinct:
		items := make([]ProjectItem, 0, len(pc.Items))
		for _, it := range pc.Items {
			items = append(items, ProjectItem{Expr: it.Expr, Slot: it.Slot})
		}
		proj := &Op{Kind: OpProject, Children: childrenOf(current), Schema: pc.OutputSchema, Items: items}
		// DISTINCT lowers to Aggregate with no aggregation functions
		// (spec.md §4.3), deduping on every projected slot.
		cur = &Op{Kind: OpAggregate, Children: []*Op{proj}, Schema: pc.OutputSchema, Items: passthroughItems(pc.OutputSchema)}

	default:
		items := make([]ProjectItem, 0, len(pc.Items))
		for _, it := range pc.Items {
			items = append(items, ProjectItem{Expr: it.Expr, Slot: it.Slot})
		}
		cur = &Op{Kind: OpProject, Children: childrenOf(current), Schema: pc.OutputSchema, Items: items}
	}

	if pc.Where != nil {
		cur = &Op{Kind: OpFilter, Children: []*Op{cur}, Schema: cur.Schema, Pred: pc.Where}
	}
	if len(pc.OrderBy) > 0 {
		keys := make([]SortKey, 0, len(pc.OrderBy))
		for _, o := range pc.OrderBy {
			keys = append(keys, SortKey{Expr: o.Expr, Desc: o.Desc})
		}
		cur = &Op{Kind: OpSort, Children: []*Op{cur}, Schema: cur.Schema, SortKeys: keys}
	}
	if pc.Skip != nil {
		cur = &Op{Kind: OpSkip, Children: []*Op{cur}, Schema: cur.Schema, CountExpr: pc.Skip}
	}
	if pc.Limit != nil {
		cur = &Op{Kind: OpLimit, Children: []*Op{cur}, Schema: cur.Schema, CountExpr: pc.Limit}
	}
	return cur, nil
}
