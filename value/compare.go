package value

// Equal implements spec.md §4.5's equality rule: Nodes/Relationships compare
// by id, Paths by element identity, Lists/Maps structurally, and NaN is
// never equal to itself. Equal never returns Null — three-valued "unknown"
// equality (e.g. comparing across incompatible kinds) is the caller's job
// via Compare/the evaluator, since spec.md only specifies three-valued
// semantics for boolean combinators, not for `=` itself outside ordering.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f // NaN != NaN falls out of IEEE-754 comparison
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for _, ea := range a.m {
			found := false
			for _, eb := range b.m {
				if ea.Key == eb.Key {
					found = Equal(ea.Value, eb.Value)
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case KindNode:
		return a.node.ID == b.node.ID
	case KindRelationship:
		return a.rel.ID == b.rel.ID
	case KindPath:
		if len(a.path.Steps) != len(b.path.Steps) {
			return false
		}
		if a.path.Start.ID != b.path.Start.ID {
			return false
		}
		for i := range a.path.Steps {
			if a.path.Steps[i].Rel.ID != b.path.Steps[i].Rel.ID {
				return false
			}
			if a.path.Steps[i].Node.ID != b.path.Steps[i].Node.ID {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// kindOrder assigns a stable ordering tag to non-null kinds for the
// Sort comparator's "mixed non-null types order by kind tag" rule
// (spec.md §4.5).
func kindOrder(k Kind) int {
	switch k {
	case KindBool:
		return 0
	case KindInt, KindFloat:
		return 1
	case KindString:
		return 2
	case KindList:
		return 3
	case KindMap:
		return 4
	case KindNode:
		return 5
	case KindRelationship:
		return 6
	case KindPath:
		return 7
	default:
		return 8
	}
}

// Compare orders two values for `<`/`>` and Sort. It returns ok=false when
// the pair is not orderable (cross-type non-numeric comparison), which the
// expression evaluator turns into Null per spec.md §4.5.
func Compare(a, b Value) (cmp int, ok bool) {
	if af, aok := a.Float64(); aok {
		if bf, bok := b.Float64(); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if a.kind == KindString && b.kind == KindString {
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// SortCompare is the total-order comparator Sort uses: Null sorts greater
// than any non-Null in ascending order (smaller in descending, handled by
// the caller negating), numbers compare numerically, strings by code
// point, and otherwise mixed non-null kinds order by kind tag then
// within-kind (spec.md §4.5).
func SortCompare(a, b Value) int {
	if a.kind == KindNull && b.kind == KindNull {
		return 0
	}
	if a.kind == KindNull {
		return 1
	}
	if b.kind == KindNull {
		return -1
	}
	if cmp, ok := Compare(a, b); ok {
		return cmp
	}
	oa, ob := kindOrder(a.kind), kindOrder(b.kind)
	if oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}
	// Same kind tag but not orderable via Compare (e.g. two Nodes): fall
	// back to a stable identity-ish ordering so Sort is still a total
	// order without panicking.
	if a.kind == KindNode {
		switch {
		case a.node.ID < b.node.ID:
			return -1
		case a.node.ID > b.node.ID:
			return 1
		default:
			return 0
		}
	}
	if a.kind == KindRelationship {
		switch {
		case a.rel.ID < b.rel.ID:
			return -1
		case a.rel.ID > b.rel.ID:
			return 1
		default:
			return 0
		}
	}
	return 0
}

// And implements three-valued AND (spec.md §4.5/§8.4).
func And(a, b Value) Value {
	av, aok := a.AsBool()
	bv, bok := b.AsBool()
	switch {
	case aok && bok:
		return Bool(av && bv)
	case aok && !av: // false AND null = false
		return Bool(false)
	case bok && !bv:
		return Bool(false)
	default:
		return Null
	}
}

// Or implements three-valued OR.
func Or(a, b Value) Value {
	av, aok := a.AsBool()
	bv, bok := b.AsBool()
	switch {
	case aok && bok:
		return Bool(av || bv)
	case aok && av: // true OR null = true
		return Bool(true)
	case bok && bv:
		return Bool(true)
	default:
		return Null
	}
}

// Not implements three-valued NOT: NOT null = null.
func Not(a Value) Value {
	if av, ok := a.AsBool(); ok {
		return Bool(!av)
	}
	return Null
}

// Xor is a convenience extension beyond the strict three-valued table in
// spec.md (which only defines AND/OR/NOT): Cypher's XOR is defined as
// non-null only when both operands are non-null booleans.
func Xor(a, b Value) Value {
	av, aok := a.AsBool()
	bv, bok := b.AsBool()
	if !aok || !bok {
		return Null
	}
	return Bool(av != bv)
}
