// Package planner lowers a semantically analysed query into a logical
// operator tree (spec.md §4.3). It also owns the plan-time entities
// (Symbol, Schema) that travel with every operator (spec.md §3.3).
package planner

// Symbol is a name introduced by a pattern, UNWIND, WITH alias, or RETURN
// alias, bound to a slot index within a row schema.
type Symbol struct {
	Name string
	Slot int
}

// Schema is the ordered list of symbols an operator exposes in its output
// row. Rows are arrays, not maps; Schema is how a slot index is recovered
// from a name at plan time.
type Schema struct {
	Symbols []Symbol
}

// Width is the number of slots a row conforming to this schema has.
func (s Schema) Width() int { return len(s.Symbols) }

// IndexOf returns the slot bound to name, if any.
func (s Schema) IndexOf(name string) (int, bool) {
	for _, sym := range s.Symbols {
		if sym.Name == name {
			return sym.Slot, true
		}
	}
	return 0, false
}

// Names returns the symbol names in slot order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Symbols))
	for _, sym := range s.Symbols {
		names[sym.Slot] = sym.Name
	}
	return names
}

// Append returns a new schema with name bound to the next free slot,
// alongside that slot's index. Schema values are never mutated in place —
// every clause produces a new schema layered on its input, mirroring the
// non-mutating scope-chaining the analyser uses.
func (s Schema) Append(name string) (Schema, int) {
	slot := len(s.Symbols)
	next := make([]Symbol, len(s.Symbols), len(s.Symbols)+1)
	copy(next, s.Symbols)
	next = append(next, Symbol{Name: name, Slot: slot})
	return Schema{Symbols: next}, slot
}

// EmptySchema is the zero-width schema a query starts from.
var EmptySchema = Schema{}
