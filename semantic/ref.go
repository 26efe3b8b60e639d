package semantic

// RefKind distinguishes the two places a resolved identifier can live:
// a slot of the current row schema, or a comprehension-local variable
// that never reaches a row at all.
type RefKind int

const (
	RefRow RefKind = iota
	RefLocal
)

// Ref is the outcome of resolving an identifier: spec.md §4.2 calls this
// pair "(scope-depth, slot-index)". For RefRow, Slot is the row slot.
// For RefLocal, Depth counts comprehension scopes outward from the
// innermost one (0 = the nearest enclosing `[x IN ... | ...]`), since
// list comprehensions may nest and shadow.
type Ref struct {
	Kind  RefKind
	Slot  int
	Depth int
	Name  string
}
