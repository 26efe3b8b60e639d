package semantic

import "strings"

// aggregateFunctions is the minimum aggregate set spec.md §4.5 requires,
// trimmed from the percentile/stddev entries the teacher's analyzer.go
// recognises (those belong to a statistics extension this engine doesn't
// carry).
var aggregateFunctions = map[string]bool{
	"count":   true,
	"sum":     true,
	"avg":     true,
	"min":     true,
	"max":     true,
	"collect": true,
}

// scalarFunctions is the builtin scalar dispatch table eval implements.
// Names and scope are this implementation's own choice (spec.md does not
// enumerate scalar functions beyond "dispatched by case-insensitive
// name"); kept deliberately small rather than chasing full Cypher
// builtin parity.
var scalarFunctions = map[string]bool{
	"toupper":  true,
	"tolower":  true,
	"tostring": true,
	"tointeger": true,
	"tofloat":  true,
	"size":     true,
	"abs":      true,
	"coalesce": true,
	"type":     true,
	"labels":   true,
	"keys":     true,
	"id":       true,
	"startnode": true,
	"endnode":   true,
	"range":    true,
	"head":     true,
	"last":     true,
	"reverse":  true,
	"sqrt":     true,
	"sign":     true,
	"floor":    true,
	"ceil":     true,
	"round":    true,
	"substring": true,
	"replace":  true,
	"split":    true,
	"trim":     true,
}

// IsAggregateFunction reports whether name (case-insensitive) is one of
// the recognised aggregate functions.
func IsAggregateFunction(name string) bool {
	return aggregateFunctions[strings.ToLower(name)]
}

// IsKnownFunction reports whether name is any recognised function,
// aggregate or scalar. An unrecognised name is a compile-time
// SemanticError per spec.md §4.5.
func IsKnownFunction(name string) bool {
	lower := strings.ToLower(name)
	return aggregateFunctions[lower] || scalarFunctions[lower]
}
