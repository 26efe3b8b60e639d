package cyphergrammar_test

import (
	"testing"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jakewins/cyphercore/cyphergrammar"
)

// TestFormat_RoundTrip exercises spec.md §8's parser round-trip property:
// pretty-printing the AST and re-parsing yields a structurally equal AST.
// lexer.Position is ignored since it records source offsets the
// reformatted text legitimately changes.
func TestFormat_RoundTrip(t *testing.T) {
	queries := []string{
		"RETURN 42",
		"RETURN 3.14",
		"RETURN -7",
		`RETURN "hello world"`,
		`RETURN 'it\'s a test'`,
		`RETURN "a\nb\tc\"d"`,
		"RETURN true, false, null",
		"RETURN [1, 2, 3]",
		`RETURN {name: "Alice", age: 30}`,
		"MATCH (n) RETURN n",
		"MATCH (u:User) RETURN u.name",
		`MATCH (u:User {name: "Alice"}) RETURN u`,
		"MATCH (u:User {id: $userId}) RETURN u",
		"MATCH (a)-[:KNOWS]->(b) RETURN a, b",
		"MATCH (a)-[r:KNOWS|LIKES]->(b) RETURN r",
		"MATCH (a)-[:KNOWS*1..3]->(b) RETURN b",
		"MATCH (a)-[:KNOWS*]->(b) RETURN b",
		"OPTIONAL MATCH (u:User) RETURN u",
		"MATCH (n) OPTIONAL MATCH (n)-[r]-(m) WHERE m.num = 42 RETURN m",
		"UNWIND [1, 2, 3] AS x RETURN x",
		"MATCH (u:User) WITH u.name AS name RETURN name",
		"MATCH (u:User) RETURN DISTINCT u.name",
		"MATCH (u:User) RETURN u.name ORDER BY u.name DESC SKIP 10 LIMIT 5",
		"CREATE (n:Person {name: 'Alice'})",
		"RETURN 1 + 2 * 3 - 4 / 2",
		"RETURN 1 < 2 AND 3 > 2 OR NOT false",
		"MATCH (u:User) WHERE u.email IS NOT NULL RETURN u",
		"RETURN 1 IN [1, 2, 3]",
		`RETURN "hello" STARTS WITH "he"`,
		"MATCH (u:User) RETURN count(*)",
		"MATCH (u:User) RETURN count(DISTINCT u.name)",
		"RETURN [x IN [1, 2, 3] WHERE x > 1 | x * 2]",
		"RETURN CASE WHEN 1 > 0 THEN 'positive' ELSE 'non-positive' END",
		`RETURN apoc.text.join(["a", "b"], ",")`,
	}

	ignorePos := cmpopts.IgnoreTypes(lexer.Position{})

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			original, err := cyphergrammar.Parse(q)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", q, err)
			}

			formatted := cyphergrammar.Format(original)

			reparsed, err := cyphergrammar.Parse(formatted)
			if err != nil {
				t.Fatalf("Parse(Format(%q)) = %q, error: %v", q, formatted, err)
			}

			if diff := cmp.Diff(original, reparsed, ignorePos); diff != "" {
				t.Errorf("round trip changed AST for %q (formatted as %q):\n%s", q, formatted, diff)
			}
		})
	}
}
