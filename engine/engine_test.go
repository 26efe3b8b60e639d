package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakewins/cyphercore/engine"
	"github.com/jakewins/cyphercore/graph/memory"
	"github.com/jakewins/cyphercore/value"
)

// seedOptionalGraph builds: (alice)-[:KNOWS]->(bob), (alice)-[:KNOWS]->(carol),
// plus a lone node (dave) with no relationships at all, so OPTIONAL MATCH has
// both a matching and a non-matching outer row to exercise.
func seedOptionalGraph(t *testing.T) *memory.Backend {
	t.Helper()
	ctx := context.Background()
	b := memory.New()

	alice, err := b.CreateNode(ctx, []string{"Person"}, map[string]any{"name": "Alice"})
	require.NoError(t, err)
	bob, err := b.CreateNode(ctx, []string{"Person"}, map[string]any{"name": "Bob"})
	require.NoError(t, err)
	carol, err := b.CreateNode(ctx, []string{"Person"}, map[string]any{"name": "Carol"})
	require.NoError(t, err)
	_, err = b.CreateNode(ctx, []string{"Person"}, map[string]any{"name": "Dave"})
	require.NoError(t, err)

	_, err = b.CreateRel(ctx, alice, bob, "KNOWS", nil)
	require.NoError(t, err)
	_, err = b.CreateRel(ctx, alice, carol, "KNOWS", nil)
	require.NoError(t, err)

	return b
}

func drainNames(t *testing.T, stream *engine.Stream) []value.Value {
	t.Helper()
	var out []value.Value
	for {
		row, err := stream.Next()
		if engine.IsDone(err) {
			break
		}
		require.NoError(t, err)
		require.Len(t, row, 1)
		out = append(out, row[0])
	}
	require.NoError(t, stream.Close())
	return out
}

func names(vs []value.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		if v.IsNull() {
			out[i] = "<null>"
			continue
		}
		s, _ := v.AsString()
		out[i] = s
	}
	return out
}

// TestOptionalMatch_FansOutOverMatches is spec.md §8's first literal
// OPTIONAL MATCH scenario: a row whose optional pattern has multiple
// matches fans out to one row per match.
func TestOptionalMatch_FansOutOverMatches(t *testing.T) {
	ctx := context.Background()
	b := seedOptionalGraph(t)
	eng := engine.New(b)

	stream, err := eng.Query(ctx, `
		MATCH (a:Person {name: "Alice"})
		OPTIONAL MATCH (a)-[:KNOWS]->(friend)
		RETURN friend.name
	`, nil)
	require.NoError(t, err)

	got := names(drainNames(t, stream))
	assert.ElementsMatch(t, []string{"Bob", "Carol"}, got)
}

// TestOptionalMatch_NoMatchYieldsOneNullRow is spec.md §8's second literal
// scenario: an outer row with zero optional matches still yields exactly
// one row, with the optional pattern's variables bound to Null.
func TestOptionalMatch_NoMatchYieldsOneNullRow(t *testing.T) {
	ctx := context.Background()
	b := seedOptionalGraph(t)
	eng := engine.New(b)

	stream, err := eng.Query(ctx, `
		MATCH (a:Person {name: "Dave"})
		OPTIONAL MATCH (a)-[:KNOWS]->(friend)
		RETURN friend.name
	`, nil)
	require.NoError(t, err)

	got := drainNames(t, stream)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsNull())
}

// TestOptionalMatch_PreservesOuterRowCount checks the max(1, |inner|) rule
// holds across multiple outer rows simultaneously: every Person is an outer
// row regardless of whether their OPTIONAL MATCH finds anything.
func TestOptionalMatch_PreservesOuterRowCount(t *testing.T) {
	ctx := context.Background()
	b := seedOptionalGraph(t)
	eng := engine.New(b)

	stream, err := eng.Query(ctx, `
		MATCH (a:Person)
		OPTIONAL MATCH (a)-[:KNOWS]->(friend)
		RETURN a.name, friend.name
	`, nil)
	require.NoError(t, err)

	var rows [][2]value.Value
	for {
		row, err := stream.Next()
		if engine.IsDone(err) {
			break
		}
		require.NoError(t, err)
		rows = append(rows, [2]value.Value{row[0], row[1]})
	}
	require.NoError(t, stream.Close())

	// Alice contributes two rows (Bob, Carol); Bob, Carol and Dave each
	// contribute exactly one row with friend.name = null, since none of them
	// have an outgoing KNOWS.
	assert.Len(t, rows, 5)

	counts := map[string]int{}
	for _, r := range rows {
		n, _ := r[0].AsString()
		counts[n]++
	}
	assert.Equal(t, 2, counts["Alice"])
	assert.Equal(t, 1, counts["Bob"])
	assert.Equal(t, 1, counts["Carol"])
	assert.Equal(t, 1, counts["Dave"])
}

// TestDistinct_DropsDuplicateRows exercises spec.md §8's DISTINCT
// idempotence property over a query where several rows genuinely collide.
func TestDistinct_DropsDuplicateRows(t *testing.T) {
	ctx := context.Background()
	b := seedOptionalGraph(t)
	eng := engine.New(b)

	stream, err := eng.Query(ctx, `
		MATCH (a:Person)-[:KNOWS]->(friend)
		RETURN DISTINCT a.name
	`, nil)
	require.NoError(t, err)

	got := names(drainNames(t, stream))
	assert.Equal(t, []string{"Alice"}, got)
}

// TestSkipLimit_Commute checks SKIP/LIMIT applied over a stable ORDER BY
// produce the expected page regardless of how many rows precede it.
func TestSkipLimit_Commute(t *testing.T) {
	ctx := context.Background()
	b := seedOptionalGraph(t)
	eng := engine.New(b)

	stream, err := eng.Query(ctx, `
		MATCH (a:Person)
		RETURN a.name
		ORDER BY a.name
		SKIP 1 LIMIT 2
	`, nil)
	require.NoError(t, err)

	got := names(drainNames(t, stream))
	assert.Equal(t, []string{"Bob", "Carol"}, got)
}

// TestRelationshipUniqueness_DoesNotReuseSameRelInOnePath guards spec.md
// §4.3's relationship-uniqueness rule: a pattern that could otherwise walk
// out and back over the very same edge must not do so within one match.
func TestRelationshipUniqueness_DoesNotReuseSameRelInOnePath(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	a, err := b.CreateNode(ctx, []string{"Person"}, map[string]any{"name": "A"})
	require.NoError(t, err)
	bb, err := b.CreateNode(ctx, []string{"Person"}, map[string]any{"name": "B"})
	require.NoError(t, err)
	_, err = b.CreateRel(ctx, a, bb, "KNOWS", nil)
	require.NoError(t, err)

	eng := engine.New(b)
	stream, err := eng.Query(ctx, `
		MATCH (x:Person {name: "A"})-[r1:KNOWS]-(y)-[r2:KNOWS]-(x)
		RETURN y.name
	`, nil)
	require.NoError(t, err)

	got := drainNames(t, stream)
	assert.Empty(t, got, "the only KNOWS edge between A and B cannot satisfy both r1 and r2 in one match")
}

// TestParameters_BindIntoQuery confirms declared $name references resolve
// from the params map passed to Query (spec.md §6.2/SPEC_FULL.md §10).
func TestParameters_BindIntoQuery(t *testing.T) {
	ctx := context.Background()
	b := seedOptionalGraph(t)
	eng := engine.New(b)

	stream, err := eng.Query(ctx, `
		MATCH (a:Person {name: $name})
		RETURN a.name
	`, map[string]value.Value{"name": value.String("Bob")})
	require.NoError(t, err)

	got := names(drainNames(t, stream))
	assert.Equal(t, []string{"Bob"}, got)
}

// TestUnwind_FlattensListIntoRows covers UNWIND's row-per-element fan-out.
func TestUnwind_FlattensListIntoRows(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	eng := engine.New(b)

	stream, err := eng.Query(ctx, "UNWIND [1, 2, 3] AS x RETURN x", nil)
	require.NoError(t, err)

	var got []int64
	for {
		row, err := stream.Next()
		if engine.IsDone(err) {
			break
		}
		require.NoError(t, err)
		i, ok := row[0].AsInt()
		require.True(t, ok)
		got = append(got, i)
	}
	require.NoError(t, stream.Close())
	assert.Equal(t, []int64{1, 2, 3}, got)
}

// TestCreate_WritesPersistAcrossQueries checks a CREATE clause's nodes are
// visible to a subsequent query against the same backend.
func TestCreate_WritesPersistAcrossQueries(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	eng := engine.New(b)

	stream, err := eng.Query(ctx, `CREATE (n:Person {name: "Eve"})`, nil)
	require.NoError(t, err)
	_, err = stream.Next()
	assert.True(t, engine.IsDone(err))
	require.NoError(t, stream.Close())

	verify, err := eng.Query(ctx, `MATCH (n:Person {name: "Eve"}) RETURN n.name`, nil)
	require.NoError(t, err)
	got := names(drainNames(t, verify))
	assert.Equal(t, []string{"Eve"}, got)
}
