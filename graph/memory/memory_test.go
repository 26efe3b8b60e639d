package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakewins/cyphercore/graph"
	"github.com/jakewins/cyphercore/graph/memory"
)

func drainNodes(t *testing.T, s graph.NodeIDStream) []int64 {
	t.Helper()
	var ids []int64
	for {
		id, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, id)
	}
	require.NoError(t, s.Close())
	return ids
}

func TestBackend_CreateAndFetchNode(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	id, err := b.CreateNode(ctx, []string{"Person"}, map[string]any{"name": "Ada"})
	require.NoError(t, err)

	n, err := b.Node(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Person"}, n.Labels)
	assert.Equal(t, "Ada", n.Properties["name"])
}

func TestBackend_NodesByLabel(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	alice, err := b.CreateNode(ctx, []string{"Person"}, nil)
	require.NoError(t, err)
	_, err = b.CreateNode(ctx, []string{"Company"}, nil)
	require.NoError(t, err)

	stream, err := b.NodesByLabel(ctx, "Person")
	require.NoError(t, err)
	assert.Equal(t, []int64{alice}, drainNodes(t, stream))

	stream, err = b.NodesByLabel(ctx, "NoSuchLabel")
	require.NoError(t, err)
	assert.Empty(t, drainNodes(t, stream))
}

func TestBackend_RelsOf_DirectionAndType(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	a, err := b.CreateNode(ctx, []string{"Person"}, nil)
	require.NoError(t, err)
	bee, err := b.CreateNode(ctx, []string{"Person"}, nil)
	require.NoError(t, err)

	knows, err := b.CreateRel(ctx, a, bee, "KNOWS", nil)
	require.NoError(t, err)
	likes, err := b.CreateRel(ctx, a, bee, "LIKES", nil)
	require.NoError(t, err)

	out, err := b.RelsOf(ctx, a, graph.Out, "")
	require.NoError(t, err)
	var outIDs []int64
	for {
		id, ok, err := out.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		outIDs = append(outIDs, id)
	}
	assert.ElementsMatch(t, []int64{knows, likes}, outIDs)

	in, err := b.RelsOf(ctx, bee, graph.In, "KNOWS")
	require.NoError(t, err)
	id, ok, err := in.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, knows, id)
	_, ok, err = in.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	// a has no incoming relationships.
	none, err := b.RelsOf(ctx, a, graph.In, "")
	require.NoError(t, err)
	_, ok, err = none.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_RelsOf_SelfLoopNotDoubleCountedUnderBoth(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	a, err := b.CreateNode(ctx, nil, nil)
	require.NoError(t, err)
	loop, err := b.CreateRel(ctx, a, a, "SELF", nil)
	require.NoError(t, err)

	both, err := b.RelsOf(ctx, a, graph.Both, "")
	require.NoError(t, err)
	ids := []int64{}
	for {
		id, ok, err := both.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{loop}, ids)
}

func TestBackend_CreateRel_UnknownEndpoint(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	a, err := b.CreateNode(ctx, nil, nil)
	require.NoError(t, err)

	_, err = b.CreateRel(ctx, a, 999, "KNOWS", nil)
	assert.Error(t, err)
}

func TestBackend_PropertiesAreCopiedNotAliased(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	props := map[string]any{"name": "Ada"}
	id, err := b.CreateNode(ctx, nil, props)
	require.NoError(t, err)

	props["name"] = "mutated"

	n, err := b.Node(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", n.Properties["name"])
}

func TestBackend_BeginCommitRollback(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	require.NoError(t, b.Begin(ctx))
	require.Error(t, b.Begin(ctx)) // no nested transactions
	require.NoError(t, b.Commit(ctx))
	require.NoError(t, b.Begin(ctx))
	require.NoError(t, b.Rollback(ctx))
}
