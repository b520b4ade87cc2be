package memory

import (
	"context"
	"testing"

	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(model, source string, page int, text string, vector []float32) *index.Point {
	return &index.Point{
		Chunk: &core.DocumentChunk{
			Id:     core.ChunkID(model, source, page),
			Text:   text,
			Model:  model,
			Source: source,
			Page:   page,
		},
		Vector: vector,
	}
}

func TestUpsertIsIdempotentPerChunkIdentity(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	p := point("X-T30", "manual.pdf", 1, "ISO settings", []float32{1, 0, 0})
	require.NoError(t, g.Upsert(ctx, []*index.Point{p}))
	require.NoError(t, g.Upsert(ctx, []*index.Point{p}))

	assert.Equal(t, 1, g.Len())
}

func TestUpsertRejectsInvalidChunk(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	err := g.Upsert(ctx, []*index.Point{
		point("EOS-R5", "manual.pdf", 1, "unsupported model", []float32{1}),
	})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	err = g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 1, "", []float32{1}),
	})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	assert.Zero(t, g.Len())
}

func TestUpsertRejectsRaggedVectorDimensions(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	err := g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 1, "a", []float32{1, 0}),
		point("X-T30", "manual.pdf", 2, "b", []float32{1}),
	})
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)

	// Nothing from the bad batch was stored
	assert.Zero(t, g.Len())
}

func TestQueryRejectsMismatchedVectorDimension(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	require.NoError(t, g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 1, "ISO settings", []float32{1, 0, 0}),
	}))

	_, err := g.Query(ctx, []float32{1}, index.Filter{Model: "X-T30"}, 1)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestQueryFiltersByModel(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	require.NoError(t, g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 1, "ISO on the X-T30", []float32{1, 0, 0}),
		point("Z5II", "manual.pdf", 1, "ISO on the Z5II", []float32{1, 0, 0}),
	}))

	matches, err := g.Query(ctx, []float32{1, 0, 0}, index.Filter{Model: "Z5II"}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Z5II", matches[0].Chunk.Model)
}

func TestQueryRanksBySimilarity(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	require.NoError(t, g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 1, "close", []float32{0.9, 0.1, 0}),
		point("X-T30", "manual.pdf", 2, "closer", []float32{1, 0, 0}),
		point("X-T30", "manual.pdf", 3, "far", []float32{0, 0, 1}),
	}))

	matches, err := g.Query(ctx, []float32{1, 0, 0}, index.Filter{Model: "X-T30"}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 2, matches[0].Chunk.Page)
	assert.Equal(t, 1, matches[1].Chunk.Page)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestQueryBreaksScoreTiesByAscendingPage(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	require.NoError(t, g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 7, "same", []float32{1, 0, 0}),
		point("X-T30", "manual.pdf", 2, "same", []float32{1, 0, 0}),
	}))

	matches, err := g.Query(ctx, []float32{1, 0, 0}, index.Filter{Model: "X-T30"}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 2, matches[0].Chunk.Page)
	assert.Equal(t, 7, matches[1].Chunk.Page)
}

func TestExistsAndCount(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	exists, err := g.Exists(ctx, index.Filter{Model: "X-T30", Source: "manual.pdf"})
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 1, "a", []float32{1}),
		point("X-T30", "manual.pdf", 2, "b", []float32{1}),
		point("X-T30", "other.pdf", 1, "c", []float32{1}),
	}))

	exists, err = g.Exists(ctx, index.Filter{Model: "X-T30", Source: "manual.pdf"})
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := g.Count(ctx, index.Filter{Model: "X-T30", Source: "manual.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = g.Count(ctx, index.Filter{Model: "X-T30"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestScrollVisitsAllChunksInOrder(t *testing.T) {
	g := NewGateway()
	defer g.Close()
	ctx := context.Background()

	require.NoError(t, g.Upsert(ctx, []*index.Point{
		point("X-T30", "manual.pdf", 2, "b", []float32{1}),
		point("X-T30", "manual.pdf", 1, "a", []float32{1}),
		point("X-T30", "manual.pdf", 3, "c", []float32{1}),
	}))

	var pages []int
	var batches int
	err := g.Scroll(ctx, index.Filter{Model: "X-T30"}, 2, func(chunks []*core.DocumentChunk) error {
		batches++
		for _, chunk := range chunks {
			pages = append(pages, chunk.Page)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, 2, batches)
}

func TestClosedGatewayRejectsOperations(t *testing.T) {
	g := NewGateway()
	require.NoError(t, g.Close())
	ctx := context.Background()

	err := g.Upsert(ctx, nil)
	assert.ErrorIs(t, err, index.ErrGatewayClosed)

	_, err = g.Query(ctx, []float32{1}, index.Filter{}, 1)
	assert.ErrorIs(t, err, index.ErrGatewayClosed)

	_, err = g.Exists(ctx, index.Filter{})
	assert.ErrorIs(t, err, index.ErrGatewayClosed)
}
