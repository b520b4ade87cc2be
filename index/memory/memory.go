package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
)

// Gateway is an in-process index.Gateway backed by a map.
// Ranking uses the dot product, which equals cosine similarity for
// normalized vectors. Intended for tests and single-process deployments
// without a vector database.
type Gateway struct {
	mu     sync.RWMutex
	points map[core.ID]*index.Point
	closed bool
}

var _ index.Gateway = (*Gateway)(nil)

// NewGateway creates an empty in-memory gateway.
//
// Returns the concrete type so tests can reach helpers like Len.
func NewGateway() *Gateway {
	return &Gateway{
		points: make(map[core.ID]*index.Point),
	}
}

// Upsert stores points, overwriting any existing point with the same chunk ID.
// The whole batch is validated before anything is stored, so a bad point
// leaves the index unchanged.
func (g *Gateway) Upsert(ctx context.Context, points []*index.Point) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return index.ErrGatewayClosed
	}

	for _, point := range points {
		if err := core.ValidateChunk(point.Chunk); err != nil {
			return err
		}
		if len(point.Vector) != len(points[0].Vector) {
			return fmt.Errorf("%w: batch has vectors of length %d and %d",
				index.ErrDimensionMismatch, len(points[0].Vector), len(point.Vector))
		}
	}

	for _, point := range points {
		chunk := *point.Chunk
		vector := slices.Clone(point.Vector)
		g.points[chunk.Id] = &index.Point{Chunk: &chunk, Vector: vector}
	}
	return nil
}

// Query returns up to k chunks matching filter, ranked by dot-product similarity.
func (g *Gateway) Query(ctx context.Context, vector []float32, filter index.Filter, k int) ([]*index.Match, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return nil, index.ErrGatewayClosed
	}

	var matches []*index.Match
	for _, point := range g.points {
		if !matchesFilter(point.Chunk, filter) {
			continue
		}
		if len(vector) != len(point.Vector) {
			return nil, fmt.Errorf("%w: query has length %d, index has length %d",
				index.ErrDimensionMismatch, len(vector), len(point.Vector))
		}
		chunk := *point.Chunk
		matches = append(matches, &index.Match{
			Chunk: &chunk,
			Score: dotProduct(vector, point.Vector),
		})
	}

	// Sort by similarity descending, ties by ascending page
	slices.SortFunc(matches, func(a, b *index.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return a.Chunk.Page - b.Chunk.Page
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Exists reports whether any stored chunk matches filter.
func (g *Gateway) Exists(ctx context.Context, filter index.Filter) (bool, error) {
	count, err := g.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of stored chunks matching filter.
func (g *Gateway) Count(ctx context.Context, filter index.Filter) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return 0, index.ErrGatewayClosed
	}

	count := 0
	for _, point := range g.points {
		if matchesFilter(point.Chunk, filter) {
			count++
		}
	}
	return count, nil
}

// Scroll visits stored chunks matching filter in (source, page) order.
func (g *Gateway) Scroll(ctx context.Context, filter index.Filter, batchSize int, fn func(chunks []*core.DocumentChunk) error) error {
	if batchSize < 1 {
		batchSize = 1
	}

	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return index.ErrGatewayClosed
	}
	var all []*core.DocumentChunk
	for _, point := range g.points {
		if matchesFilter(point.Chunk, filter) {
			chunk := *point.Chunk
			all = append(all, &chunk)
		}
	}
	g.mu.RUnlock()

	slices.SortFunc(all, func(a, b *core.DocumentChunk) int {
		if a.Model != b.Model {
			return compareStrings(a.Model, b.Model)
		}
		if a.Source != b.Source {
			return compareStrings(a.Source, b.Source)
		}
		return a.Page - b.Page
	})

	for start := 0; start < len(all); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(all))
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the total number of stored points. Test helper.
func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.points)
}

// Close marks the gateway closed and drops all points.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.points = nil
	g.closed = true
	return nil
}

func matchesFilter(chunk *core.DocumentChunk, filter index.Filter) bool {
	if filter.Model != "" && chunk.Model != filter.Model {
		return false
	}
	if filter.Source != "" && chunk.Source != filter.Source {
		return false
	}
	return true
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func compareStrings(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
