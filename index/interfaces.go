package index

import (
	"context"

	"github.com/pathas/manualbot/core"
)

// Point is a chunk paired with its embedding vector, ready for upsert.
// The vector is owned by the index after upsert; the application does not
// keep embeddings in memory.
type Point struct {
	Chunk  *core.DocumentChunk
	Vector []float32
}

// Match is a ranked result from a similarity query.
type Match struct {
	Chunk *core.DocumentChunk
	Score float32
}

// Filter restricts queries to chunks with matching metadata.
// Empty fields match everything.
type Filter struct {
	Model  string
	Source string
}

// Gateway abstracts the vector index behind a uniform capability interface.
// Implementations must be thread-safe; the backing service owns consistency,
// ranking metric, and durability.
type Gateway interface {
	// Upsert stores points as one batch. Point IDs are derived from chunk
	// identity, so re-upserting the same chunk overwrites rather than
	// duplicates.
	Upsert(ctx context.Context, points []*Point) error

	// Query returns up to k chunks matching filter, ranked by similarity
	// to vector (higher score = more relevant).
	Query(ctx context.Context, vector []float32, filter Filter, k int) ([]*Match, error)

	// Exists reports whether any stored chunk matches filter.
	Exists(ctx context.Context, filter Filter) (bool, error)

	// Count returns the number of stored chunks matching filter.
	Count(ctx context.Context, filter Filter) (int, error)

	// Scroll visits every stored chunk matching filter in batches of up to
	// batchSize, invoking fn for each batch. Iteration stops on the first
	// error from fn.
	Scroll(ctx context.Context, filter Filter, batchSize int, fn func(chunks []*core.DocumentChunk) error) error

	// Close releases resources held by the gateway.
	Close() error
}
