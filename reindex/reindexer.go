// Copyright 2025 Pathas Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pathas/manualbot/ai"
	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
)

// Config holds configuration for a reindexing run.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer re-embeds stored manual chunks and writes the fresh vectors
// back to the index. Run it after switching embedding models so stored
// vectors match the model used at query time.
type Reindexer struct {
	gateway  index.Gateway
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(gateway index.Gateway, embedder ai.Embedder, config *Config, progress io.Writer) (*Reindexer, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Reindexer{
		gateway:  gateway,
		embedder: embedder,
		config:   config,
		progress: progress,
	}, nil
}

// Run re-embeds every chunk matching filter. An empty filter covers the
// whole index. Progress is reported to the configured writer.
//
// Chunk identity is preserved, so each re-embedded chunk overwrites its
// old point rather than duplicating it.
func (r *Reindexer) Run(ctx context.Context, filter index.Filter) error {
	total, err := r.gateway.Count(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in index (0 chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0

	err = r.gateway.Scroll(ctx, filter, r.config.BatchSize, func(chunks []*core.DocumentChunk) error {
		if err := r.processBatch(ctx, chunks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(chunks)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return nil
}

// processBatch embeds one batch of chunks and upserts the new vectors,
// retrying each external call with exponential backoff.
func (r *Reindexer) processBatch(ctx context.Context, chunks []*core.DocumentChunk) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors))
	}

	points := make([]*index.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = &index.Point{Chunk: chunk, Vector: vectors[i]}
	}

	return RetryWithBackoff(ctx, func() error {
		return r.gateway.Upsert(ctx, points)
	}, r.config.MaxRetries, r.config.RetryDelay)
}
