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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pathas/manualbot/ai"
	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
)

const (
	// Chunks per embedding request. Batching keeps the number of round
	// trips to the embedding service proportional to manual size.
	defaultEmbedBatchSize = 16

	// Per-batch embedding timeout.
	defaultEmbedTimeout = 60 * time.Second

	// Timeout for each individual index call.
	defaultCallTimeout = 30 * time.Second
)

// Pipeline turns a camera manual into indexed, embedded chunks.
// Batches of chunks are embedded concurrently on a worker pool; the
// upsert into the index happens once, after all embeddings succeed.
type Pipeline struct {
	gateway      index.Gateway
	embedder     ai.Embedder
	pool         *ants.Pool
	chunkSize    int
	chunkOverlap int
	batchSize    int
	embedTimeout time.Duration
	callTimeout  time.Duration
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunking sets the chunk size and overlap in bytes.
// Defaults are 1000 and 200.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		if overlap < 0 || overlap >= size {
			return fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per request.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("embed batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithEmbedTimeout sets the per-batch embedding timeout.
func WithEmbedTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("embed timeout must be positive, got %s", timeout)
		}
		p.embedTimeout = timeout
		return nil
	}
}

// WithCallTimeout sets the timeout applied to each index call.
// Default is 30s.
func WithCallTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("call timeout must be positive, got %s", timeout)
		}
		p.callTimeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(gateway index.Gateway, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		gateway:      gateway,
		embedder:     embedder,
		pool:         pool,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		batchSize:    defaultEmbedBatchSize,
		embedTimeout: defaultEmbedTimeout,
		callTimeout:  defaultCallTimeout,
		logger:       slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest extracts, chunks, embeds and indexes one manual. It returns the
// number of chunks stored.
//
// The model must be one of the supported camera models (matched
// case-insensitively). A manual already indexed under the same model and
// source fails with ErrAlreadyIngested and leaves the index untouched.
// Either every chunk of the manual is upserted or none is.
func (p *Pipeline) Ingest(ctx context.Context, model, source string, data []byte) (int, error) {
	if strings.TrimSpace(model) == "" {
		return 0, fmt.Errorf("%w: model required", core.ErrMissingInput)
	}
	canonical, ok := core.MatchModel(model)
	if !ok {
		return 0, fmt.Errorf("%w: %q (supported: %s)", core.ErrInvalidModel, model, core.ModelList())
	}
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("%w: source required", core.ErrMissingInput)
	}

	existsCtx, cancelExists := context.WithTimeout(ctx, p.callTimeout)
	exists, err := p.gateway.Exists(existsCtx, index.Filter{Model: canonical, Source: source})
	cancelExists()
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s / %s", ErrAlreadyIngested, canonical, source)
	}

	text, err := extractText(data, source)
	if err != nil {
		return 0, err
	}

	pieces := splitText(text, p.chunkSize, p.chunkOverlap)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("%w: %s produced no chunks", ErrExtractionFailed, source)
	}

	chunks := make([]*core.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		chunk := &core.DocumentChunk{
			Text:   piece,
			Model:  canonical,
			Source: source,
			Page:   i + 1,
		}
		chunk.Id = core.IDFromContent(chunk.Identity())
		if err := core.ValidateChunk(chunk); err != nil {
			return 0, err
		}
		chunks[i] = chunk
	}

	points, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	upsertCtx, cancelUpsert := context.WithTimeout(ctx, p.callTimeout)
	defer cancelUpsert()
	if err := p.gateway.Upsert(upsertCtx, points); err != nil {
		return 0, err
	}

	p.logger.Info("manual ingested",
		"model", canonical, "source", source, "chunks", len(points))
	return len(points), nil
}

// embedChunks embeds chunks in concurrent batches and pairs each chunk
// with its vector, preserving chunk order.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*core.DocumentChunk) ([]*index.Point, error) {
	points := make([]*index.Point, len(chunks))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		offset := start

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			embedCtx, cancel := context.WithTimeout(ctx, p.embedTimeout)
			defer cancel()

			vectors, err := p.embedder.EmbedTexts(embedCtx, texts)
			if err == nil && len(vectors) != len(batch) {
				err = fmt.Errorf("expected %d vectors, got %d", len(batch), len(vectors))
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: %w", ai.ErrEmbeddingUnavailable, err)
				}
				return
			}
			for i, vector := range vectors {
				points[offset+i] = &index.Point{Chunk: batch[i], Vector: vector}
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return points, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
