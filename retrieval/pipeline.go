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

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pathas/manualbot/ai"
	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
)

const (
	// defaultTopK is the number of excerpts retrieved per question.
	// One focused excerpt keeps answers grounded in a single manual passage.
	defaultTopK = 1

	// Per-call timeout for embedding, index query and synthesis.
	defaultCallTimeout = 30 * time.Second
)

// Pipeline answers questions about a selected camera model from its
// indexed manual.
type Pipeline struct {
	gateway     index.Gateway
	embedder    ai.Embedder
	synthesizer Synthesizer
	topK        int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithTopK sets how many excerpts are retrieved per question.
// Default is 1.
func WithTopK(k int) Option {
	return func(p *Pipeline) error {
		if k < 1 {
			return fmt.Errorf("topK must be positive, got %d", k)
		}
		p.topK = k
		return nil
	}
}

// WithTimeout sets the timeout applied to each external call: question
// embedding, index query and answer synthesis. Default is 30s.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", timeout)
		}
		p.timeout = timeout
		return nil
	}
}

// WithSynthesizer sets the answer synthesizer.
// Default is the verbatim excerpt synthesizer.
func WithSynthesizer(s Synthesizer) Option {
	return func(p *Pipeline) error {
		if s == nil {
			s = NewExcerptSynthesizer()
		}
		p.synthesizer = s
		return nil
	}
}

// WithCompleter wires a model-backed synthesizer that degrades to
// verbatim excerpts when the completion service is down.
func WithCompleter(completer ai.Completer) Option {
	return func(p *Pipeline) error {
		if completer == nil {
			return nil
		}
		p.synthesizer = NewLLMSynthesizer(completer, p.logger)
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
		p.logger = logger.With("component", "retrieval")
		return nil
	}
}

// NewPipeline creates a new retrieval pipeline.
func NewPipeline(gateway index.Gateway, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		gateway:     gateway,
		embedder:    embedder,
		synthesizer: NewExcerptSynthesizer(),
		topK:        defaultTopK,
		timeout:     defaultCallTimeout,
		logger:      slog.Default().With("component", "retrieval"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Ask answers a question about one camera model using only excerpts
// retrieved from that model's manual.
//
// The model must be a supported tag (matched case-insensitively) and the
// question must be non-empty. When no excerpt matches, a no-content
// answer is returned and the synthesizer is never invoked.
func (p *Pipeline) Ask(ctx context.Context, model, question string) (*core.Answer, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: model required", core.ErrMissingInput)
	}
	canonical, ok := core.MatchModel(model)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", core.ErrInvalidModel, model, core.ModelList())
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question required", core.ErrMissingInput)
	}

	// Each external call carries its own deadline so one hung service
	// cannot wedge the caller.
	embedCtx, cancelEmbed := context.WithTimeout(ctx, p.timeout)
	vector, err := p.embedder.EmbedText(embedCtx, question)
	cancelEmbed()
	if err != nil {
		p.logger.Error("error embedding question", "model", canonical, "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbeddingUnavailable, err)
	}

	queryCtx, cancelQuery := context.WithTimeout(ctx, p.timeout)
	matches, err := p.gateway.Query(queryCtx, vector, index.Filter{Model: canonical}, p.topK)
	cancelQuery()
	if err != nil {
		p.logger.Error("error querying index", "model", canonical, "err", err)
		return nil, err
	}

	if len(matches) == 0 {
		p.logger.Info("no matching excerpts", "model", canonical)
		return &core.Answer{
			Body: fmt.Sprintf("The %s manual has nothing on that. Try rephrasing your question.", canonical),
		}, nil
	}

	synthCtx, cancelSynth := context.WithTimeout(ctx, p.timeout)
	defer cancelSynth()
	body, synthesized := p.synthesizer.Synthesize(synthCtx, question, matches)

	return &core.Answer{
		Body:        body,
		Citations:   citationsOf(matches),
		Synthesized: synthesized,
	}, nil
}

// citationsOf extracts citations from matches in ranked order,
// dropping duplicate (model, page) pairs.
func citationsOf(matches []*index.Match) []core.Citation {
	seen := make(map[core.Citation]bool, len(matches))
	citations := make([]core.Citation, 0, len(matches))
	for _, match := range matches {
		citation := core.Citation{Model: match.Chunk.Model, Page: match.Chunk.Page}
		if seen[citation] {
			continue
		}
		seen[citation] = true
		citations = append(citations, citation)
	}
	return citations
}
