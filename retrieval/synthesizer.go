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

	"github.com/pathas/manualbot/ai"
	"github.com/pathas/manualbot/index"
)

// Synthesizer turns retrieved manual excerpts into an answer body.
// The returned flag reports whether the body is synthesized prose
// rather than verbatim excerpts.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, matches []*index.Match) (string, bool)
}

// excerptSynthesizer formats the retrieved excerpts verbatim.
// It never fails, which makes it the degradation target for the
// model-backed synthesizer.
type excerptSynthesizer struct{}

// NewExcerptSynthesizer creates a synthesizer that returns excerpts as-is.
func NewExcerptSynthesizer() Synthesizer {
	return &excerptSynthesizer{}
}

func (s *excerptSynthesizer) Synthesize(ctx context.Context, question string, matches []*index.Match) (string, bool) {
	var b strings.Builder
	for i, match := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "From the %s manual, page %d:\n%s",
			match.Chunk.Model, match.Chunk.Page, match.Chunk.Text)
	}
	return b.String(), false
}

// llmSynthesizer answers with a language model, grounded on the excerpts.
// When the completion call fails the excerpts are returned instead, so a
// synthesis outage degrades the answer rather than losing it.
type llmSynthesizer struct {
	completer ai.Completer
	fallback  Synthesizer
	logger    *slog.Logger
}

// NewLLMSynthesizer creates a model-backed synthesizer that degrades to
// verbatim excerpts on failure.
func NewLLMSynthesizer(completer ai.Completer, logger *slog.Logger) Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &llmSynthesizer{
		completer: completer,
		fallback:  NewExcerptSynthesizer(),
		logger:    logger.With("component", "synthesizer"),
	}
}

func (s *llmSynthesizer) Synthesize(ctx context.Context, question string, matches []*index.Match) (string, bool) {
	contextText := buildContext(matches)

	body, err := s.completer.Complete(ctx, contextText, question)
	if err != nil {
		err = fmt.Errorf("%w: %w", ai.ErrCompletionUnavailable, err)
		s.logger.Warn("synthesis failed, falling back to excerpts", "err", err)
		return s.fallback.Synthesize(ctx, question, matches)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		s.logger.Warn("synthesis returned empty answer, falling back to excerpts")
		return s.fallback.Synthesize(ctx, question, matches)
	}

	return body, true
}

// buildContext assembles the prompt context from matches, labeling each
// excerpt with its manual and page so the model can cite them.
func buildContext(matches []*index.Match) string {
	var b strings.Builder
	for i, match := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s manual, page %d]\n%s",
			match.Chunk.Model, match.Chunk.Page, match.Chunk.Text)
	}
	return b.String()
}
