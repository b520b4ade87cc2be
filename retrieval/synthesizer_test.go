package retrieval

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/pathas/manualbot/ai"
	"github.com/pathas/manualbot/ai/mock"
	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
	"github.com/stretchr/testify/assert"
)

func excerptMatches() []*index.Match {
	return []*index.Match{
		{Chunk: &core.DocumentChunk{Text: "Press the AF-ON button.", Model: "X-T30", Source: "manual.txt", Page: 4}},
	}
}

func TestExcerptSynthesizerFormatsMatches(t *testing.T) {
	s := NewExcerptSynthesizer()

	body, synthesized := s.Synthesize(context.Background(), "back-button focus?", excerptMatches())
	assert.False(t, synthesized)
	assert.Contains(t, body, "From the X-T30 manual, page 4:")
	assert.Contains(t, body, "Press the AF-ON button.")
}

func TestLLMSynthesizerClassifiesCompletionFailure(t *testing.T) {
	var logged bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logged, nil))

	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, contextText, question string) (string, error) {
		return "", errors.New("connection refused")
	}

	s := NewLLMSynthesizer(completer, logger)
	body, synthesized := s.Synthesize(context.Background(), "back-button focus?", excerptMatches())

	assert.False(t, synthesized)
	assert.Contains(t, body, "Press the AF-ON button.")
	assert.Contains(t, logged.String(), ai.ErrCompletionUnavailable.Error())
}

func TestLLMSynthesizerFallsBackOnEmptyAnswer(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, contextText, question string) (string, error) {
		return "   ", nil
	}

	s := NewLLMSynthesizer(completer, nil)
	body, synthesized := s.Synthesize(context.Background(), "back-button focus?", excerptMatches())

	assert.False(t, synthesized)
	assert.Contains(t, body, "Press the AF-ON button.")
}
