package ai

import "errors"

var (
	// ErrEmbeddingUnavailable indicates the embedding service could not be
	// reached. Callers should treat it as transient and retryable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCompletionUnavailable indicates the answer-synthesis service could
	// not be reached. The retrieval pipeline degrades to raw excerpts
	// instead of surfacing this to users.
	ErrCompletionUnavailable = errors.New("completion service unavailable")
)
