package retrieval

import "errors"

var (
	// ErrGatewayRequired is returned when an index gateway is not provided.
	ErrGatewayRequired = errors.New("index gateway required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
