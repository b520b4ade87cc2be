package ingestion

import "errors"

var (
	// ErrGatewayRequired is returned when an index gateway is not provided.
	ErrGatewayRequired = errors.New("index gateway required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrAlreadyIngested is returned when a manual with the same model and
	// source has already been indexed. Re-ingestion never duplicates chunks.
	ErrAlreadyIngested = errors.New("manual already ingested")

	// ErrExtractionFailed is returned when no text could be extracted from
	// a manual. Nothing is written to the index in that case.
	ErrExtractionFailed = errors.New("text extraction failed")
)
