// Package ingestion provides pipeline orchestration for indexing camera manuals.
//
// The Pipeline type manages the ingestion workflow for a manual, including:
//   - Extracting plain text from the raw document
//   - Splitting the text into overlapping chunks with contiguous ordinals
//   - Generating embeddings in concurrent batches using a worker pool
//   - Upserting the embedded chunks into the vector index as one batch
//
// Ingestion is idempotent per (model, source): a manual that is already
// indexed is rejected rather than duplicated, and a failed ingestion
// leaves the index untouched.
package ingestion
