// Package reindex re-embeds indexed manual chunks in place.
//
// Switching the embedding model invalidates every stored vector, because
// query vectors and stored vectors must come from the same model. The
// Reindexer scrolls the index in batches, embeds each chunk's text with
// the current embedder, and upserts the fresh vectors under the same
// chunk identities. External calls are retried with exponential backoff
// and progress is reported as the run advances.
package reindex
