// Package index defines the vector index gateway used by the ingestion and
// retrieval pipelines.
//
// The Gateway interface treats the index as a capability: upsert chunk
// vectors, query with a metadata filter, check existence. Two
// implementations ship with manualbot:
//
//   - index/memory: an in-process index for tests and no-infrastructure use
//   - index/qdrant: a Qdrant-backed index for production
//
// Public constructors return the Gateway interface to keep pipelines
// decoupled from the concrete backend.
package index
