// Package openai provides ai.Embedder and ai.Completer implementations
// backed by OpenAI-compatible HTTP APIs (Ollama, LocalAI, vLLM, OpenAI).
//
// Both services are configured through ai.Config; local services that do
// not require authentication are supported by passing a placeholder token.
package openai
