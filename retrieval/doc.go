// Package retrieval answers camera questions from indexed manual excerpts.
//
// The Pipeline type embeds the question, queries the vector index filtered
// to the selected model, and hands the ranked excerpts to a Synthesizer.
// The model-backed synthesizer degrades to returning the excerpts verbatim
// when the completion service is unavailable, so retrieval keeps working
// through a synthesis outage.
//
// Answers carry citations in ranked match order. A question with no
// matching excerpts yields a no-content answer without invoking synthesis.
package retrieval
