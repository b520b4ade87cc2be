// Package mock provides test doubles for the ai package interfaces.
//
// The mocks generate deterministic embeddings and answers by default, so
// tests are reproducible without external AI services. Behavior can be
// overridden per test via the exported Func fields.
package mock
