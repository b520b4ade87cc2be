// Copyright 2025 Pathas Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package session provides the keyed session store for conversation state.
//
// A Store maps user identities to core.Session records with no further
// semantics: transition logic and per-user sequencing live in the
// conversation package. Two implementations are available:
//
//   - NewMemoryStore: in-process map, sessions lost on restart
//   - session/badger: persistent BadgerDB-backed store
//
// Stores return defensive copies, so callers can mutate a retrieved
// session freely and persist it with Put.
package session
