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


package index

import "errors"

var (
	// ErrUnavailable indicates the vector index could not be reached.
	// Callers should treat it as transient and retryable.
	ErrUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a query or upsert vector whose length
	// does not match the index dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGatewayClosed indicates the gateway has been closed.
	ErrGatewayClosed = errors.New("index gateway is closed")
)
