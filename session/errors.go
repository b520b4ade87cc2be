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


package session

import "errors"

var (
	// ErrUnavailable indicates the session store backend could not be
	// reached or failed mid-operation. Events hitting this error are
	// dropped by the dispatcher without a reply.
	ErrUnavailable = errors.New("session store unavailable")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("session store is closed")

	// ErrSerializationFailed indicates a stored session could not be decoded.
	ErrSerializationFailed = errors.New("session serialization failed")
)
