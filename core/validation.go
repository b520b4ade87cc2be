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


package core

import (
	"fmt"
)

// ValidateSession validates a Session according to domain rules.
//
// Validation rules:
//   - UserID must not be empty
//   - State must be a declared SessionState
//   - SelectedModel must be non-empty exactly when State is StateAwaitingQuestion
//   - SelectedModel, when set, must be a supported model
func ValidateSession(session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}

	if session.UserID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptyUserID)
	}

	if err := ValidateSessionState(session.State); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	hasModel := session.SelectedModel != ""
	awaitingQuestion := session.State == StateAwaitingQuestion
	if hasModel != awaitingQuestion {
		return fmt.Errorf("%w: state %s with selected model %q",
			ErrInvalidSession, session.State, session.SelectedModel)
	}

	if hasModel && !IsSupportedModel(session.SelectedModel) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSession, ErrInvalidModel, session.SelectedModel)
	}

	return nil
}

// ValidateSessionState validates that a SessionState has a declared value.
func ValidateSessionState(state SessionState) error {
	switch state {
	case StateIdle, StateAwaitingModel, StateAwaitingQuestion:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidSessionState, state)
	}
}

// ValidateChunk validates a DocumentChunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Model must be a supported model tag
//   - Page must be 1-based
func ValidateChunk(chunk *DocumentChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if !IsSupportedModel(chunk.Model) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidChunk, ErrInvalidModel, chunk.Model)
	}

	if chunk.Page < 1 {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidChunk, ErrInvalidPage, chunk.Page)
	}

	return nil
}
