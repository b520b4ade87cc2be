package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that identical
// content always produces the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SessionState identifies where a user is in the model-selection dialog.
type SessionState int

const (
	// StateIdle means no conversation is in progress.
	StateIdle SessionState = iota + 1
	// StateAwaitingModel means the user has been asked to pick a camera model.
	StateAwaitingModel
	// StateAwaitingQuestion means a model is selected and questions are accepted.
	StateAwaitingQuestion
)

// String returns a human-readable state name for logging.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateAwaitingQuestion:
		return "AWAITING_QUESTION"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session is the per-user conversation record.
//
// Invariant: SelectedModel is non-empty if and only if State is
// StateAwaitingQuestion. Use ValidateSession to enforce it.
type Session struct {
	UserID        string
	State         SessionState
	SelectedModel string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSession creates an idle session for the given user.
func NewSession(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		UserID:    userID,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns the session to idle and clears the selected model.
func (s *Session) Reset() {
	s.State = StateIdle
	s.SelectedModel = ""
	s.UpdatedAt = time.Now().UTC()
}

// DocumentChunk is the unit of indexed manual text.
// Chunks are immutable once stored; re-ingesting the same (Model, Source)
// pair is a no-op, never an overwrite.
type DocumentChunk struct {
	Id     ID
	Text   string
	Model  string
	Source string
	Page   int // 1-based ordinal within the source document
}

// Identity returns the unique "(model,source,page)" tuple for the chunk.
// It is the input to deterministic ID generation.
func (c *DocumentChunk) Identity() string {
	return fmt.Sprintf("(%s,%s,%d)", c.Model, c.Source, c.Page)
}

// ChunkID generates the deterministic ID for a chunk identity tuple.
func ChunkID(model, source string, page int) ID {
	c := DocumentChunk{Model: model, Source: source, Page: page}
	return IDFromContent(c.Identity())
}

// Citation identifies where a retrieved excerpt came from.
type Citation struct {
	Model string
	Page  int
}

// Answer is the result of the retrieval pipeline: a body (synthesized
// prose or verbatim excerpts) plus citations in ranked match order.
type Answer struct {
	Body        string
	Citations   []Citation
	Synthesized bool
}

// NoContent reports whether the answer carries no retrieved material.
func (a *Answer) NoContent() bool {
	return len(a.Citations) == 0
}

// SupportedModels is the fixed set of camera models the assistant knows.
// It is read-only, process-wide configuration consulted by both pipelines.
var SupportedModels = []string{"X-T30", "Z5II", "D-LUX7"}

// MatchModel resolves free-form text to a supported model tag.
// Matching is case-insensitive and ignores surrounding whitespace.
// Returns the canonical tag and true on a match.
func MatchModel(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, model := range SupportedModels {
		if strings.EqualFold(text, model) {
			return model, true
		}
	}
	return "", false
}

// IsSupportedModel reports whether model is exactly a supported tag.
func IsSupportedModel(model string) bool {
	for _, m := range SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}

// ModelList returns the supported models as a display string, e.g.
// "X-T30, Z5II, D-LUX7".
func ModelList() string {
	return strings.Join(SupportedModels, ", ")
}
