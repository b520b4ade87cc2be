// Copyright 2025 Pathas Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pathas/manualbot/core"
)

// TerminateKeyword ends a question session. Matched case-insensitively.
const TerminateKeyword = "DONE"

const (
	startCommand = "start"
	helpCommand  = "help"
)

// Answerer answers a question about one camera model.
// *retrieval.Pipeline satisfies this.
type Answerer interface {
	Ask(ctx context.Context, model, question string) (*core.Answer, error)
}

// transition is the tagged result of one state-machine step: the state
// and model the session should move to, whether that change must be
// persisted, and the reply to emit. A nil reply means the event produced
// no outbound message.
type transition struct {
	nextState core.SessionState
	nextModel string
	persist   bool
	reply     *Reply
}

// Machine decides conversation transitions. It is stateless; all
// per-user state lives in the session passed to each step. Sequencing
// of concurrent events is the Dispatcher's job.
type Machine struct {
	answerer Answerer
	logger   *slog.Logger
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithMachineLogger sets a custom logger.
// Default is slog.Default().
func WithMachineLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "conversation")
	}
}

// NewMachine creates a conversation state machine.
func NewMachine(answerer Answerer, opts ...MachineOption) (*Machine, error) {
	if answerer == nil {
		return nil, ErrAnswererRequired
	}
	m := &Machine{
		answerer: answerer,
		logger:   slog.Default().With("component", "conversation"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Step computes the transition for one event against the current session.
// It never mutates the session; the caller applies and persists the result.
func (m *Machine) step(ctx context.Context, sess *core.Session, event Event) transition {
	if event.Command {
		return m.stepCommand(sess, event)
	}

	switch sess.State {
	case core.StateAwaitingModel:
		return m.stepModelSelection(sess, event)
	case core.StateAwaitingQuestion:
		return m.stepQuestion(ctx, sess, event)
	default:
		// Plain text before the dialog has started
		return stay(sess, &Reply{
			UserID: sess.UserID,
			Text:   "Send /start to begin, then pick your camera model.",
		})
	}
}

func (m *Machine) stepCommand(sess *core.Session, event Event) transition {
	switch strings.ToLower(strings.TrimSpace(event.Text)) {
	case startCommand:
		return transition{
			nextState: core.StateAwaitingModel,
			persist:   true,
			reply: &Reply{
				UserID:  sess.UserID,
				Text:    fmt.Sprintf("Hi! Which camera model do you have? I know these: %s.", core.ModelList()),
				Options: modelOptions(),
			},
		}
	case helpCommand:
		return stay(sess, helpReply(sess))
	default:
		// Unknown commands get the help text, state unchanged
		return stay(sess, helpReply(sess))
	}
}

func (m *Machine) stepModelSelection(sess *core.Session, event Event) transition {
	model, ok := core.MatchModel(event.Text)
	if !ok {
		// Self-loop: re-prompt with the valid models
		return stay(sess, &Reply{
			UserID:  sess.UserID,
			Text:    fmt.Sprintf("I don't know that model. Please pick one of: %s.", core.ModelList()),
			Options: modelOptions(),
		})
	}

	return transition{
		nextState: core.StateAwaitingQuestion,
		nextModel: model,
		persist:   true,
		reply: &Reply{
			UserID: sess.UserID,
			Text: fmt.Sprintf("Great, the %s. What would you like to know? Send %s when you're finished.",
				model, TerminateKeyword),
			Options: []string{TerminateKeyword},
		},
	}
}

func (m *Machine) stepQuestion(ctx context.Context, sess *core.Session, event Event) transition {
	text := strings.TrimSpace(event.Text)

	if strings.EqualFold(text, TerminateKeyword) {
		return transition{
			nextState: core.StateIdle,
			persist:   true,
			reply: &Reply{
				UserID: sess.UserID,
				Text:   "Happy shooting! Send /start whenever you have another question.",
			},
		}
	}

	if text == "" {
		return stay(sess, &Reply{
			UserID:  sess.UserID,
			Text:    fmt.Sprintf("Ask me anything about the %s, or send %s to finish.", sess.SelectedModel, TerminateKeyword),
			Options: []string{TerminateKeyword},
		})
	}

	answer, err := m.answerer.Ask(ctx, sess.SelectedModel, text)
	if err != nil {
		// Transient failure: state is untouched so the same question can
		// be retried
		m.logger.Error("retrieval failed", "userID", sess.UserID, "model", sess.SelectedModel, "err", err)
		return stay(sess, &Reply{
			UserID:  sess.UserID,
			Text:    "Sorry, I can't reach the manuals right now. Please try again later.",
			Options: []string{TerminateKeyword},
		})
	}

	return stay(sess, &Reply{
		UserID:  sess.UserID,
		Text:    formatAnswer(answer),
		Options: []string{TerminateKeyword},
	})
}

// stay produces a self-loop transition that keeps state and model.
func stay(sess *core.Session, reply *Reply) transition {
	return transition{
		nextState: sess.State,
		nextModel: sess.SelectedModel,
		reply:     reply,
	}
}

// formatAnswer renders an answer with its citations and the terminate
// keyword reminder.
func formatAnswer(answer *core.Answer) string {
	var b strings.Builder
	b.WriteString(answer.Body)

	if !answer.NoContent() {
		b.WriteString("\n\nSource: ")
		for i, citation := range answer.Citations {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s manual, page %d", citation.Model, citation.Page)
		}
	}

	fmt.Fprintf(&b, "\n\nSend %s when you're finished.", TerminateKeyword)
	return b.String()
}

func helpReply(sess *core.Session) *Reply {
	var b strings.Builder
	b.WriteString("I answer questions from camera manuals.\n")
	fmt.Fprintf(&b, "Supported models: %s.\n", core.ModelList())
	b.WriteString("Send /start to pick a model, then ask away. ")
	fmt.Fprintf(&b, "Send %s to end the session.", TerminateKeyword)

	reply := &Reply{UserID: sess.UserID, Text: b.String()}
	switch sess.State {
	case core.StateAwaitingModel:
		reply.Options = modelOptions()
	case core.StateAwaitingQuestion:
		reply.Options = []string{TerminateKeyword}
	}
	return reply
}

func modelOptions() []string {
	options := make([]string, len(core.SupportedModels))
	copy(options, core.SupportedModels)
	return options
}
