package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pathas/manualbot/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnswerer records Ask calls and returns a canned answer.
type fakeAnswerer struct {
	calls  []string
	answer *core.Answer
	err    error
}

func (f *fakeAnswerer) Ask(ctx context.Context, model, question string) (*core.Answer, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s|%s", model, question))
	if f.err != nil {
		return nil, f.err
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &core.Answer{
		Body:      "Use the ISO dial.",
		Citations: []core.Citation{{Model: model, Page: 7}},
	}, nil
}

func newTestMachine(t *testing.T, answerer Answerer) *Machine {
	t.Helper()
	if answerer == nil {
		answerer = &fakeAnswerer{}
	}
	m, err := NewMachine(answerer)
	require.NoError(t, err)
	return m
}

func command(userID, name string) Event {
	return Event{UserID: userID, Text: name, Command: true}
}

func message(userID, text string) Event {
	return Event{UserID: userID, Text: text}
}

func TestNewMachineRequiresAnswerer(t *testing.T) {
	_, err := NewMachine(nil)
	assert.ErrorIs(t, err, ErrAnswererRequired)
}

func TestStartCommandPromptsForModel(t *testing.T) {
	m := newTestMachine(t, nil)
	sess := core.NewSession("u1")

	result := m.step(context.Background(), sess, command("u1", "start"))

	assert.Equal(t, core.StateAwaitingModel, result.nextState)
	assert.Empty(t, result.nextModel)
	assert.True(t, result.persist)
	require.NotNil(t, result.reply)
	for _, model := range core.SupportedModels {
		assert.Contains(t, result.reply.Text, model)
	}
	assert.Equal(t, core.SupportedModels, result.reply.Options)
}

func TestStartCommandRestartsActiveSession(t *testing.T) {
	m := newTestMachine(t, nil)
	sess := core.NewSession("u1")
	sess.State = core.StateAwaitingQuestion
	sess.SelectedModel = "X-T30"

	result := m.step(context.Background(), sess, command("u1", "start"))

	assert.Equal(t, core.StateAwaitingModel, result.nextState)
	assert.Empty(t, result.nextModel)
	assert.True(t, result.persist)
}

func TestEveryModelIsSelectable(t *testing.T) {
	for _, model := range core.SupportedModels {
		t.Run(model, func(t *testing.T) {
			m := newTestMachine(t, nil)
			sess := core.NewSession("u1")
			sess.State = core.StateAwaitingModel

			result := m.step(context.Background(), sess, message("u1", model))

			assert.Equal(t, core.StateAwaitingQuestion, result.nextState)
			assert.Equal(t, model, result.nextModel)
			assert.True(t, result.persist)
			require.NotNil(t, result.reply)
			assert.Equal(t, []string{TerminateKeyword}, result.reply.Options)
		})
	}
}

func TestModelSelectionIsCaseInsensitive(t *testing.T) {
	m := newTestMachine(t, nil)
	sess := core.NewSession("u1")
	sess.State = core.StateAwaitingModel

	result := m.step(context.Background(), sess, message("u1", "  x-t30 "))

	assert.Equal(t, core.StateAwaitingQuestion, result.nextState)
	assert.Equal(t, "X-T30", result.nextModel)
}

func TestUnknownModelRepromptsWithModelList(t *testing.T) {
	m := newTestMachine(t, nil)
	sess := core.NewSession("u1")
	sess.State = core.StateAwaitingModel

	result := m.step(context.Background(), sess, message("u1", "EOS-R5"))

	assert.Equal(t, core.StateAwaitingModel, result.nextState)
	assert.Empty(t, result.nextModel)
	assert.False(t, result.persist)
	require.NotNil(t, result.reply)
	for _, model := range core.SupportedModels {
		assert.Contains(t, result.reply.Text, model)
	}
	assert.Equal(t, core.SupportedModels, result.reply.Options)
}

func TestQuestionInvokesAnswererWithSelectedModel(t *testing.T) {
	answerer := &fakeAnswerer{}
	m := newTestMachine(t, answerer)
	sess := core.NewSession("u1")
	sess.State = core.StateAwaitingQuestion
	sess.SelectedModel = "X-T30"

	result := m.step(context.Background(), sess, message("u1", "how do I set ISO?"))

	require.Equal(t, []string{"X-T30|how do I set ISO?"}, answerer.calls)
	assert.Equal(t, core.StateAwaitingQuestion, result.nextState)
	assert.Equal(t, "X-T30", result.nextModel)
	assert.False(t, result.persist)
	require.NotNil(t, result.reply)
	assert.Contains(t, result.reply.Text, "Use the ISO dial.")
	assert.Contains(t, result.reply.Text, "X-T30 manual, page 7")
	assert.Contains(t, result.reply.Text, TerminateKeyword)
}

func TestTerminateKeywordIsCaseInsensitive(t *testing.T) {
	for _, keyword := range []string{"done", "Done", "DONE", " dOnE "} {
		t.Run(keyword, func(t *testing.T) {
			m := newTestMachine(t, nil)
			sess := core.NewSession("u1")
			sess.State = core.StateAwaitingQuestion
			sess.SelectedModel = "Z5II"

			result := m.step(context.Background(), sess, message("u1", keyword))

			assert.Equal(t, core.StateIdle, result.nextState)
			assert.Empty(t, result.nextModel)
			assert.True(t, result.persist)
			require.NotNil(t, result.reply)
		})
	}
}

func TestRetrievalFailureKeepsStateForRetry(t *testing.T) {
	answerer := &fakeAnswerer{err: errors.New("index unreachable")}
	m := newTestMachine(t, answerer)
	sess := core.NewSession("u1")
	sess.State = core.StateAwaitingQuestion
	sess.SelectedModel = "D-LUX7"

	result := m.step(context.Background(), sess, message("u1", "how do I zoom?"))

	assert.Equal(t, core.StateAwaitingQuestion, result.nextState)
	assert.Equal(t, "D-LUX7", result.nextModel)
	assert.False(t, result.persist)
	require.NotNil(t, result.reply)
	assert.Contains(t, result.reply.Text, "try again later")
}

func TestHelpCommandLeavesStateUntouched(t *testing.T) {
	m := newTestMachine(t, nil)

	for _, state := range []core.SessionState{core.StateIdle, core.StateAwaitingModel, core.StateAwaitingQuestion} {
		t.Run(state.String(), func(t *testing.T) {
			sess := core.NewSession("u1")
			sess.State = state
			if state == core.StateAwaitingQuestion {
				sess.SelectedModel = "X-T30"
			}

			result := m.step(context.Background(), sess, command("u1", "help"))

			assert.Equal(t, state, result.nextState)
			assert.False(t, result.persist)
			require.NotNil(t, result.reply)
			assert.Contains(t, result.reply.Text, "/start")
		})
	}
}

func TestUnknownCommandAnsweredWithHelp(t *testing.T) {
	m := newTestMachine(t, nil)
	sess := core.NewSession("u1")

	result := m.step(context.Background(), sess, command("u1", "frobnicate"))

	assert.Equal(t, core.StateIdle, result.nextState)
	assert.False(t, result.persist)
	require.NotNil(t, result.reply)
	assert.Contains(t, result.reply.Text, "/start")
}

func TestIdleTextPromptsForStart(t *testing.T) {
	answerer := &fakeAnswerer{}
	m := newTestMachine(t, answerer)
	sess := core.NewSession("u1")

	result := m.step(context.Background(), sess, message("u1", "how do I set ISO?"))

	assert.Equal(t, core.StateIdle, result.nextState)
	assert.False(t, result.persist)
	require.NotNil(t, result.reply)
	assert.Contains(t, result.reply.Text, "/start")
	assert.Empty(t, answerer.calls)
}

func TestEmptyQuestionReprompts(t *testing.T) {
	answerer := &fakeAnswerer{}
	m := newTestMachine(t, answerer)
	sess := core.NewSession("u1")
	sess.State = core.StateAwaitingQuestion
	sess.SelectedModel = "X-T30"

	result := m.step(context.Background(), sess, message("u1", "   "))

	assert.Equal(t, core.StateAwaitingQuestion, result.nextState)
	assert.False(t, result.persist)
	assert.Empty(t, answerer.calls)
	require.NotNil(t, result.reply)
	assert.Contains(t, result.reply.Text, "X-T30")
}
