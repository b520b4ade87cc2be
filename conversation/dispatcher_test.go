package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore wraps a Store and fails selected operations.
type failingStore struct {
	session.Store
	failGet bool
	failPut bool
}

func (s *failingStore) Get(ctx context.Context, userID string) (*core.Session, error) {
	if s.failGet {
		return nil, session.ErrUnavailable
	}
	return s.Store.Get(ctx, userID)
}

func (s *failingStore) Put(ctx context.Context, sess *core.Session) error {
	if s.failPut {
		return session.ErrUnavailable
	}
	return s.Store.Put(ctx, sess)
}

func newTestDispatcher(t *testing.T, store session.Store, answerer Answerer) *Dispatcher {
	t.Helper()
	if store == nil {
		store = session.NewMemoryStore()
		t.Cleanup(func() { store.Close() })
	}
	machine := newTestMachine(t, answerer)
	d, err := NewDispatcher(store, machine)
	require.NoError(t, err)
	return d
}

func TestNewDispatcherValidation(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()
	machine := newTestMachine(t, nil)

	_, err := NewDispatcher(nil, machine)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewDispatcher(store, nil)
	assert.ErrorIs(t, err, ErrMachineRequired)
}

func TestDispatchRejectsEmptyUserID(t *testing.T) {
	d := newTestDispatcher(t, nil, nil)

	_, err := d.Dispatch(context.Background(), message("", "hello"))
	assert.ErrorIs(t, err, core.ErrMissingInput)
}

func TestDispatchCreatesSessionLazily(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()
	d := newTestDispatcher(t, store, nil)
	ctx := context.Background()

	reply, err := d.Dispatch(ctx, command("u1", "start"))
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, "u1", reply.UserID)

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, core.StateAwaitingModel, sess.State)
}

func TestDispatchEndToEndDialog(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()
	answerer := &fakeAnswerer{}
	d := newTestDispatcher(t, store, answerer)
	ctx := context.Background()

	reply, err := d.Dispatch(ctx, command("u1", "start"))
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "X-T30")

	reply, err = d.Dispatch(ctx, message("u1", "X-T30"))
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "X-T30")

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.StateAwaitingQuestion, sess.State)
	assert.Equal(t, "X-T30", sess.SelectedModel)

	reply, err = d.Dispatch(ctx, message("u1", "how do I set ISO?"))
	require.NoError(t, err)
	assert.Equal(t, []string{"X-T30|how do I set ISO?"}, answerer.calls)
	assert.Contains(t, reply.Text, "X-T30 manual, page 7")

	reply, err = d.Dispatch(ctx, message("u1", "DONE"))
	require.NoError(t, err)
	require.NotNil(t, reply)

	sess, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.StateIdle, sess.State)
	assert.Empty(t, sess.SelectedModel)
}

func TestDispatchDropsEventOnSessionLoadFailure(t *testing.T) {
	base := session.NewMemoryStore()
	defer base.Close()
	store := &failingStore{Store: base, failGet: true}
	d := newTestDispatcher(t, store, nil)

	reply, err := d.Dispatch(context.Background(), command("u1", "start"))
	assert.ErrorIs(t, err, ErrEventDropped)
	assert.Nil(t, reply)
}

func TestDispatchDropsEventOnSessionSaveFailure(t *testing.T) {
	base := session.NewMemoryStore()
	defer base.Close()
	store := &failingStore{Store: base, failPut: true}
	d := newTestDispatcher(t, store, nil)

	reply, err := d.Dispatch(context.Background(), command("u1", "start"))
	assert.ErrorIs(t, err, ErrEventDropped)
	assert.Nil(t, reply)

	// The failed transition was not applied
	sess, err := base.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestDispatchIsolatesUsers(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()
	d := newTestDispatcher(t, store, nil)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, command("u1", "start"))
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, message("u1", "X-T30"))
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, command("u2", "start"))
	require.NoError(t, err)

	sessA, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "X-T30", sessA.SelectedModel)

	sessB, err := store.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, core.StateAwaitingModel, sessB.State)
	assert.Empty(t, sessB.SelectedModel)
}

func TestDispatchConcurrentUsers(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()
	d := newTestDispatcher(t, store, nil)
	ctx := context.Background()

	const users = 20
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Dispatch(ctx, command(userID, "start"))
			assert.NoError(t, err)
			_, err = d.Dispatch(ctx, message(userID, "Z5II"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := 0; i < users; i++ {
		sess, err := store.Get(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, core.StateAwaitingQuestion, sess.State)
		assert.Equal(t, "Z5II", sess.SelectedModel)
	}
}

func TestDispatchSequencesEventsPerUser(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()

	var mu sync.Mutex
	var order []string
	answerer := &fakeAnswerer{}
	answerer.answer = &core.Answer{Body: "ok", Citations: []core.Citation{{Model: "X-T30", Page: 1}}}

	d := newTestDispatcher(t, store, answerer)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, command("u1", "start"))
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, message("u1", "X-T30"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		question := fmt.Sprintf("q%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := d.Dispatch(ctx, message("u1", question))
			require.NoError(t, err)
			mu.Lock()
			order = append(order, reply.UserID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// All ten questions were answered, one at a time
	assert.Len(t, order, 10)
	assert.Len(t, answerer.calls, 10)
}
