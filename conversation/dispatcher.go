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
	"sync"
	"time"

	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/session"
)

// Dispatcher applies conversation transitions against the session store.
//
// Exactly one transition per user is in flight at a time; events for
// distinct users run concurrently. The per-user lock is held for the
// whole transition so replies go out in the order events were applied.
type Dispatcher struct {
	store   session.Store
	machine *Machine
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets a custom logger.
// Default is slog.Default().
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger.With("component", "dispatcher")
	}
}

// NewDispatcher creates a dispatcher over a session store and machine.
func NewDispatcher(store session.Store, machine *Machine, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if machine == nil {
		return nil, ErrMachineRequired
	}
	d := &Dispatcher{
		store:   store,
		machine: machine,
		logger:  slog.Default().With("component", "dispatcher"),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch processes one inbound event and returns the reply to send.
//
// A session store failure drops the event: the error is logged, no
// reply is produced, and no transition is applied. The caller decides
// whether to surface ErrEventDropped to its transport.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (*Reply, error) {
	if strings.TrimSpace(event.UserID) == "" {
		return nil, fmt.Errorf("%w: user id required", core.ErrMissingInput)
	}

	lock := d.userLock(event.UserID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := d.store.Get(ctx, event.UserID)
	if err != nil {
		d.logger.Error("session load failed, dropping event", "userID", event.UserID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEventDropped, err)
	}
	if sess == nil {
		sess = core.NewSession(event.UserID)
	}

	result := d.machine.step(ctx, sess, event)

	if result.persist {
		next := *sess
		next.State = result.nextState
		next.SelectedModel = result.nextModel
		next.UpdatedAt = time.Now().UTC()

		if err := d.store.Put(ctx, &next); err != nil {
			// Never reply when the transition could not be recorded
			d.logger.Error("session save failed, dropping event", "userID", event.UserID, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrEventDropped, err)
		}
	}

	return result.reply, nil
}

func (d *Dispatcher) userLock(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[userID] = lock
	}
	return lock
}
