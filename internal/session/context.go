// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Listener is called with the new state after every change.
type Listener func(State)

// Context is the injected session. It is safe for concurrent use.
type Context struct {
	mu        sync.RWMutex
	store     Store
	state     State
	listeners map[uint64]Listener
	nextID    uint64
}

// New returns an empty Context backed by store. A nil store keeps state in
// memory only.
func New(store Store) *Context {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Context{
		store:     store,
		listeners: make(map[uint64]Listener),
	}
}

// Hydrate loads the persisted state. Listeners are notified only if the
// state actually changed.
func (c *Context) Hydrate() error {
	s, err := c.store.Load()
	if err != nil {
		return errors.Wrap(err, "hydrate session")
	}
	c.apply(s)
	return nil
}

// SetLogin records a successful login and persists it.
func (c *Context) SetLogin(s State) error {
	if err := c.store.Save(s); err != nil {
		return errors.Wrap(err, "save session")
	}
	c.apply(s)
	log.Info().Str("email", s.Email).Bool("offline", s.Offline).Msg("logged in")
	return nil
}

// Clear logs out: token, email and name are dropped from memory and disk.
func (c *Context) Clear() error {
	err := c.store.Clear()
	c.apply(State{})
	if err != nil {
		return errors.Wrap(err, "clear session")
	}
	log.Info().Msg("logged out")
	return nil
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Token implements api.TokenSource.
func (c *Context) Token() string {
	return c.State().Token
}

// IsAuthenticated reports whether someone is logged in.
func (c *Context) IsAuthenticated() bool {
	return c.State().IsAuthenticated()
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (c *Context) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// apply swaps in s and notifies listeners outside the lock.
func (c *Context) apply(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
