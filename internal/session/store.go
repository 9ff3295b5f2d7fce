// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/jeranaias/scribe-tui/internal/util"
)

// FileName is the session file inside the data directory.
const FileName = "session.json"

// State is the persisted login state.
type State struct {
	Token   string `json:"token,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Offline bool   `json:"offline,omitempty"`
}

// IsAuthenticated reports whether someone is logged in, online or offline.
func (s State) IsAuthenticated() bool {
	return s.Token != "" || (s.Offline && s.Email != "")
}

// DisplayName returns the name, falling back to the email.
func (s State) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

// Store persists a State.
type Store interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps the state in a 0600 JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the file. A missing file is an empty state.
func (f *FileStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, errors.Wrap(err, "read session")
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, errors.Wrap(err, "parse session")
	}
	return s, nil
}

// Save writes the file atomically.
func (f *FileStore) Save(s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return util.AtomicWriteFile(f.path, data, 0o600)
}

// Clear removes the file.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove session")
	}
	return nil
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps the state in memory. Useful for tests and one-shot
// commands that must not touch disk.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// Load implements Store.
func (m *MemoryStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Save implements Store.
func (m *MemoryStore) Save(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	return nil
}
