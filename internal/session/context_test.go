// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	store := NewFileStore(path)

	s, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, State{}, s)

	want := State{Token: "tok", Email: "a@gmail.com", Name: "A"}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))
	_, err := NewFileStore(path).Load()
	require.Error(t, err)
}

func TestContext_HydrateAndClear(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.Save(State{Token: "tok", Email: "a@gmail.com"}))

	sess := New(store)
	assert.False(t, sess.IsAuthenticated())
	require.NoError(t, sess.Hydrate())
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "tok", sess.Token())

	require.NoError(t, sess.Clear())
	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Token())

	persisted, _ := store.Load()
	assert.Equal(t, State{}, persisted)
}

func TestContext_Subscribe(t *testing.T) {
	sess := New(nil)

	var seen []State
	unsubscribe := sess.Subscribe(func(s State) { seen = append(seen, s) })

	require.NoError(t, sess.SetLogin(State{Token: "t1", Email: "a@gmail.com"}))
	require.NoError(t, sess.SetLogin(State{Token: "t1", Email: "a@gmail.com"}))
	require.Len(t, seen, 1, "unchanged state must not notify")

	unsubscribe()
	unsubscribe()
	require.NoError(t, sess.Clear())
	assert.Len(t, seen, 1)
}

func TestState_Offline(t *testing.T) {
	assert.True(t, State{Offline: true, Email: "a@gmail.com"}.IsAuthenticated())
	assert.False(t, State{Offline: true}.IsAuthenticated())
	assert.Equal(t, "a@gmail.com", State{Email: "a@gmail.com"}.DisplayName())
	assert.Equal(t, "Sara", State{Email: "a@gmail.com", Name: "Sara"}.DisplayName())
}

func TestContext_WatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	sess := New(NewFileStore(path))

	var changes atomic.Int32
	sess.Subscribe(func(State) { changes.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sess.WatchFile(ctx, path) }()

	// Another process logs in.
	other := NewFileStore(path)
	require.Eventually(t, func() bool {
		_ = other.Save(State{Token: "from-other", Email: "b@gmail.com"})
		return sess.Token() == "from-other"
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, changes.Load(), int32(1))

	require.Eventually(t, func() bool {
		_ = other.Clear()
		return sess.Token() == ""
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
