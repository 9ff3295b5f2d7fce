// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/scribe-tui/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_AddVerify(t *testing.T) {
	reg := openTestDB(t).Accounts()

	require.NoError(t, reg.Add("Sara@Gmail.com", "password1"))
	ok, err := reg.Exists("sara@gmail.com")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, reg.Verify("sara@gmail.com", "password1"))
	assert.True(t, errors.Is(reg.Verify("sara@gmail.com", "wrong"), ErrInvalidCredentials))
	assert.True(t, errors.Is(reg.Verify("nobody@gmail.com", "x"), ErrAccountNotFound))

	assert.True(t, errors.Is(reg.Add("sara@gmail.com", "other"), ErrAccountExists))
}

func TestRegistry_StoresHashNotPassword(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Accounts().Add("a@gmail.com", "password1"))

	var hash string
	require.NoError(t, db.db.QueryRow(`SELECT password_hash FROM accounts`).Scan(&hash))
	assert.NotEqual(t, "password1", hash)
	assert.NotContains(t, hash, "password1")
}

func TestRegistry_SetPassword(t *testing.T) {
	reg := openTestDB(t).Accounts()
	require.NoError(t, reg.Add("a@gmail.com", "password1"))
	require.NoError(t, reg.SetPassword("a@gmail.com", "password2"))
	assert.NoError(t, reg.Verify("a@gmail.com", "password2"))
	assert.Error(t, reg.Verify("a@gmail.com", "password1"))

	assert.True(t, errors.Is(reg.SetPassword("b@gmail.com", "x"), ErrAccountNotFound))
}

func TestRegistry_UpsertAndRename(t *testing.T) {
	reg := openTestDB(t).Accounts()
	require.NoError(t, reg.Upsert("a@gmail.com", "password1"))
	require.NoError(t, reg.Upsert("a@gmail.com", "password2"))
	assert.NoError(t, reg.Verify("a@gmail.com", "password2"))

	require.NoError(t, reg.Rename("a@gmail.com", "b@gmail.com"))
	assert.NoError(t, reg.Verify("b@gmail.com", "password2"))
	ok, _ := reg.Exists("a@gmail.com")
	assert.False(t, ok)
}

// =============================================================================
// CONVERSATION CACHE TESTS
// =============================================================================

func TestConversationCache_ReplaceAndList(t *testing.T) {
	cache := openTestDB(t).Conversations()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	convs := []*model.Conversation{
		{Ref: model.ExistingRef("9"), Title: "Newest", CreatedAt: created,
			Messages: []model.Message{model.NewUserMessage("hi"), {Role: model.RoleAssistant, Content: "hello", ImageURL: "u"}}},
		{Ref: model.ExistingRef("3"), Title: "Older", CreatedAt: created},
		model.NewConversation("unsaved"),
	}
	require.NoError(t, cache.Replace(convs))

	got, err := cache.List()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "9", got[0].Ref.ID())
	assert.Equal(t, "3", got[1].Ref.ID())
	assert.Equal(t, convs[0].Messages, got[0].Messages)
	assert.Empty(t, got[1].Messages)
	assert.True(t, created.Equal(got[0].CreatedAt))

	require.NoError(t, cache.Replace(convs[1:2]))
	got, err = cache.List()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Older", got[0].Title)
}

func TestConversationCache_Search(t *testing.T) {
	cache := openTestDB(t).Conversations()
	require.NoError(t, cache.Replace([]*model.Conversation{
		{Ref: model.ExistingRef("1"), Title: "Amlou launch", Messages: []model.Message{model.NewUserMessage("post")}},
		{Ref: model.ExistingRef("2"), Title: "Email", Messages: []model.Message{model.NewUserMessage("Weekend DISCOUNT")}},
	}))

	got, err := cache.Search("amlou")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Ref.ID())

	got, err = cache.Search("discount")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Ref.ID())

	require.NoError(t, cache.Clear())
	got, err = cache.List()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Accounts().Add("a@gmail.com", "password1"))
}
