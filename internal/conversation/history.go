// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/model"
)

// =============================================================================
// LIST
// =============================================================================

// LoadConversations replaces the history with the server's list. On
// failure the history is left as it was; an empty history is filled from
// the offline cache when one is configured. The error is returned for
// callers that want it; views may ignore it.
func (m *Manager) LoadConversations(ctx context.Context) error {
	posts, err := m.backend.ListPosts(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to load conversations")
		m.fallbackToCache()
		return errors.Wrap(err, "load conversations")
	}

	convs := m.fromPosts(posts)

	m.mu.Lock()
	m.history = convs
	m.stale = false
	if !m.loading && m.active != nil && !m.active.Ref.IsNew() {
		if _, c := m.findLocked(m.active.Ref.ID()); c == nil {
			m.active = nil
		}
	}
	cached := make([]*model.Conversation, len(convs))
	for i, c := range convs {
		cached[i] = c.Clone()
	}
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.Replace(cached); err != nil {
			m.log.Warn().Err(err).Msg("failed to update conversation cache")
		}
	}
	m.changed()
	return nil
}

// fromPosts converts server records, dropping duplicate ids (first wins).
func (m *Manager) fromPosts(posts []api.Post) []*model.Conversation {
	seen := make(map[string]bool, len(posts))
	out := make([]*model.Conversation, 0, len(posts))
	for _, p := range posts {
		id := strings.TrimSpace(p.ID.String())
		if id == "" {
			m.log.Warn().Msg("skipping conversation without id")
			continue
		}
		if seen[id] {
			m.log.Debug().Str("conversation", id).Msg("skipping duplicate conversation")
			continue
		}
		seen[id] = true

		msgs, err := model.DecodeMessages(p.MessagesPayload())
		if err != nil {
			m.log.Warn().Err(err).Str("conversation", id).Msg("unreadable transcript")
			msgs = []model.Message{}
		}
		out = append(out, &model.Conversation{
			Ref:       model.ExistingRef(id),
			Title:     p.Title,
			Messages:  msgs,
			CreatedAt: p.Created(),
		})
	}
	return out
}

func (m *Manager) fallbackToCache() {
	if m.cache == nil {
		return
	}
	m.mu.Lock()
	empty := len(m.history) == 0
	m.mu.Unlock()
	if !empty {
		return
	}

	cached, err := m.cache.List()
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to read conversation cache")
		return
	}
	if len(cached) == 0 {
		return
	}

	m.mu.Lock()
	if len(m.history) == 0 {
		m.history = cached
		m.stale = true
	}
	m.mu.Unlock()
	m.log.Info().Int("count", len(cached)).Msg("showing cached conversations")
	m.changed()
}

// =============================================================================
// SELECTION
// =============================================================================

// SelectConversation makes the history entry id active and clears the
// pending prompt. It reports false when id is unknown.
func (m *Manager) SelectConversation(id string) (bool, error) {
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return false, ErrBusy
	}
	_, c := m.findLocked(id)
	if c == nil {
		m.mu.Unlock()
		return false, nil
	}
	m.active = c.Clone()
	m.prompt = ""
	m.imageOffered = false
	m.mu.Unlock()

	m.changed()
	return true, nil
}

// StartNewConversation clears the active conversation and the prompt. The
// history is untouched.
func (m *Manager) StartNewConversation() error {
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return ErrBusy
	}
	m.active = nil
	m.prompt = ""
	m.imageOffered = false
	m.mu.Unlock()

	m.changed()
	return nil
}

// =============================================================================
// RENAME
// =============================================================================

// RenameConversation sets a new title. The server is updated first; local
// state changes only if it accepted.
func (m *Manager) RenameConversation(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	m.mu.Lock()
	_, c := m.findLocked(id)
	m.mu.Unlock()
	if c == nil {
		return errors.Wrap(ErrUnknownConversation, id)
	}

	if err := m.backend.RenamePost(ctx, id, title); err != nil {
		m.log.Warn().Err(err).Str("conversation", id).Msg("rename failed")
		return errors.Wrap(err, "rename conversation")
	}

	m.mu.Lock()
	if _, c := m.findLocked(id); c != nil {
		c.Title = title
	}
	if m.active != nil && m.active.Ref.Is(id) {
		m.active.Title = title
	}
	m.mu.Unlock()

	m.log.Info().Str("conversation", id).Msg("conversation renamed")
	m.changed()
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// RequestDelete marks id for deletion. Nothing is removed until
// ConfirmDelete.
func (m *Manager) RequestDelete(id string) error {
	m.mu.Lock()
	_, c := m.findLocked(id)
	if c == nil {
		m.mu.Unlock()
		return errors.Wrap(ErrUnknownConversation, id)
	}
	m.pendingDelete = id
	m.mu.Unlock()

	m.changed()
	return nil
}

// CancelDelete drops the pending mark and changes nothing else.
func (m *Manager) CancelDelete() {
	m.mu.Lock()
	had := m.pendingDelete != ""
	m.pendingDelete = ""
	m.mu.Unlock()
	if had {
		m.changed()
	}
}

// PendingDelete returns the id awaiting confirmation, or "".
func (m *Manager) PendingDelete() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingDelete
}

// ConfirmDelete deletes the pending conversation on the server, refetches
// the list and clears the active conversation if it was the one deleted.
// The pending mark is cleared whatever the outcome. Without a pending id
// it does nothing. No generation can start until it returns.
func (m *Manager) ConfirmDelete(ctx context.Context) error {
	m.mu.Lock()
	id := m.pendingDelete
	if id == "" {
		m.mu.Unlock()
		return nil
	}
	if m.loading || m.deleting {
		m.mu.Unlock()
		return ErrBusy
	}
	m.deleting = true
	m.mu.Unlock()
	m.changed()

	defer func() {
		m.mu.Lock()
		m.deleting = false
		if m.pendingDelete == id {
			m.pendingDelete = ""
		}
		m.mu.Unlock()
		m.changed()
	}()

	if err := m.backend.DeletePost(ctx, id); err != nil {
		m.log.Warn().Err(err).Str("conversation", id).Msg("delete failed")
		return errors.Wrap(err, "delete conversation")
	}
	m.log.Info().Str("conversation", id).Msg("conversation deleted")

	if err := m.LoadConversations(ctx); err != nil {
		// The delete went through; drop the entry so the stale list does
		// not show it.
		m.mu.Lock()
		if i, _ := m.findLocked(id); i >= 0 {
			m.history = append(m.history[:i:i], m.history[i+1:]...)
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	if m.active != nil && m.active.Ref.Is(id) {
		m.active = nil
	}
	m.mu.Unlock()
	return nil
}
