// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/model"
)

// ImageOffered reports whether the last reply offered an image.
func (m *Manager) ImageOffered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageOffered
}

// DismissImageOffer clears the offer without generating.
func (m *Manager) DismissImageOffer() {
	m.mu.Lock()
	had := m.imageOffered
	m.imageOffered = false
	m.mu.Unlock()
	if had {
		m.changed()
	}
}

// GenerateImageForLastMessage requests an image for the last message of
// the active conversation, which must be a generated reply. The image is
// attached by position to that message and the transcript is saved. The
// offer is consumed whether or not the request succeeds.
func (m *Manager) GenerateImageForLastMessage(ctx context.Context) error {
	m.mu.Lock()
	if m.loading || m.deleting {
		m.mu.Unlock()
		return ErrBusy
	}
	conv := m.active
	if conv == nil {
		m.mu.Unlock()
		return ErrNoActiveConversation
	}
	last, ok := conv.Last()
	if !ok || !last.IsAssistant() {
		m.mu.Unlock()
		return ErrNoAssistantMessage
	}
	idx := len(conv.Messages) - 1
	m.imageOffered = false
	m.loading = true
	m.mu.Unlock()

	m.changed()
	defer m.finishLoading()

	url, err := m.backend.GenerateImage(ctx, last.Content)
	if err != nil {
		m.log.Warn().Err(err).Str("conversation", conv.Ref.String()).Msg("image generation failed")
		m.alert("Image generation failed: " + api.Message(err))
		return errors.Wrap(err, "generate image")
	}

	m.mu.Lock()
	if idx < len(conv.Messages) {
		conv.Messages[idx].ImageURL = url
	}
	ref := conv.Ref
	if !ref.IsNew() {
		if _, h := m.findLocked(ref.ID()); h != nil && idx < len(h.Messages) {
			h.Messages[idx].ImageURL = url
		}
	}
	payload, encErr := model.EncodeMessages(conv.Messages)
	m.mu.Unlock()
	m.changed()

	if ref.IsNew() {
		return nil
	}
	if encErr != nil {
		return encErr
	}
	if err := m.backend.SavePostMessages(ctx, ref.ID(), payload); err != nil {
		m.log.Warn().Err(err).Str("conversation", ref.ID()).Msg("failed to save image to conversation")
		m.alert("The image was generated but could not be saved.")
		return errors.Wrap(err, "save conversation")
	}
	return nil
}
