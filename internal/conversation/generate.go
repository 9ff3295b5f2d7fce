// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/model"
	"github.com/jeranaias/scribe-tui/internal/stream"
)

// generation is the bookkeeping for one in-flight exchange.
type generation struct {
	conv   *model.Conversation
	prompt string
	postID *string
	known  map[string]bool
	start  time.Time
}

// begin validates prompt, appends the user message and an empty assistant
// placeholder to a copy of the active conversation, makes that copy active
// and marks the manager as loading.
func (m *Manager) begin(prompt string) (*generation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	m.mu.Lock()
	if m.loading || m.deleting {
		m.mu.Unlock()
		return nil, ErrBusy
	}

	g := &generation{prompt: prompt, known: make(map[string]bool, len(m.history)), start: time.Now()}
	if m.active != nil {
		g.conv = m.active.Clone()
		if !g.conv.Ref.IsNew() {
			id := g.conv.Ref.ID()
			g.postID = &id
		}
	} else {
		g.conv = model.NewConversation(prompt)
	}
	g.conv.Append(model.NewUserMessage(prompt), model.NewAssistantMessage(""))
	for _, c := range m.history {
		g.known[c.Ref.ID()] = true
	}

	m.active = g.conv
	m.prompt = ""
	m.loading = true
	m.imageOffered = false
	m.mu.Unlock()

	m.log.Debug().Str("conversation", g.conv.Ref.String()).Msg("generation started")
	m.changed()
	return g, nil
}

// setReply replaces the placeholder content.
func (m *Manager) setReply(g *generation, text string) {
	m.mu.Lock()
	g.conv.SetLastContent(text)
	m.mu.Unlock()
	m.changed()
}

// =============================================================================
// STREAMED GENERATION
// =============================================================================

// Generate sends prompt and streams the reply into the active
// conversation. Only one generation runs at a time; a second call returns
// ErrBusy without touching state. Failures are written into the transcript
// and also returned.
func (m *Manager) Generate(ctx context.Context, prompt string) error {
	g, err := m.begin(prompt)
	if err != nil {
		return err
	}
	defer m.finishLoading()

	resp, err := m.backend.GenerateStream(ctx, api.GenerateRequest{Prompt: g.prompt, PostID: g.postID})
	if err != nil {
		return m.fail(g, err)
	}
	defer resp.Close()

	asm := stream.NewAssembler()
	if _, err := asm.Run(ctx, resp.Body, func(f stream.Fragment) {
		m.setReply(g, f.Full)
	}); err != nil {
		return m.fail(g, err)
	}

	stats := asm.Stats()
	m.log.Info().
		Str("conversation", g.conv.Ref.String()).
		Str("request_id", resp.RequestID).
		Int("chunks", stats.Chunks).
		Int64("bytes", stats.Bytes).
		Dur("ttfb", stats.TTFB()).
		Dur("duration", stats.Duration()).
		Msg("generation finished")

	m.complete(ctx, g, resp.PostID)
	return nil
}

// GenerateFast is Generate without streaming: the reply arrives in one
// piece. chatName is the selected content type and may be empty.
func (m *Manager) GenerateFast(ctx context.Context, prompt, chatName string) error {
	g, err := m.begin(prompt)
	if err != nil {
		return err
	}
	defer m.finishLoading()

	out, err := m.backend.GenerateFast(ctx, api.FastRequest{Prompt: g.prompt, ChatName: chatName})
	if err != nil {
		return m.fail(g, err)
	}
	m.setReply(g, out)
	m.log.Info().Dur("duration", time.Since(g.start)).Msg("fast generation finished")

	m.complete(ctx, g, "")
	return nil
}

// fail writes the outcome of a failed generation into the placeholder and
// raises the matching events.
func (m *Manager) fail(g *generation, err error) error {
	switch {
	case errors.Is(err, api.ErrQuotaExceeded):
		msg := api.Message(err)
		m.setReply(g, msg)
		m.log.Info().Str("conversation", g.conv.Ref.String()).Msg("generation blocked by quota")
		m.alert(msg)
		m.redirect(RoutePricing, msg)
	case errors.Is(err, api.ErrUnauthorized):
		m.setReply(g, FailureMarker)
		m.alert("Your session has expired. Please log in again.")
		m.redirect(RouteLogin, "")
	default:
		m.setReply(g, FailureMarker)
		m.log.Error().Err(err).Str("conversation", g.conv.Ref.String()).Msg("generation failed")
	}
	return errors.Wrap(err, "generate")
}

// complete refreshes account and list after a successful exchange, binds a
// new conversation to its server id and evaluates the image offer.
func (m *Manager) complete(ctx context.Context, g *generation, headerID string) {
	_ = m.RefreshAccount(ctx)
	_ = m.LoadConversations(ctx)

	m.mu.Lock()
	if g.conv.Ref.IsNew() {
		id := headerID
		if id == "" {
			var fresh []string
			for _, c := range m.history {
				if !g.known[c.Ref.ID()] {
					fresh = append(fresh, c.Ref.ID())
				}
			}
			if len(fresh) == 1 {
				id = fresh[0]
			}
		}
		if id != "" {
			g.conv.Ref = model.ExistingRef(id)
			if _, c := m.findLocked(id); c != nil && strings.TrimSpace(c.Title) != "" {
				g.conv.Title = c.Title
			}
		}
	}
	if reply, ok := g.conv.LastAssistantContent(); ok && m.offersImage(reply) {
		m.imageOffered = true
	}
	ref := g.conv.Ref
	m.mu.Unlock()

	m.log.Debug().Str("conversation", ref.String()).Msg("generation reconciled")
	m.changed()
}

func (m *Manager) offersImage(reply string) bool {
	return strings.Contains(strings.ToLower(reply), strings.ToLower(m.imageMarker))
}
