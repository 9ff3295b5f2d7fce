// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/model"
	"github.com/jeranaias/scribe-tui/internal/share"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// Each command runs one manager operation off the UI loop. Progress shows
// up through manager change events; the returned message only carries the
// outcome.

func (m Model) loadCmd() tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		_ = mgr.RefreshAccount(ctx)
		return conversationsLoadedMsg{Err: mgr.LoadConversations(ctx)}
	}
}

func (m Model) generateCmd(prompt string) tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	if m.fast {
		chatName := model.ContentTypes[m.contentType].Name
		return func() tea.Msg {
			return generateDoneMsg{Err: mgr.GenerateFast(ctx, prompt, chatName)}
		}
	}
	return func() tea.Msg {
		return generateDoneMsg{Err: mgr.Generate(ctx, prompt)}
	}
}

func (m Model) renameCmd(id, title string) tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		return renameDoneMsg{Err: mgr.RenameConversation(ctx, id, title)}
	}
}

func (m Model) deleteCmd() tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		return deleteDoneMsg{Err: mgr.ConfirmDelete(ctx)}
	}
}

func (m Model) imageCmd() tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		return imageDoneMsg{Err: mgr.GenerateImageForLastMessage(ctx)}
	}
}

func (m Model) plansCmd() tea.Cmd {
	fn, ctx := m.plansFn, m.ctx
	if fn == nil {
		return func() tea.Msg { return plansMsg{Plans: api.DefaultPlans()} }
	}
	return func() tea.Msg {
		plans, err := fn(ctx)
		return plansMsg{Plans: plans, Err: err}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	copier := m.copier
	return func() tea.Msg {
		method, err := copier.Copy(text)
		return copyDoneMsg{Method: method, Err: err}
	}
}

func (m Model) shareCmd(platform share.Platform, text string) tea.Cmd {
	sharer := m.sharer
	return func() tea.Msg {
		opened, err := sharer.Share(platform, text)
		return shareDoneMsg{Platform: platform, Opened: opened, Err: err}
	}
}
