// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/model"
	"github.com/jeranaias/scribe-tui/internal/share"
	"github.com/jeranaias/scribe-tui/internal/util"
)

// lowCredits is the threshold below which the balance is highlighted.
const lowCredits = 5

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the active conversation, or the welcome screen
// when there is none.
func (m Model) renderTranscript() string {
	conv := m.snap.Active
	if conv == nil || len(conv.Messages) == 0 {
		return m.renderWelcome()
	}

	var b strings.Builder
	last := len(conv.Messages) - 1
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, i == last))
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message, last bool) string {
	var b strings.Builder
	if msg.IsUser() {
		b.WriteString(m.theme.UserLabel.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		b.WriteString(m.theme.UserText.Width(m.viewport.Width).Render(msg.Content))
		return b.String()
	}

	b.WriteString(m.theme.AssistantLabel.Render(msg.Role.DisplayName()))
	b.WriteString("\n")
	switch {
	case last && m.snap.Loading && msg.Content == "":
		b.WriteString(m.spinner.View() + " Generating...")
	case msg.Content == conversation.FailureMarker:
		b.WriteString(m.theme.Failure.Render(msg.Content))
	default:
		// The reply still streaming in is not worth caching.
		b.WriteString(m.md.Render(msg.Content, !(last && m.snap.Loading)))
	}
	if msg.HasImage() {
		b.WriteString("\n")
		b.WriteString(m.theme.ImageRef.Render("🖼  " + msg.ImageURL))
	}
	if last && m.snap.ImageOffered {
		b.WriteString("\n")
		b.WriteString(m.theme.ModalHint.Render("Press ctrl+g to generate an image for this reply, esc to skip."))
	}
	return b.String()
}

func (m Model) renderWelcome() string {
	ct := model.ContentTypes[m.contentType]

	var b strings.Builder
	b.WriteString(m.theme.Welcome.Render("What would you like to write today?"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.PromptLabel.Render(ct.Name + " ideas"))
	for _, s := range ct.Samples {
		b.WriteString("\n")
		b.WriteString(m.theme.Sample.Width(m.viewport.Width).Render("• " + s))
	}
	b.WriteString("\n\n")
	b.WriteString(m.theme.ModalHint.Render("ctrl+t switches the content type, ctrl+o fills in a sample."))
	return b.String()
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) render() string {
	if !m.ready {
		return "Loading..."
	}

	var body string
	switch sw := m.theme.SidebarWidth(); {
	case sw == 0 && m.mode == modeSidebar:
		body = m.renderSidebar(m.width, m.bodyHeight()+promptHeight)
	case sw == 0:
		body = m.renderMain()
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderSidebar(sw, m.bodyHeight()+promptHeight),
			m.renderMain(),
		)
	}

	screen := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
	)

	if overlay := m.renderOverlay(); overlay != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
	}
	return screen
}

func (m Model) renderMain() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Transcript.Width(m.transcriptWidth()).Height(m.bodyHeight()).Render(m.viewport.View()),
		m.renderPrompt(),
	)
}

func (m Model) renderHeader() string {
	parts := []string{m.theme.HeaderBrand.Render("Scribe")}

	acct := m.snap.Account
	if m.user != "" {
		parts = append(parts, m.theme.HeaderMeta.Render(m.user))
	}
	if acct.Plan != "" {
		parts = append(parts, m.theme.HeaderMeta.Render("plan: "+acct.Plan))
	}
	if acct.Email != "" || acct.Plan != "" {
		credits := m.theme.Credits
		if !acct.IsUnlimited() && *acct.CreditRemaining < lowCredits {
			credits = m.theme.CreditsLow
		}
		parts = append(parts, credits.Render("credits: "+acct.CreditsLabel()))
	}
	if m.snap.Stale {
		parts = append(parts, m.theme.StatusAlert.Render("offline"))
	}
	return m.theme.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderSidebar(width, height int) string {
	style := m.theme.Sidebar
	if m.mode == modeSidebar {
		style = m.theme.SidebarFocused
	}
	inner := max(width-4, 4)

	lines := []string{m.theme.SidebarTitle.Render("My Chats")}
	if len(m.snap.History) == 0 {
		lines = append(lines, m.theme.SidebarEmpty.Width(inner).Render(EmptyHistoryText))
		return style.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
	}

	rows := max(height-3, 1)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.snap.History))

	for i := start; i < end; i++ {
		c := m.snap.History[i]
		title := util.TruncateWidth(util.SingleLine(c.DisplayTitle()), inner-2)
		item := m.theme.SidebarItem
		switch {
		case m.mode == modeSidebar && i == m.cursor:
			item = m.theme.SidebarSelected
		case m.snap.Active != nil && m.snap.Active.Ref.Is(c.Ref.ID()):
			item = m.theme.SidebarActive
		}
		lines = append(lines, item.Render(title))
	}
	return style.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderPrompt() string {
	tabs := make([]string, 0, len(model.ContentTypes))
	for i, ct := range model.ContentTypes {
		if i == m.contentType {
			tabs = append(tabs, m.theme.ContentTabActive.Render(ct.Name))
		} else {
			tabs = append(tabs, m.theme.ContentTab.Render(ct.Name))
		}
	}
	tabRow := util.TruncateWidth(strings.Join(tabs, " "), max(m.transcriptWidth()-2, 1))
	return m.theme.PromptContainer.Width(m.transcriptWidth() - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, tabRow, m.input.View()),
	)
}

func (m Model) renderStatus() string {
	var left string
	switch {
	case m.snap.Loading:
		left = m.spinner.View() + " Generating..."
	case m.snap.Deleting:
		left = "Deleting chat..."
	case m.status != "" && m.statusAlert:
		left = m.theme.StatusAlert.Render(m.status)
	case m.status != "":
		left = m.status
	}
	if n := m.notice.Text(time.Now()); n != "" {
		left = strings.TrimSpace(left + "  " + m.theme.Notice.Render(n))
	}

	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderOverlay() string {
	switch m.mode {
	case modeConfirmDelete:
		title := ""
		for _, c := range m.snap.History {
			if c.Ref.Is(m.snap.PendingDelete) {
				title = c.DisplayTitle()
			}
		}
		return m.theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.theme.ModalDanger.Render("Delete chat"),
			util.TruncateWidth(title, 40),
			"",
			lipgloss.NewStyle().Width(48).Render(DeleteConfirmText),
			"",
			m.theme.ModalHint.Render("y delete · n cancel"),
		))

	case modeRename:
		return m.theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.theme.ModalTitle.Render("Rename chat"),
			m.rename.View(),
			"",
			m.theme.ModalHint.Render("enter save · esc cancel"),
		))

	case modeShare:
		lines := []string{m.theme.ModalTitle.Render("Share reply")}
		for i, p := range share.Platforms() {
			lines = append(lines, fmt.Sprintf("%d  %s", i+1, p))
		}
		lines = append(lines, "", m.theme.ModalHint.Render("esc cancel"))
		return m.theme.Modal.Render(strings.Join(lines, "\n"))

	case modePlans:
		return m.theme.Modal.Render(m.renderPlans())

	case modeHelp:
		return m.theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.theme.ModalTitle.Render("Keys"),
			m.help.FullHelpView(m.keys.FullHelp()),
			"",
			m.theme.ModalHint.Render("esc close"),
		))
	}
	return ""
}

func (m Model) renderPlans() string {
	lines := []string{m.theme.ModalTitle.Render("Plans")}
	if m.plansErr != nil {
		lines = append(lines, m.theme.StatusAlert.Render("Could not load plans: "+api.Message(m.plansErr)))
	}
	if m.plans == nil && m.plansErr == nil {
		lines = append(lines, "Loading...")
	}

	names := make([]string, 0, len(m.plans))
	for name := range m.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, m.theme.PlanName.Render(name)+" "+m.theme.PlanCredits.Render(planLabel(m.plans[name])))
	}
	if m.snap.Account.Plan != "" {
		lines = append(lines, "", "Current plan: "+m.snap.Account.Plan)
	}
	lines = append(lines, "", m.theme.ModalHint.Render("esc close"))
	return strings.Join(lines, "\n")
}

// planLabel formats a plan's credits and price.
func planLabel(p api.PlanInfo) string {
	credits := api.Unlimited
	if p.Credits != nil {
		credits = fmt.Sprintf("%g", *p.Credits)
	}
	label := credits + " credits"
	if p.Price != "" {
		label += " · " + p.Price
	}
	return label
}
