// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/scribe-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

// The line-mode commands use the dashboard palette so both surfaces look
// alike.
var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(styles.Purple)
	LabelStyle     = lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(14)
	SuccessStyle   = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	WarningStyle   = lipgloss.NewStyle().Foreground(styles.Amber)
	DimStyle       = lipgloss.NewStyle().Foreground(styles.TextMuted)
	PromptStyle    = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	SeparatorStyle = lipgloss.NewStyle().Foreground(styles.OverlayDim)
)

// RenderSeparator renders a horizontal rule; non-positive widths use 60.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 60
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}

// RenderLabel renders a fixed-width label.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
