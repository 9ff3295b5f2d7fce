// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the scribe TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The "light" and "dark" themes pin the background instead.

# Color System (colors.go)

  - Purple - Brand accent, assistant replies, selections
  - Cyan - User prompts, focus rings
  - Emerald - Success states, the "Copied!" notice
  - Amber - Warnings, credit counter when low
  - Rose - Errors, destructive confirmations

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	sidebar := theme.Sidebar.Width(theme.SidebarWidth())
*/
package styles
