// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen dashboard: the conversation
// sidebar, the transcript, the prompt with its content-type selector, and
// the rename, delete, share and plans overlays.
//
// The model never mutates conversations itself. Every change goes through
// the conversation manager; the view re-reads a snapshot whenever the
// manager reports a change, at most about thirty times a second.
package chat
