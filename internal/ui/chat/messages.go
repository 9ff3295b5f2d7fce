// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/share"
)

// =============================================================================
// MANAGER EVENTS
// =============================================================================

// managerEventMsg carries an alert or redirect from the manager.
type managerEventMsg struct {
	Event conversation.Event
}

// wakeMsg means the manager state changed at least once.
type wakeMsg struct{}

// StreamTickMsg is the render throttle tick.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

type conversationsLoadedMsg struct{ Err error }

type generateDoneMsg struct{ Err error }

type renameDoneMsg struct{ Err error }

type deleteDoneMsg struct{ Err error }

type imageDoneMsg struct{ Err error }

type plansMsg struct {
	Plans api.Plans
	Err   error
}

type copyDoneMsg struct {
	Method share.Method
	Err    error
}

type shareDoneMsg struct {
	Platform share.Platform
	Opened   bool
	Err      error
}

// noticeExpiredMsg hides the "Copied!" notice.
type noticeExpiredMsg struct{}
