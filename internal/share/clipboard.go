// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package share

import (
	"io"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// CopiedNotice is the transient indicator shown after a copy.
	CopiedNotice = "Copied!"

	// NoticeDuration is how long CopiedNotice stays visible.
	NoticeDuration = 2 * time.Second
)

// ErrClipboardUnavailable is returned when no copy mechanism worked.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Method identifies which mechanism performed a copy.
type Method int

const (
	MethodNone Method = iota
	MethodClipboard
	MethodOSC52
)

func (m Method) String() string {
	switch m {
	case MethodClipboard:
		return "clipboard"
	case MethodOSC52:
		return "osc52"
	default:
		return "none"
	}
}

// Copier writes text to the system clipboard, falling back to an OSC 52
// terminal escape sequence when no clipboard utility is present.
type Copier struct {
	write    func(string) error
	terminal io.Writer
}

// NewCopier returns a Copier whose fallback writes to terminal. A nil
// terminal disables the fallback.
func NewCopier(terminal io.Writer) *Copier {
	write := clipboard.WriteAll
	if clipboard.Unsupported {
		write = func(string) error { return errors.New("no clipboard utility found") }
	}
	return &Copier{write: write, terminal: terminal}
}

// Copy copies text verbatim.
func (c *Copier) Copy(text string) (Method, error) {
	primary := c.write(text)
	if primary == nil {
		return MethodClipboard, nil
	}

	if c.terminal == nil {
		log.Warn().Err(primary).Msg("copy failed")
		return MethodNone, errors.Wrap(ErrClipboardUnavailable, primary.Error())
	}
	termenv.NewOutput(c.terminal).Copy(text)
	log.Debug().Err(primary).Msg("clipboard unavailable; used OSC 52")
	return MethodOSC52, nil
}

// =============================================================================
// INDICATOR
// =============================================================================

// Indicator tracks the visibility of CopiedNotice.
type Indicator struct {
	mu    sync.Mutex
	until time.Time
}

// Trigger shows the notice for NoticeDuration from now.
func (i *Indicator) Trigger(now time.Time) {
	i.mu.Lock()
	i.until = now.Add(NoticeDuration)
	i.mu.Unlock()
}

// Text returns CopiedNotice while the notice is visible, else "".
func (i *Indicator) Text(now time.Time) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if now.Before(i.until) {
		return CopiedNotice
	}
	return ""
}
