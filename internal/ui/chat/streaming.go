// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/scribe-tui/internal/conversation"
)

// =============================================================================
// RENDER THROTTLE
// =============================================================================

// RenderThrottle coalesces manager change notifications so the transcript
// is re-rendered at a capped frame rate while a reply streams in. A stream
// can deliver hundreds of fragments per second; rendering each one makes
// the terminal flicker and burns CPU.
//
// Mark is called from the manager's goroutines; Flush from the Bubble Tea
// loop.
type RenderThrottle struct {
	mu        sync.Mutex
	dirty     bool
	marks     int
	lastFlush time.Time

	maxFPS   int
	interval time.Duration
}

// NewRenderThrottle returns a throttle capped at 30 frames per second.
func NewRenderThrottle() *RenderThrottle {
	return NewRenderThrottleWithFPS(30)
}

// NewRenderThrottleWithFPS returns a throttle capped at maxFPS, which is
// clamped to 1-60.
func NewRenderThrottleWithFPS(maxFPS int) *RenderThrottle {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}
	return &RenderThrottle{
		maxFPS:   maxFPS,
		interval: time.Second / time.Duration(maxFPS),
	}
}

// Mark records that the state changed.
func (rt *RenderThrottle) Mark() {
	rt.mu.Lock()
	rt.dirty = true
	rt.marks++
	rt.mu.Unlock()
}

// Flush reports whether a render is due at now and, if so, clears the
// pending mark.
func (rt *RenderThrottle) Flush(now time.Time) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.dirty || now.Sub(rt.lastFlush) < rt.interval {
		return false
	}
	rt.clearLocked(now)
	return true
}

// ForceFlush reports whether anything is pending and clears it regardless
// of timing. Used when a generation ends so the final text is never held
// back.
func (rt *RenderThrottle) ForceFlush(now time.Time) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.dirty {
		return false
	}
	rt.clearLocked(now)
	return true
}

func (rt *RenderThrottle) clearLocked(now time.Time) {
	rt.dirty = false
	rt.marks = 0
	rt.lastFlush = now
}

// Wait returns how long until a flush would be allowed.
func (rt *RenderThrottle) Wait(now time.Time) time.Duration {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if d := rt.interval - now.Sub(rt.lastFlush); d > 0 {
		return d
	}
	return 0
}

// Pending returns the number of marks since the last flush.
func (rt *RenderThrottle) Pending() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.marks
}

// MaxFPS returns the frame cap.
func (rt *RenderThrottle) MaxFPS() int {
	return rt.maxFPS
}

// streamTickCmd schedules the next throttle tick after d.
func streamTickCmd(d time.Duration) tea.Cmd {
	if d <= 0 {
		d = time.Millisecond
	}
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// =============================================================================
// EVENT BRIDGE
// =============================================================================

// eventBridge turns manager callbacks into Bubble Tea messages. Change
// notifications collapse into a single pending wake-up; alerts and
// redirects are queued.
type eventBridge struct {
	throttle *RenderThrottle
	wake     chan struct{}
	events   chan conversation.Event
	unsub    func()
}

func newEventBridge(mgr *conversation.Manager, throttle *RenderThrottle) *eventBridge {
	b := &eventBridge{
		throttle: throttle,
		wake:     make(chan struct{}, 1),
		events:   make(chan conversation.Event, 16),
	}
	b.unsub = mgr.Subscribe(b.handle)
	return b
}

func (b *eventBridge) handle(ev conversation.Event) {
	if ev.Kind == conversation.EventChanged {
		b.throttle.Mark()
		select {
		case b.wake <- struct{}{}:
		default:
		}
		return
	}
	select {
	case b.events <- ev:
	default:
		log.Warn().Str("message", ev.Message).Msg("dropping manager event; UI is not keeping up")
	}
}

func (b *eventBridge) waitForWake() tea.Cmd {
	return func() tea.Msg {
		<-b.wake
		return wakeMsg{}
	}
}

func (b *eventBridge) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return managerEventMsg{Event: <-b.events}
	}
}

func (b *eventBridge) close() {
	if b.unsub != nil {
		b.unsub()
	}
}
