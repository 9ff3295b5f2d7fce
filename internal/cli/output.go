// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
)

// =============================================================================
// STREAMED REPLY OUTPUT
// =============================================================================

// replyPrinter writes a growing reply to out, printing only what is new.
// A reply that is replaced rather than extended (a failure marker, a quota
// message) is printed again on its own line.
type replyPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	printed string
	armed   bool
}

func newReplyPrinter(out io.Writer) *replyPrinter {
	return &replyPrinter{out: out}
}

// Arm starts following a new reply.
func (p *replyPrinter) Arm() {
	p.mu.Lock()
	p.printed, p.armed = "", true
	p.mu.Unlock()
}

// Disarm stops following and ends the line if anything was printed.
func (p *replyPrinter) Disarm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.armed && p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.out)
	}
	p.armed = false
}

// Update prints the part of content not yet shown.
func (p *replyPrinter) Update(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.armed || content == p.printed {
		return
	}
	if strings.HasPrefix(content, p.printed) {
		io.WriteString(p.out, content[len(p.printed):])
	} else {
		if p.printed != "" {
			fmt.Fprintln(p.out)
		}
		io.WriteString(p.out, content)
	}
	p.printed = content
}

// followManager routes manager events to the terminal: reply growth to
// printer (when non-nil), alerts and redirects to errOut.
func followManager(mgr *conversation.Manager, printer *replyPrinter, errOut io.Writer) (unsubscribe func()) {
	return mgr.Subscribe(func(ev conversation.Event) {
		switch ev.Kind {
		case conversation.EventChanged:
			if printer == nil {
				return
			}
			if text, ok := mgr.Active().LastAssistantContent(); ok {
				printer.Update(text)
			}
		case conversation.EventAlert:
			fmt.Fprintln(errOut, styles.RenderWarning(ev.Message))
		case conversation.EventRedirect:
			switch ev.Route {
			case conversation.RoutePricing:
				fmt.Fprintln(errOut, DimStyle.Render("See `scribe plans` to upgrade."))
			case conversation.RouteLogin:
				fmt.Fprintln(errOut, DimStyle.Render("Run `scribe login` to sign in again."))
			}
		}
	})
}

// =============================================================================
// MARKDOWN AND JSON
// =============================================================================

// renderMarkdown renders content for the terminal, falling back to the
// raw text.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
