// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/jeranaias/scribe-tui/internal/util"
)

// TitleMaxRunes is the length of a title derived from the first prompt.
const TitleMaxRunes = 30

// UntitledLabel is shown for conversations without a title.
const UntitledLabel = "Untitled Chat"

// =============================================================================
// CONVERSATION REFERENCE
// =============================================================================

// Ref identifies a conversation. The zero value is a New reference: the
// conversation exists only locally and has no server id yet.
type Ref struct {
	id string
}

// NewRef returns a reference to a conversation the server has not stored.
func NewRef() Ref {
	return Ref{}
}

// ExistingRef returns a reference to the server record with the given id.
// An empty id yields a New reference.
func ExistingRef(id string) Ref {
	return Ref{id: strings.TrimSpace(id)}
}

// IsNew reports whether the conversation is unsaved.
func (r Ref) IsNew() bool {
	return r.id == ""
}

// ID returns the server id, or "" for a New reference.
func (r Ref) ID() string {
	return r.id
}

// Is reports whether r points at the server record id.
func (r Ref) Is(id string) bool {
	return !r.IsNew() && r.id == id
}

// String renders the reference for logs and the status bar.
func (r Ref) String() string {
	if r.IsNew() {
		return "temp"
	}
	return r.id
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a titled, ordered transcript.
type Conversation struct {
	Ref       Ref
	Title     string
	Messages  []Message
	CreatedAt time.Time
}

// NewConversation creates an unsaved conversation titled after prompt.
func NewConversation(prompt string) *Conversation {
	return &Conversation{
		Ref:       NewRef(),
		Title:     DeriveTitle(prompt),
		Messages:  make([]Message, 0, 2),
		CreatedAt: time.Now(),
	}
}

// DeriveTitle returns the first TitleMaxRunes characters of prompt.
func DeriveTitle(prompt string) string {
	return util.FirstRunes(prompt, TitleMaxRunes)
}

// DisplayTitle returns the title, or UntitledLabel when it is blank.
func (c *Conversation) DisplayTitle() string {
	if c == nil || strings.TrimSpace(c.Title) == "" {
		return UntitledLabel
	}
	return c.Title
}

// Append adds messages to the end of the transcript.
func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

// Last returns the final message and whether one exists.
func (c *Conversation) Last() (Message, bool) {
	if c == nil || len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// SetLastContent replaces the content of the final message. It reports
// false when the transcript is empty.
func (c *Conversation) SetLastContent(content string) bool {
	if len(c.Messages) == 0 {
		return false
	}
	c.Messages[len(c.Messages)-1].Content = content
	return true
}

// LastAssistantContent returns the content of the final message when it
// is an assistant message.
func (c *Conversation) LastAssistantContent() (string, bool) {
	last, ok := c.Last()
	if !ok || !last.IsAssistant() {
		return "", false
	}
	return last.Content, true
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}
