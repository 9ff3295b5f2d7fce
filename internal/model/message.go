// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidRole is returned when a payload carries a role other than user
// or assistant.
var ErrInvalidRole = errors.New("invalid message role")

// ParseRole validates s as a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	}
	return "", errors.Wrapf(ErrInvalidRole, "%q", s)
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the label shown above a message.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Scribe"
	default:
		return string(r)
	}
}

// UnmarshalJSON rejects roles outside the user/assistant pair.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one entry of a conversation transcript.
type Message struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message. An empty content is the
// placeholder a stream is written into.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant reports whether the message was generated.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasImage reports whether an image has been attached.
func (m Message) HasImage() bool {
	return m.ImageURL != ""
}

// wireMessage accepts both imageUrl and image_url spellings.
type wireMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl,omitempty"`
	ImageURL2 string `json:"image_url,omitempty"`
}

// UnmarshalJSON decodes a message and validates its role.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Role == "" {
		return errors.Wrap(ErrInvalidRole, "missing role")
	}
	m.Role = w.Role
	m.Content = w.Content
	m.ImageURL = w.ImageURL
	if m.ImageURL == "" {
		m.ImageURL = w.ImageURL2
	}
	return nil
}

// =============================================================================
// PAYLOAD CODEC
// =============================================================================

// DecodeMessages parses the JSON-encoded message list stored by the backend.
// An empty payload yields an empty transcript.
func DecodeMessages(payload string) ([]Message, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "null" {
		return []Message{}, nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(payload), &msgs); err != nil {
		return nil, errors.Wrap(err, "decode message payload")
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// EncodeMessages renders msgs in the form the backend stores.
func EncodeMessages(msgs []Message) (string, error) {
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", errors.Wrap(err, "encode message payload")
	}
	return string(data), nil
}
