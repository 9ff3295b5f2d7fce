// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Unlimited is the credits label for plans without a limit.
const Unlimited = "∞"

// =============================================================================
// IDENTIFIERS AND TIMESTAMPS
// =============================================================================

// ID is an opaque record id. The backend sends integers; strings are
// accepted as well.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the id text.
func (id ID) String() string { return string(id) }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTime parses the timestamp formats the backend emits. Unparseable
// input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Credentials is the login and register request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by /api/login. Deployments differ in the name
// of the token field.
type LoginResponse struct {
	AccessToken      string `json:"access_token"`
	Token            string `json:"token"`
	AccessTokenCamel string `json:"accessToken"`
	TokenType        string `json:"token_type"`
	Email            string `json:"email"`
	Name             string `json:"name"`
}

// BearerToken returns whichever token field is set.
func (r *LoginResponse) BearerToken() string {
	for _, t := range []string{r.AccessToken, r.Token, r.AccessTokenCamel} {
		if t != "" {
			return t
		}
	}
	return ""
}

// RegisterResponse is returned by /api/register.
type RegisterResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// UserInfo is returned by /api/me.
type UserInfo struct {
	Email           string   `json:"email"`
	Plan            string   `json:"plan"`
	CreditRemaining *float64 `json:"credit_remaining"`
}

// IsUnlimited reports whether the plan has no credit limit.
func (u *UserInfo) IsUnlimited() bool {
	return u == nil || u.CreditRemaining == nil
}

// CreditsLabel renders the remaining credits, or Unlimited.
func (u *UserInfo) CreditsLabel() string {
	if u.IsUnlimited() {
		return Unlimited
	}
	return strconv.FormatFloat(*u.CreditRemaining, 'f', -1, 64)
}

// Profile is returned by GET /api/profile.
type Profile struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

// ProfileUpdate is the PUT /api/profile body. An empty password keeps the
// current one.
type ProfileUpdate struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// PlanInfo describes one plan from /api/plans.
type PlanInfo struct {
	Credits *float64 `json:"credits"`
	Price   string   `json:"price,omitempty"`
}

// Plans maps plan name to its details.
type Plans map[string]PlanInfo

// DefaultPlans is used when the backend does not publish plan metadata.
func DefaultPlans() Plans {
	credits := func(n float64) *float64 { return &n }
	return Plans{
		"free":     {Credits: credits(10)},
		"starter":  {Credits: credits(500)},
		"pro":      {Credits: credits(2500)},
		"flexible": {},
	}
}

// =============================================================================
// POSTS
// =============================================================================

// Post is a saved conversation as stored by the backend.
type Post struct {
	ID        ID              `json:"id"`
	Title     string          `json:"title"`
	Messages  json.RawMessage `json:"messages"`
	CreatedAt string          `json:"created_at"`
}

// MessagesPayload returns the JSON-encoded message list. The backend
// normally sends it as a string; an inline array is passed through.
func (p *Post) MessagesPayload() string {
	raw := bytes.TrimSpace(p.Messages)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// Created parses CreatedAt.
func (p *Post) Created() time.Time {
	return ParseTime(p.CreatedAt)
}

// PostUpdate is the PUT /api/posts/{id} body. Nil fields are left alone.
type PostUpdate struct {
	Title    *string `json:"title,omitempty"`
	Messages *string `json:"messages,omitempty"`
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerateRequest is the /api/generate_stream body. A nil PostID starts a
// new conversation.
type GenerateRequest struct {
	Prompt string  `json:"prompt"`
	PostID *string `json:"post_id"`
}

// FastRequest is the /api/generate_fast body.
type FastRequest struct {
	Prompt   string `json:"prompt"`
	ChatName string `json:"chat_name,omitempty"`
}

// FastResponse is the /api/generate_fast result; exactly one field is set.
type FastResponse struct {
	Output string `json:"output"`
	Error  string `json:"error"`
}

// ImageRequest is the /api/generate_image body.
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// ImageResponse is the /api/generate_image result.
type ImageResponse struct {
	ImageURL      string `json:"imageUrl"`
	ImageURLSnake string `json:"image_url"`
	URL           string `json:"url"`
}

// Reference returns the image reference from whichever field is set.
func (r *ImageResponse) Reference() string {
	for _, u := range []string{r.ImageURL, r.ImageURLSnake, r.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}
