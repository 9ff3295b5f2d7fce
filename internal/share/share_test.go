// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package share

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello world", "hello%20world"},
		{"a+b=c&d", "a%2Bb%3Dc%26d"},
		{"keep -_.!~*'()", "keep%20-_.!~*'()"},
		{"line\nbreak", "line%0Abreak"},
		{"héllo ✨", "h%C3%A9llo%20%E2%9C%A8"},
		{"#tag/100%", "%23tag%2F100%25"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeURIComponent(tt.in))
		})
	}
}

func TestURL(t *testing.T) {
	u, ok := URL(Twitter, "Hi there!")
	require.True(t, ok)
	assert.Equal(t, "https://twitter.com/intent/tweet?text=Hi%20there!", u)

	u, ok = URL("WhatsApp", "x")
	require.True(t, ok)
	assert.Equal(t, "https://api.whatsapp.com/send?text=x", u)

	for _, p := range Platforms() {
		_, ok := URL(p, "x")
		assert.True(t, ok, p)
	}

	_, ok = URL("myspace", "x")
	assert.False(t, ok)
}

func TestSharerUnknownPlatformIsNoop(t *testing.T) {
	var opened []string
	s := &Sharer{Open: func(u string) error {
		opened = append(opened, u)
		return nil
	}}

	ok, err := s.Share("myspace", "content")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, opened)

	ok, err = s.Share(Facebook, "content")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"https://www.facebook.com/sharer/sharer.php?quote=content"}, opened)
}

func TestSharerOpenError(t *testing.T) {
	s := &Sharer{Open: func(string) error { return errors.New("no browser") }}
	ok, err := s.Share(LinkedIn, "x")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestCopierPrimary(t *testing.T) {
	var got string
	var term bytes.Buffer
	c := &Copier{write: func(s string) error { got = s; return nil }, terminal: &term}

	m, err := c.Copy("verbatim\ntext ✨")
	require.NoError(t, err)
	assert.Equal(t, MethodClipboard, m)
	assert.Equal(t, "verbatim\ntext ✨", got)
	assert.Zero(t, term.Len())
}

func TestCopierFallsBackToOSC52(t *testing.T) {
	var term bytes.Buffer
	c := &Copier{write: func(string) error { return errors.New("xclip missing") }, terminal: &term}

	m, err := c.Copy("hello")
	require.NoError(t, err)
	assert.Equal(t, MethodOSC52, m)
	assert.Contains(t, term.String(), "\x1b]52;c;")
}

func TestCopierBothFail(t *testing.T) {
	c := &Copier{write: func(string) error { return errors.New("xclip missing") }}
	m, err := c.Copy("hello")
	assert.Equal(t, MethodNone, m)
	assert.ErrorIs(t, err, ErrClipboardUnavailable)
}

func TestIndicator(t *testing.T) {
	var ind Indicator
	now := time.Now()
	assert.Empty(t, ind.Text(now))

	ind.Trigger(now)
	assert.Equal(t, CopiedNotice, ind.Text(now.Add(time.Second)))
	assert.Empty(t, ind.Text(now.Add(NoticeDuration)))
}
