// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
)

// maxRenderCache bounds the number of rendered replies kept.
const maxRenderCache = 256

// markdownRenderer renders assistant replies with glamour and caches the
// output of finished replies.
type markdownRenderer struct {
	style string
	width int
	r     *glamour.TermRenderer
	cache map[string]string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style, width: 80, cache: make(map[string]string)}
}

// SetWidth changes the wrap width, invalidating the cache.
func (mr *markdownRenderer) SetWidth(width int) {
	if width == mr.width && mr.r != nil {
		return
	}
	mr.width = width
	mr.r = nil
	mr.cache = make(map[string]string)
}

// Render renders content. Cacheable output is remembered; streaming
// replies change every frame and are not cached.
func (mr *markdownRenderer) Render(content string, cacheable bool) string {
	if out, ok := mr.cache[content]; ok {
		return out
	}
	if mr.r == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(mr.style),
			glamour.WithWordWrap(mr.width),
		)
		if err != nil {
			log.Debug().Err(err).Msg("markdown renderer unavailable")
			return content
		}
		mr.r = r
	}

	out, err := mr.r.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	if cacheable {
		if len(mr.cache) >= maxRenderCache {
			mr.cache = make(map[string]string)
		}
		mr.cache[content] = out
	}
	return out
}
