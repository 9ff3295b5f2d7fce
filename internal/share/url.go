// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package share

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Platform names a social network.
type Platform string

const (
	Facebook Platform = "facebook"
	Twitter  Platform = "twitter"
	LinkedIn Platform = "linkedin"
	WhatsApp Platform = "whatsapp"
)

var templates = map[Platform]string{
	Facebook: "https://www.facebook.com/sharer/sharer.php?quote=%s",
	Twitter:  "https://twitter.com/intent/tweet?text=%s",
	LinkedIn: "https://www.linkedin.com/sharing/share-offsite/?summary=%s",
	WhatsApp: "https://api.whatsapp.com/send?text=%s",
}

// Platforms lists the supported platforms in display order.
func Platforms() []Platform {
	return []Platform{Facebook, Twitter, LinkedIn, WhatsApp}
}

// EncodeURIComponent percent-encodes s the way JavaScript's
// encodeURIComponent does.
func EncodeURIComponent(s string) string {
	return uriReplacer.Replace(url.QueryEscape(s))
}

var uriReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// URL returns the share-intent URL for content on platform. ok is false
// for unknown platforms.
func URL(platform Platform, content string) (u string, ok bool) {
	tmpl, ok := templates[Platform(strings.ToLower(string(platform)))]
	if !ok {
		return "", false
	}
	return fmt.Sprintf(tmpl, EncodeURIComponent(content)), true
}

// Opener opens a URL in a new browser context.
type Opener func(url string) error

// Sharer opens share-intent URLs.
type Sharer struct {
	Open Opener
}

// NewSharer returns a Sharer that uses the system browser.
func NewSharer() *Sharer {
	return &Sharer{Open: OpenBrowser}
}

// Share opens the share URL for content. Unknown platforms are a no-op
// and report false.
func (s *Sharer) Share(platform Platform, content string) (bool, error) {
	u, ok := URL(platform, content)
	if !ok {
		return false, nil
	}
	if err := s.Open(u); err != nil {
		return true, errors.Wrapf(err, "open %s share", platform)
	}
	return true, nil
}

// OpenBrowser launches the platform URL handler without waiting for it.
func OpenBrowser(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "launch browser")
	}
	go cmd.Wait()
	return nil
}
