// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/scribe-tui/internal/model"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func sampleConversation() *model.Conversation {
	return &model.Conversation{
		Ref:       model.ExistingRef("42"),
		Title:     "Launch: spring #1",
		CreatedAt: time.Date(2025, 2, 28, 9, 30, 0, 0, time.UTC),
		Messages: []model.Message{
			model.NewUserMessage("Write a tagline"),
			{Role: model.RoleAssistant, Content: "**Fresh** from the farm\n", ImageURL: "https://img.example/1.png"},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{IncludeMetadata: true, Now: fixedNow}).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"title: \"Launch: spring #1\"\n",
		"id: 42\n",
		"exported: 2025-03-01T12:00:00Z\n",
		"# Launch: spring \\#1\n",
		"### You\n\nWrite a tagline\n",
		"**Fresh** from the farm\n\n",
		"![Generated image](https://img.example/1.png)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownExport_TitleNewlineEscaped(t *testing.T) {
	conv := sampleConversation()
	conv.Title = "Test\nInjection: malicious"

	out, err := NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	for _, line := range strings.Split(string(out), "\n")[:8] {
		if strings.HasPrefix(line, "Injection:") {
			t.Error("newline in title leaked into front matter")
		}
	}
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(&Options{Now: fixedNow}).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var doc struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Messages []struct {
			Role     string `json:"role"`
			ImageURL string `json:"imageUrl"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.ID != "42" || doc.Title != "Launch: spring #1" {
		t.Errorf("unexpected header: %+v", doc)
	}
	if len(doc.Messages) != 2 || doc.Messages[1].Role != "assistant" || doc.Messages[1].ImageURL == "" {
		t.Errorf("unexpected messages: %+v", doc.Messages)
	}
}

func TestExport_Empty(t *testing.T) {
	for _, format := range Formats {
		exp, err := ForFormat(format, nil)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", format, err)
		}
		if _, err := exp.Export(&model.Conversation{}); !errors.Is(err, ErrEmptyConversation) {
			t.Errorf("%s: got %v, want ErrEmptyConversation", format, err)
		}
		if _, err := exp.Export(nil); !errors.Is(err, ErrEmptyConversation) {
			t.Errorf("%s nil: got %v, want ErrEmptyConversation", format, err)
		}
	}
	if _, err := ForFormat("html", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ToFile(sampleConversation(), NewMarkdownExporter(nil), filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "scribe_Launch-_spring_#1_") || !strings.HasSuffix(base, ".md") {
		t.Errorf("unexpected file name %q", base)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export not written: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":              "conversation",
		"a/b\\c":        "a-b-c",
		"hello world":   "hello_world",
		"tab\there":     "tab_here",
		"ctrl\x01char": "ctrl-char",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
