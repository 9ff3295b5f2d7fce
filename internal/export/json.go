// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/scribe-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// Document is the JSON export layout. Messages use the same shape the
// backend stores.
type Document struct {
	ID        string          `json:"id,omitempty"`
	Title     string          `json:"title"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Exported  time.Time       `json:"exported"`
	Messages  []model.Message `json:"messages"`
}

// JSONExporter exports conversations to JSON. Metadata options do not
// apply; the document is always complete.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts conv to indented JSON.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}
	doc := Document{
		Title:    conv.DisplayTitle(),
		Exported: e.options.now().UTC(),
		Messages: conv.Messages,
	}
	if !conv.Ref.IsNew() {
		doc.ID = conv.Ref.ID()
	}
	if !conv.CreatedAt.IsZero() {
		created := conv.CreatedAt
		doc.CreatedAt = &created
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
