// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/aquaally/ally/internal/model"
)

// JSONExporter exports the full conversation row and messages.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

type jsonDocument struct {
	Conversation model.Conversation `json:"conversation"`
	Messages     []model.Message    `json:"messages"`
	ExportedAt   time.Time          `json:"exported_at"`
}

// Export implements Exporter.
func (e *JSONExporter) Export(doc Document) ([]byte, error) {
	msgs := doc.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	return json.MarshalIndent(jsonDocument{
		Conversation: doc.Conversation,
		Messages:     msgs,
		ExportedAt:   doc.ExportedAt.UTC(),
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
