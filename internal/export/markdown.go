// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aquaally/ally/internal/model"
)

// EmptyPlaceholder is written for conversations without messages.
const EmptyPlaceholder = "_This conversation has no messages._"

// roleTitle capitalizes role names for headers ("user" -> "User").
var roleTitle = cases.Title(language.English)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Export implements Exporter.
func (e *MarkdownExporter) Export(doc Document) ([]byte, error) {
	return []byte(Markdown(doc.Conversation.Title, doc.Messages, doc.ExportedAt)), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// Markdown renders a conversation: an H1 title, the export time, then every
// message as an H3 role and timestamp header, its content and a rule.
func Markdown(title string, msgs []model.Message, exportedAt time.Time) string {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		title = model.DefaultTitle
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "*Exported on %s*\n\n", exportedAt.Format("January 2, 2006 at 3:04 PM"))

	if len(msgs) == 0 {
		sb.WriteString(EmptyPlaceholder)
		sb.WriteString("\n")
		return sb.String()
	}

	for _, msg := range msgs {
		fmt.Fprintf(&sb, "### %s — %s\n\n", roleTitle.String(string(msg.Role)),
			msg.Timestamp.Format("2006-01-02 15:04"))
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")
		if msg.ImageURL != "" {
			fmt.Fprintf(&sb, "![attached image](%s)\n\n", msg.ImageURL)
		}
		sb.WriteString("---\n\n")
	}
	return sb.String()
}
