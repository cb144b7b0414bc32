// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// HTMLExporter renders the Markdown export as a standalone HTML page.
// Raw HTML in messages passes through the Markdown renderer and is then
// sanitized, so markup typed into the chat is kept as text or safe tags
// but cannot inject scripts into the exported page.
type HTMLExporter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; color: #1b2b34; }
h1 { color: #0b6e99; }
h3 { color: #0b6e99; margin-bottom: 0.25rem; }
pre { background: #f4f7f9; padding: 0.75rem; overflow-x: auto; border-radius: 4px; }
hr { border: none; border-top: 1px solid #d6e2ea; }
img { max-width: 100%%; }
</style>
</head>
<body>
%s
</body>
</html>
`

// Export implements Exporter.
func (e *HTMLExporter) Export(doc Document) ([]byte, error) {
	source := Markdown(doc.Conversation.Title, doc.Messages, doc.ExportedAt)

	var body bytes.Buffer
	if err := e.md.Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	safe := e.policy.SanitizeBytes(body.Bytes())

	title := doc.Conversation.Title
	if title == "" {
		title = "Conversation"
	}
	return []byte(fmt.Sprintf(htmlPage, html.EscapeString(title), safe)), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}
