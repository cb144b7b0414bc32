// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaally/ally/internal/model"
)

var exportedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleMessages() []model.Message {
	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return []model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "What's a good pH for my reef tank?", Timestamp: ts},
		{ID: "m2", Role: model.RoleAssistant, Content: "Aim for **8.1 to 8.4**.", Timestamp: ts.Add(time.Minute)},
		{ID: "m3", Role: model.RoleUser, Content: "Thanks!", Timestamp: ts.Add(2 * time.Minute)},
	}
}

// =============================================================================
// MARKDOWN TESTS
// =============================================================================

func TestMarkdown(t *testing.T) {
	out := Markdown("Reef pH", sampleMessages(), exportedAt)

	assert.True(t, strings.HasPrefix(out, "# Reef pH\n\n"))
	assert.Contains(t, out, "*Exported on March 14, 2025 at 9:30 AM*")
	assert.Contains(t, out, "### User — 2025-03-14 09:00")
	assert.Contains(t, out, "### Assistant — 2025-03-14 09:01")
	assert.Equal(t, 3, strings.Count(out, "\n### "))
	assert.Equal(t, 3, strings.Count(out, "\n---\n"))
	assert.NotContains(t, out, EmptyPlaceholder)
}

func TestMarkdown_Empty(t *testing.T) {
	out := Markdown("Nothing yet", nil, exportedAt)
	assert.Contains(t, out, EmptyPlaceholder)
	assert.NotContains(t, out, "###")
	assert.NotContains(t, out, "---")
}

func TestMarkdown_ImageAttachment(t *testing.T) {
	msgs := []model.Message{{Role: model.RoleUser, Content: "Is this algae?", ImageURL: "https://cdn/img.jpg", Timestamp: exportedAt}}
	out := Markdown("Algae", msgs, exportedAt)
	assert.Contains(t, out, "![attached image](https://cdn/img.jpg)")
}

// =============================================================================
// FILENAME TESTS
// =============================================================================

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"spaces", "Reef tank pH", "Reef_tank_pH.md"},
		{"invalid chars", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j.md"},
		{"control", "tab\there", "tab_here.md"},
		{"empty", "   ", "conversation.md"},
		{"only invalid", "???", "conversation.md"},
		{"unicode kept", "Água doce", "Água_doce.md"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Filename(tc.title, ".md"))
		})
	}
}

func TestFilename_Truncates(t *testing.T) {
	name := Filename(strings.Repeat("ä", 150), "")
	assert.Equal(t, MaxFilenameRunes, utf8.RuneCountInString(name))
}

// =============================================================================
// EXPORTER TESTS
// =============================================================================

func TestJSONExporter(t *testing.T) {
	doc := Document{
		Conversation: model.Conversation{ID: "c1", Title: "Reef pH", MessageCount: 3},
		Messages:     sampleMessages(),
		ExportedAt:   exportedAt,
	}
	data, err := NewJSONExporter().Export(doc)
	require.NoError(t, err)

	var decoded struct {
		Conversation model.Conversation `json:"conversation"`
		Messages     []model.Message    `json:"messages"`
		ExportedAt   time.Time          `json:"exported_at"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "c1", decoded.Conversation.ID)
	assert.Len(t, decoded.Messages, 3)
	assert.True(t, exportedAt.Equal(decoded.ExportedAt))
}

func TestHTMLExporter_Sanitizes(t *testing.T) {
	doc := Document{
		Conversation: model.Conversation{Title: "<b>XSS</b> test"},
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "<script>alert('x')</script> and more", Timestamp: exportedAt},
			{Role: model.RoleUser, Content: "Is <b>gravel</b> or **sand** better?", Timestamp: exportedAt},
			{Role: model.RoleAssistant, Content: `<a href="javascript:alert(1)" onclick="x()">Sand</a> is easier to clean.`, Timestamp: exportedAt},
		},
		ExportedAt: exportedAt,
	}
	data, err := NewHTMLExporter().Export(doc)
	require.NoError(t, err)

	out := string(data)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "alert(")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "and more", "text after a tag at line start is kept")
	assert.Contains(t, out, "<b>gravel</b>")
	assert.Contains(t, out, "<strong>sand</strong>")
	assert.Contains(t, out, "is easier to clean.")
	assert.Contains(t, out, "<title>&lt;b&gt;XSS&lt;/b&gt; test</title>")
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"md": ".md", "json": ".json", "html": ".html", "": ".md"} {
		e, err := ForFormat(format)
		require.NoError(t, err)
		assert.Equal(t, ext, e.FileExtension())
	}
	_, err := ForFormat("pdf")
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	doc := Document{Conversation: model.Conversation{Title: "Reef pH"}, Messages: sampleMessages(), ExportedAt: exportedAt}

	path, err := ToFile(doc, NewMarkdownExporter(), &Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Reef_pH.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Reef pH"))
}

func TestWriteFile_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "2025")

	path, err := WriteFile(dir, "Koi.md", []byte("# Koi\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Koi.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Koi\n", string(data))
}

// =============================================================================
// CSV TESTS
// =============================================================================

func TestWriteConversationsCSV(t *testing.T) {
	tank := "tank-1"
	convs := []model.Conversation{
		{ID: "c1", Title: `Quotes "and", commas`, IsPinned: true, MessageCount: 4, AquariumID: &tank, UpdatedAt: exportedAt, CreatedAt: exportedAt},
		{ID: "c2", Title: "Plain", LastMessagePreview: "multi\nline", UpdatedAt: exportedAt, CreatedAt: exportedAt},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteConversationsCSV(&buf, convs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, `Quotes "and", commas`, records[1][1])
	assert.Equal(t, "tank-1", records[1][4])
	assert.Equal(t, "true", records[1][5])
	assert.Equal(t, "multi\nline", records[2][7])
	assert.Equal(t, "2025-03-14T09:30:00Z", records[2][3])
}
