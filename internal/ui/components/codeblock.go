// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"

	"github.com/aquaally/ally/internal/ui/styles"
)

// =============================================================================
// CODE BLOCKS
// =============================================================================

// Highlighter colors fenced code when Markdown rendering is off.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
}

// NewHighlighter picks the chroma style and formatter for the theme.
func NewHighlighter(theme *styles.Theme) *Highlighter {
	style := chromaStyles.Get(theme.ChromaStyle())
	if style == nil {
		style = chromaStyles.Fallback
	}

	name := "terminal256"
	switch theme.ColorProfile {
	case termenv.TrueColor:
		name = "terminal16m"
	case termenv.ANSI:
		name = "terminal16"
	case termenv.Ascii:
		name = "noop"
	}
	formatter := formatters.Get(name)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &Highlighter{style: style, formatter: formatter}
}

// Highlight returns code with ANSI colors, or code unchanged on failure.
func (h *Highlighter) Highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// RenderCodeBlocks replaces fenced blocks in text with highlighted,
// badge-labelled blocks. An unclosed fence highlights to the end, which
// keeps a streaming reply readable.
func RenderCodeBlocks(theme *styles.Theme, h *Highlighter, text string) string {
	var out []string
	var code []string
	var lang string
	inCode := false

	flush := func() {
		block := h.Highlight(strings.Join(code, "\n"), lang)
		if lang != "" {
			out = append(out, theme.CodeLangBadge.Render(lang))
		}
		out = append(out, theme.CodeBlock.Render(block))
		code, lang = nil, ""
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```") && inCode:
			flush()
			inCode = false
		case strings.HasPrefix(trimmed, "```"):
			lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			inCode = true
		case inCode:
			code = append(code, line)
		default:
			out = append(out, line)
		}
	}
	if inCode {
		flush()
	}
	return strings.Join(out, "\n")
}
