// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package annotate

import (
	"regexp"
	"strings"

	"github.com/aquaally/ally/internal/model"
)

// MaxFollowUps is the most suggestions returned for one reply.
const MaxFollowUps = 3

var (
	followUpBlock = regexp.MustCompile(`(?s)<!--\s*FOLLOW_UPS\s*-->(.*?)<!--\s*/FOLLOW_UPS\s*-->`)

	// "- item", "* item", "• item", "1. item", "1) item"
	listItem = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+(.*)$`)

	// "Label" | "Template"
	labeledItem = regexp.MustCompile(`^"([^"]*)"\s*\|\s*"([^"]*)"$`)

	// an opened block whose closing marker has not arrived yet
	openBlock = regexp.MustCompile(`(?s)<!--\s*FOLLOW_UPS\s*-->.*$`)
)

const openMarker = "<!--FOLLOW_UPS-->"

// ParseFollowUpSuggestions removes the FOLLOW_UPS block from content and
// returns the suggestions it held. Content without a block is returned
// unchanged with no suggestions.
func ParseFollowUpSuggestions(content string) (string, []model.FollowUpItem) {
	loc := followUpBlock.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, nil
	}

	body := content[loc[2]:loc[3]]
	clean := strings.TrimSpace(content[:loc[0]] + content[loc[1]:])

	suggestions := make([]model.FollowUpItem, 0, MaxFollowUps)
	for _, line := range strings.Split(body, "\n") {
		item, ok := parseFollowUpLine(line)
		if !ok {
			continue
		}
		suggestions = append(suggestions, item)
		if len(suggestions) == MaxFollowUps {
			break
		}
	}
	return clean, suggestions
}

// StripFollowUps returns content without its FOLLOW_UPS block.
func StripFollowUps(content string) string {
	clean, _ := ParseFollowUpSuggestions(content)
	return clean
}

// VisibleWhileStreaming hides the FOLLOW_UPS block of a reply that is still
// arriving: complete blocks, an opened block and a partial opening marker
// at the end are all cut.
func VisibleWhileStreaming(content string) string {
	s := StripFollowUps(content)
	if loc := openBlock.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[:loc[0]])
	}
	if i := strings.LastIndex(s, "<"); i >= 0 {
		tail := strings.Join(strings.Fields(s[i:]), "")
		if strings.HasPrefix(openMarker, tail) {
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

func parseFollowUpLine(line string) (model.FollowUpItem, bool) {
	m := listItem.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return model.FollowUpItem{}, false
	}
	text := strings.TrimSpace(m[1])

	if lm := labeledItem.FindStringSubmatch(text); lm != nil {
		label := strings.TrimSpace(lm[1])
		template := strings.TrimSpace(lm[2])
		if label == "" {
			return model.FollowUpItem{}, false
		}
		if template == "" {
			template = label
		}
		return model.FollowUpItem{Label: label, Template: template}, true
	}

	text = strings.TrimSpace(strings.Trim(text, `"`))
	if text == "" {
		return model.FollowUpItem{}, false
	}
	return model.FollowUpItem{Label: text, Template: text}, true
}
