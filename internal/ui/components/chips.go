// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/ui/styles"
	"github.com/aquaally/ally/internal/util"
)

// ChipKind distinguishes follow-up chips from quick-action chips.
type ChipKind int

const (
	ChipFollowUp ChipKind = iota
	ChipQuickAction
)

// Chip is one selectable suggestion under the last assistant reply.
type Chip struct {
	Kind     ChipKind
	Label    string
	FollowUp model.FollowUpItem
	Action   model.QuickAction
}

// maxChipLabel keeps a single chip from filling the row.
const maxChipLabel = 40

// BuildChips orders follow-ups before quick actions.
func BuildChips(followUps []model.FollowUpItem, actions []model.QuickAction) []Chip {
	chips := make([]Chip, 0, len(followUps)+len(actions))
	for _, f := range followUps {
		chips = append(chips, Chip{Kind: ChipFollowUp, Label: f.Label, FollowUp: f})
	}
	for _, a := range actions {
		chips = append(chips, Chip{Kind: ChipQuickAction, Label: a.Label, Action: a})
	}
	return chips
}

// RenderChips lays chips out in rows no wider than width. selected is the
// focused chip index, or -1.
func RenderChips(theme *styles.Theme, chips []Chip, selected, width int) string {
	if len(chips) == 0 {
		return ""
	}

	var rows []string
	var row []string
	rowWidth := 0
	for i, c := range chips {
		style := theme.FollowUpChip
		prefix := "? "
		if c.Kind == ChipQuickAction {
			style = theme.QuickActionChip
			prefix = "→ "
		}
		if i == selected {
			style = theme.ChipSelected
		}
		rendered := style.Render(prefix + util.TruncateWidth(c.Label, maxChipLabel))
		w := lipgloss.Width(rendered)
		if rowWidth > 0 && width > 0 && rowWidth+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		row = append(row, rendered)
		rowWidth += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(rows, "\n")
}
