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

// Shortcut is one key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: aquarium context on the left, key hints on
// the right. Hints are dropped from the end until they fit.
type StatusBar struct {
	Aquarium  string
	Tier      string
	Status    string
	Shortcuts []Shortcut
}

// View renders the bar at width.
func (b StatusBar) View(theme *styles.Theme, width int) string {
	aquarium := b.Aquarium
	if aquarium == "" || aquarium == model.GeneralAquarium {
		aquarium = "General"
	}
	left := theme.Brand.Render("Ally") + " " + theme.ShortcutDesc.Render(aquarium)
	if b.Tier != "" {
		left += " " + theme.Muted.Render("("+b.Tier+")")
	}
	if b.Status != "" {
		left += "  " + b.Status
	}

	avail := width - lipgloss.Width(left) - 4
	hints := make([]string, 0, len(b.Shortcuts))
	used := 0
	for _, s := range b.Shortcuts {
		h := theme.ShortcutKey.Render(s.Key) + " " + theme.ShortcutDesc.Render(s.Desc)
		w := lipgloss.Width(h) + 2
		if used+w > avail {
			break
		}
		hints = append(hints, h)
		used += w
	}
	right := strings.Join(hints, "  ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	if width > 2 && lipgloss.Width(line) > width-2 {
		line = util.TruncateWidth(line, width-2)
	}
	return theme.StatusBar.Width(width).Render(line)
}
