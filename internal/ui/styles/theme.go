// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme preference values accepted from config.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme holds every style the TUI renders with.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile
	Preference   string

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App    lipgloss.Style
	Header lipgloss.Style
	Brand  lipgloss.Style
	Muted  lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBody       lipgloss.Style
	AssistantBody  lipgloss.Style
	Timestamp      lipgloss.Style
	LoadingRow     lipgloss.Style
	EditMarker     lipgloss.Style

	// ==========================================================================
	// CHIPS
	// ==========================================================================

	FollowUpChip       lipgloss.Style
	QuickActionChip    lipgloss.Style
	ChipSelected       lipgloss.Style
	FilterChip         lipgloss.Style
	FilterChipSelected lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarFocused  lipgloss.Style
	GroupHeader     lipgloss.Style
	ConvItem        lipgloss.Style
	ConvItemCursor  lipgloss.Style
	ConvItemActive  lipgloss.Style
	ConvPreview     lipgloss.Style
	PinnedMarker    lipgloss.Style
	SearchPrompt    lipgloss.Style
	SelectionBanner lipgloss.Style

	// ==========================================================================
	// INPUT, STATUS, TOASTS
	// ==========================================================================

	InputBox     lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	ToastSuccess lipgloss.Style
	ToastError   lipgloss.Style
	Dialog       lipgloss.Style

	// ==========================================================================
	// CODE
	// ==========================================================================

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style
}

// NewTheme detects terminal capabilities and builds the styles. pref is
// auto, light or dark; anything else is treated as auto.
func NewTheme(pref string) *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.Apply(pref)
	return t
}

// Apply switches the light/dark preference, as after a config reload.
func (t *Theme) Apply(pref string) {
	pref = strings.ToLower(strings.TrimSpace(pref))
	switch pref {
	case ThemeLight:
		t.IsDark = false
	case ThemeDark:
		t.IsDark = true
	default:
		pref = ThemeAuto
		t.IsDark = termenv.HasDarkBackground()
	}
	t.Preference = pref
	lipgloss.SetHasDarkBackground(t.IsDark)
	t.initStyles()
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return ThemeDark
	}
	return ThemeLight
}

// ChromaStyle names the chroma style matching the theme.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "catppuccin-mocha"
	}
	return "catppuccin-latte"
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Brand = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	// Messages
	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Ocean)
	t.UserBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Teal).
		PaddingLeft(1)
	t.AssistantBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Ocean).
		PaddingLeft(1)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.LoadingRow = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.EditMarker = lipgloss.NewStyle().Foreground(Sand).Bold(true)

	// Chips
	chip := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1).
		MarginRight(1)
	t.FollowUpChip = chip.BorderForeground(Sand).Foreground(TextPrimary)
	t.QuickActionChip = chip.BorderForeground(Kelp).Foreground(TextPrimary)
	t.ChipSelected = chip.BorderForeground(Teal).Foreground(Teal).Bold(true)
	t.FilterChip = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.FilterChipSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Teal).
		Bold(true).
		Padding(0, 1)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarFocused = t.Sidebar.BorderForeground(Teal)
	t.GroupHeader = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary).MarginTop(1)
	t.ConvItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ConvItemCursor = lipgloss.NewStyle().Foreground(TextPrimary).Background(SelectionBg).Bold(true)
	t.ConvItemActive = lipgloss.NewStyle().Foreground(Teal)
	t.ConvPreview = lipgloss.NewStyle().Foreground(TextMuted)
	t.PinnedMarker = lipgloss.NewStyle().Foreground(Kelp).Bold(true)
	t.SearchPrompt = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	t.SelectionBanner = lipgloss.NewStyle().Foreground(Coral).Bold(true)

	// Input, status, toasts
	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
	toast := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)
	t.ToastSuccess = toast.BorderForeground(Kelp).Foreground(Kelp)
	t.ToastError = toast.BorderForeground(Coral).Foreground(Coral)
	t.Dialog = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Teal).
		Padding(1, 2)

	// Code
	t.CodeBlock = lipgloss.NewStyle().
		Background(SurfaceBright).
		Padding(0, 1)
	t.CodeLangBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Ocean).
		Padding(0, 1)
}

// LayoutMode is the responsive layout for the current width.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 80 columns, sidebar hidden
	LayoutWide
)

// LayoutFor picks the layout for a terminal width.
func LayoutFor(width int) LayoutMode {
	if width < 80 {
		return LayoutNarrow
	}
	return LayoutWide
}
