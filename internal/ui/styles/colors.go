// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Teal - Brand accent, user messages, focus ring
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

// Ocean - Assistant messages, links
var Ocean = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}

// Kelp - Success states, pinned markers
var Kelp = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}

// Sand - Warnings, follow-up chips
var Sand = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"}

// Coral - Errors, destructive actions
var Coral = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FB7185"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

var (
	Surface       = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0B1220"}
	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F1F5F9", Dark: "#0F172A"}
	SurfaceBright = lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#1E293B"}
	Overlay       = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}
)

// =============================================================================
// TEXT COLORS
// =============================================================================

var (
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E2E8F0"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0B1220"}
)

// SelectionBg highlights the cursor row in lists.
var SelectionBg = lipgloss.AdaptiveColor{Light: "#CCFBF1", Dark: "#134E4A"}

// =============================================================================
// STATUS RENDERING
// =============================================================================

// RenderSuccess renders a success line with its ASCII marker.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Kelp).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line with its ASCII marker.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Coral).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderInfo renders an informational line.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Ocean).
		Render(StatusIndicators.Info + " " + message)
}
