// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the Ally TUI.

All colors are Lip Gloss AdaptiveColors, so they follow the terminal's
light or dark background unless the user pins a theme in config.

# Color System (colors.go)

	Teal    - Brand accent, user messages, focus
	Ocean   - Assistant messages, links
	Kelp    - Success toasts, pinned markers
	Sand    - Warnings, follow-up chips
	Coral   - Errors, delete confirmations

Surfaces and text follow a layered scheme (Surface, SurfaceDim, Overlay and
TextPrimary, TextSecondary, TextMuted).

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	if theme.IsDark {
		// dark terminal, or theme = "dark" in config
	}
	md := theme.GlamourStyle() // "dark" or "light" for glamour

# Indicators (indicators.go)

Frame sets for the typing and thinking rows, plus ASCII status markers
usable without color.
*/
package styles
