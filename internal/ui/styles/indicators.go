// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "time"

// FrameSet is an animation loop.
type FrameSet struct {
	Frames []string
	FPS    int
}

// Interval returns the duration of one frame.
func (f FrameSet) Interval() time.Duration {
	if f.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(f.FPS)
}

// Frame returns the frame for step n.
func (f FrameSet) Frame(n int) string {
	if len(f.Frames) == 0 {
		return ""
	}
	if n < 0 {
		n = -n
	}
	return f.Frames[n%len(f.Frames)]
}

// TypingFrames animate the loading row while a reply is pending.
var TypingFrames = FrameSet{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// ThinkingFrames animate the loading row for reasoning models.
var ThinkingFrames = FrameSet{
	Frames: []string{"( )", "(.)", "(o)", "(O)", "(o)", "(.)"},
	FPS:    8,
}

// StatusIndicatorSet holds markers that read without color.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Info    string
	Pinned  string
	Checked string
	Empty   string
}

// StatusIndicators are the ASCII markers used across the UI.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Info:    "[i]",
	Pinned:  "*",
	Checked: "[x]",
	Empty:   "[ ]",
}
