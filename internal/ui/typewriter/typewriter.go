// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typewriter reveals streaming text at a fixed character rate.
//
// While active the visible prefix only grows. Text that extends the current
// text keeps the reveal position; anything else restarts it. When inactive
// the whole text is visible and no partial state remains.
package typewriter

import (
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultCPS is the reveal rate when none is configured.
const DefaultCPS = 120

// MaxFPS caps the tick rate.
const MaxFPS = 60

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// TickMsg advances a typewriter. ID routes it to its owner.
type TickMsg struct {
	ID   int
	Time time.Time
}

// Typewriter holds one message's reveal state.
type Typewriter struct {
	id     int
	cps    int
	text   []rune
	active bool
	shown  int
	carry  float64
	last   time.Time
}

// New creates a typewriter revealing cps runes per second.
func New(cps int) *Typewriter {
	if cps <= 0 {
		cps = DefaultCPS
	}
	return &Typewriter{id: nextID(), cps: cps}
}

// ID identifies this typewriter's ticks.
func (t *Typewriter) ID() int { return t.id }

// SetRate changes the reveal rate, as after a config reload.
func (t *Typewriter) SetRate(cps int) {
	if cps > 0 {
		t.cps = cps
	}
}

// Rate returns the reveal rate in runes per second.
func (t *Typewriter) Rate() int { return t.cps }

// Set replaces the text. The reveal continues when text extends the
// current text and restarts otherwise.
func (t *Typewriter) Set(text string, active bool) {
	runes := []rune(text)
	if !active {
		t.text = runes
		t.active = false
		t.shown = len(runes)
		t.carry = 0
		t.last = time.Time{}
		return
	}

	if !t.active || !hasPrefix(runes, t.text) {
		t.shown = 0
		t.carry = 0
		t.last = time.Time{}
	}
	t.text = runes
	t.active = true
	if t.shown > len(runes) {
		t.shown = len(runes)
	}
}

// Active reports whether a reveal is in progress.
func (t *Typewriter) Active() bool { return t.active }

// Advance reveals the runes due since the previous call.
func (t *Typewriter) Advance(now time.Time) {
	if !t.active {
		return
	}
	if t.last.IsZero() {
		t.last = now
		return
	}
	elapsed := now.Sub(t.last)
	t.last = now
	if elapsed <= 0 {
		return
	}

	t.carry += elapsed.Seconds() * float64(t.cps)
	step := int(t.carry)
	t.carry -= float64(step)
	t.shown += step
	if t.shown >= len(t.text) {
		t.shown = len(t.text)
		t.carry = 0
	}
}

// Visible returns the revealed prefix.
func (t *Typewriter) Visible() string {
	return string(t.text[:t.shown])
}

// Caught reports whether everything received so far is visible.
func (t *Typewriter) Caught() bool {
	return t.shown >= len(t.text)
}

// Interval is the tick period: one rune per tick, no faster than MaxFPS.
func (t *Typewriter) Interval() time.Duration {
	interval := time.Second / time.Duration(t.cps)
	if floor := time.Second / MaxFPS; interval < floor {
		interval = floor
	}
	return interval
}

// TickCmd schedules the next tick.
func (t *Typewriter) TickCmd() tea.Cmd {
	id := t.id
	return tea.Tick(t.Interval(), func(now time.Time) tea.Msg {
		return TickMsg{ID: id, Time: now}
	})
}

// Update handles a TickMsg for this typewriter and schedules the next one
// while active.
func (t *Typewriter) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != t.id {
		return nil
	}
	t.Advance(tick.Time)
	if !t.active {
		return nil
	}
	return t.TickCmd()
}

func hasPrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	return strings.HasPrefix(string(s), string(prefix))
}
