// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package typewriter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTypewriter_Reveals(t *testing.T) {
	tw := New(10)
	tw.Set("Hello, reef!", true)
	assert.Equal(t, "", tw.Visible())

	tw.Advance(t0)
	assert.Equal(t, "", tw.Visible(), "first advance only starts the clock")

	tw.Advance(t0.Add(500 * time.Millisecond))
	assert.Equal(t, "Hello", tw.Visible())

	tw.Advance(t0.Add(5 * time.Second))
	assert.Equal(t, "Hello, reef!", tw.Visible())
	assert.True(t, tw.Caught())
}

func TestTypewriter_StreamingExtendsKeepsPosition(t *testing.T) {
	tw := New(10)
	tw.Set("Keep", true)
	tw.Advance(t0)
	tw.Advance(t0.Add(200 * time.Millisecond))
	assert.Equal(t, "Ke", tw.Visible())

	tw.Set("Keep pH at 8.2", true)
	assert.Equal(t, "Ke", tw.Visible())

	tw.Advance(t0.Add(400 * time.Millisecond))
	assert.Equal(t, "Keep", tw.Visible())
}

func TestTypewriter_NonExtensionRestarts(t *testing.T) {
	tw := New(10)
	tw.Set("first reply", true)
	tw.Advance(t0)
	tw.Advance(t0.Add(time.Second))
	assert.NotEmpty(t, tw.Visible())

	tw.Set("second reply", true)
	assert.Equal(t, "", tw.Visible())
}

func TestTypewriter_InactiveShowsAll(t *testing.T) {
	tw := New(10)
	tw.Set("streaming", true)
	tw.Advance(t0)
	tw.Advance(t0.Add(100 * time.Millisecond))

	tw.Set("streaming done", false)
	assert.Equal(t, "streaming done", tw.Visible())
	assert.False(t, tw.Active())

	tw.Set("streaming done", true)
	assert.Equal(t, "", tw.Visible(), "no partial state survives deactivation")
}

func TestTypewriter_Unicode(t *testing.T) {
	tw := New(2)
	tw.Set("🐠🐡🦈", true)
	tw.Advance(t0)
	tw.Advance(t0.Add(time.Second))
	assert.Equal(t, "🐠🐡", tw.Visible())
}

func TestTypewriter_Monotonic(t *testing.T) {
	tw := New(50)
	tw.Set("abcdefghijklmnopqrstuvwxyz", true)
	tw.Advance(t0)
	prev := 0
	for i := 1; i <= 30; i++ {
		tw.Advance(t0.Add(time.Duration(i*7) * time.Millisecond))
		n := len(tw.Visible())
		assert.GreaterOrEqual(t, n, prev)
		prev = n
	}
	tw.Advance(t0.Add(100 * time.Millisecond))
	assert.GreaterOrEqual(t, len(tw.Visible()), prev, "clock going backwards never hides text")
}

func TestTypewriter_Interval(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, New(10).Interval())
	assert.Equal(t, time.Second/MaxFPS, New(1000).Interval())
	assert.Equal(t, DefaultCPS, New(0).Rate())
}

func TestTypewriter_UpdateIgnoresOtherIDs(t *testing.T) {
	tw := New(10)
	other := New(10)
	tw.Set("abc", true)

	assert.Nil(t, tw.Update(TickMsg{ID: other.ID(), Time: t0}))
	assert.NotNil(t, tw.Update(TickMsg{ID: tw.ID(), Time: t0}))

	tw.Set("abc", false)
	assert.Nil(t, tw.Update(TickMsg{ID: tw.ID(), Time: t0.Add(time.Second)}))
}
