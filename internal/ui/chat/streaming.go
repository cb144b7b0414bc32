// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aquaally/ally/internal/model"
)

// ThinkingDelay is how long a reply may stay silent before the loading
// row switches from typing to thinking.
const ThinkingDelay = 3 * time.Second

// streamBuffer is the number of chunks the producer may run ahead of the
// update loop.
const streamBuffer = 64

// Replier produces an assistant reply, streaming chunks as they arrive.
type Replier interface {
	Reply(ctx context.Context, history []model.Message, aquarium string, onChunk func(string)) (string, error)
}

// =============================================================================
// STREAM
// =============================================================================

type streamEvent struct {
	chunk string
	done  bool
	reply string
	err   error
}

// stream runs one Reply call in the background and hands its chunks to the
// update loop through a channel.
type stream struct {
	id     int
	events chan streamEvent
	cancel context.CancelFunc
}

// startStream begins a reply. Cancelling ctx or calling cancel stops it.
func startStream(ctx context.Context, r Replier, id int, history []model.Message, aquarium string) *stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &stream{id: id, events: make(chan streamEvent, streamBuffer), cancel: cancel}

	go func() {
		defer close(s.events)
		reply, err := r.Reply(ctx, history, aquarium, func(chunk string) {
			select {
			case s.events <- streamEvent{chunk: chunk}:
			case <-ctx.Done():
			}
		})
		select {
		case s.events <- streamEvent{done: true, reply: reply, err: err}:
		case <-ctx.Done():
		}
	}()
	return s
}

// wait blocks for the next event and folds every chunk already queued
// behind it into one message.
func (s *stream) wait() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.events
		if !ok {
			return streamEventMsg{ID: s.id, Done: true, Err: context.Canceled}
		}
		if ev.done {
			return streamEventMsg{ID: s.id, Done: true, Reply: ev.reply, Err: ev.err}
		}

		var b strings.Builder
		b.WriteString(ev.chunk)
		for {
			select {
			case next, ok := <-s.events:
				if !ok {
					return streamEventMsg{ID: s.id, Chunk: b.String(), Done: true, Err: context.Canceled}
				}
				if next.done {
					return streamEventMsg{ID: s.id, Chunk: b.String(), Done: true, Reply: next.reply, Err: next.err}
				}
				b.WriteString(next.chunk)
			default:
				return streamEventMsg{ID: s.id, Chunk: b.String()}
			}
		}
	}
}

// thinkingAfter reports a silent reply after ThinkingDelay.
func thinkingAfter(id int) tea.Cmd {
	return tea.Tick(ThinkingDelay, func(time.Time) tea.Msg {
		return thinkingMsg{ID: id}
	})
}
