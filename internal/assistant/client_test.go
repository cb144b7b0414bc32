// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/model"
)

// fakeLLM streams a canned reply in chunks and records what it was sent.
type fakeLLM struct {
	chunks   []string
	err      error
	got      []llms.MessageContent
	gotOpts  llms.CallOptions
	hasDeadline bool
}

func (f *fakeLLM) GenerateContent(ctx context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = msgs
	for _, opt := range options {
		opt(&f.gotOpts)
	}
	_, f.hasDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	if f.gotOpts.StreamingFunc != nil {
		for _, c := range f.chunks {
			if err := f.gotOpts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: strings.Join(f.chunks, "")}},
	}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testConfig() config.AssistantConfig {
	return config.AssistantConfig{Temperature: 0.5, MaxTokens: 256, TimeoutSecs: 30}
}

func TestReply_Streams(t *testing.T) {
	llm := &fakeLLM{chunks: []string{"Keep pH ", "at 8.2."}}
	client := NewWithModel(llm, testConfig(), nil)

	history := []model.Message{
		model.Greeting(),
		model.NewUserMessage("What pH for reef?"),
	}

	var streamed []string
	reply, err := client.Reply(context.Background(), history, "tank-9", func(s string) {
		streamed = append(streamed, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Keep pH at 8.2.", reply)
	assert.Equal(t, []string{"Keep pH ", "at 8.2."}, streamed)

	require.Len(t, llm.got, 2, "greeting must not be sent")
	assert.Equal(t, llms.ChatMessageTypeSystem, llm.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, llm.got[1].Role)
	assert.Equal(t, 256, llm.gotOpts.MaxTokens)
	assert.InDelta(t, 0.5, llm.gotOpts.Temperature, 1e-9)
	assert.True(t, llm.hasDeadline)
}

func TestReply_Error(t *testing.T) {
	llm := &fakeLLM{err: errors.New("upstream 500")}
	client := NewWithModel(llm, testConfig(), nil)

	_, err := client.Reply(context.Background(), []model.Message{model.NewUserMessage("hi")}, "", nil)
	assert.ErrorContains(t, err, "upstream 500")
}

func TestReply_CancelledWhileThrottled(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerMinute = 1
	client := NewWithModel(&fakeLLM{chunks: []string{"ok"}}, cfg, nil)

	_, err := client.Reply(context.Background(), nil, "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Reply(ctx, nil, "", nil)
	assert.Error(t, err)
}

func TestBuildMessages(t *testing.T) {
	history := []model.Message{
		model.NewUserMessage("Q"),
		model.NewAssistantMessage("A"),
		model.NewUserMessage("   "),
	}

	msgs := BuildMessages(history, model.GeneralAquarium)
	require.Len(t, msgs, 3)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[2].Role)

	system, ok := msgs[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Contains(t, system.Text, "<!-- FOLLOW_UPS -->")
	assert.NotContains(t, system.Text, "aquatic space with ID")

	msgs = BuildMessages(nil, "pond-2")
	system = msgs[0].Parts[0].(llms.TextContent)
	assert.Contains(t, system.Text, "pond-2")
}
