// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/model"
)

// ErrEmptyReply is returned when the model produced no choices.
var ErrEmptyReply = errors.New("assistant returned an empty reply")

// SystemPrompt frames every request.
const SystemPrompt = `You are Ally, a friendly expert assistant for aquarium, pool, spa and pond owners.
Answer clearly and practically. Prefer concrete numbers (target ranges, doses, schedules).
When a reading is dangerous for livestock, say so first.

After your answer, suggest up to three short follow-up questions the user might ask next,
in exactly this format:
<!-- FOLLOW_UPS -->
- "Short label" | "Full question the user would send"
<!-- /FOLLOW_UPS -->`

// =============================================================================
// CLIENT
// =============================================================================

// Client wraps a langchaingo model with throttling and a request timeout.
type Client struct {
	llm         llms.Model
	limiter     *rate.Limiter
	timeout     time.Duration
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// New builds a client for the configured OpenAI-compatible endpoint.
func New(cfg config.AssistantConfig, logger *zap.Logger) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create assistant client: %w", err)
	}
	return NewWithModel(llm, cfg, logger), nil
}

// NewWithModel wraps an existing model. Used by tests and alternate providers.
func NewWithModel(llm llms.Model, cfg config.AssistantConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Client{
		llm:         llm,
		limiter:     rate.NewLimiter(limit, 1),
		timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Reply sends history and returns the full assistant reply. Chunks are
// passed to onChunk as they stream in; onChunk may be nil. The greeting
// is never sent.
func (c *Client) Reply(ctx context.Context, history []model.Message, aquarium string, onChunk func(string)) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("assistant rate limit: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	if onChunk != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onChunk(string(chunk))
			return nil
		}))
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, BuildMessages(history, aquarium), opts...)
	if err != nil {
		c.logger.Error("Assistant request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("assistant request: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	reply := resp.Choices[0].Content
	c.logger.Debug("Assistant replied",
		zap.Int("history", len(history)),
		zap.Int("reply_bytes", len(reply)),
		zap.Duration("elapsed", time.Since(start)))
	return reply, nil
}

// BuildMessages converts chat history into the request payload, prefixed
// with the system prompt and the aquarium context.
func BuildMessages(history []model.Message, aquarium string) []llms.MessageContent {
	system := SystemPrompt
	if aquarium != "" && aquarium != model.GeneralAquarium {
		system += "\n\nThe user is asking about their aquatic space with ID " + aquarium + "."
	}

	out := make([]llms.MessageContent, 0, len(history)+1)
	out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, msg := range history {
		if msg.IsGreeting() || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := llms.ChatMessageTypeHuman
		if msg.Role == model.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}
