// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant sends chat history to an OpenAI-compatible endpoint
// and streams the reply back.
//
// The system prompt asks the model to end each reply with a FOLLOW_UPS
// block, which package annotate strips and parses into suggestion chips.
//
// # Usage
//
//	client, err := assistant.New(cfg.Assistant, logger)
//	reply, err := client.Reply(ctx, msgs, "general", func(chunk string) {
//		program.Send(chunkMsg(chunk))
//	})
package assistant
