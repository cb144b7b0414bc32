// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package annotate derives UI affordances from assistant replies.
//
// Both annotators are pure functions over the reply text:
//
//   - ParseFollowUpSuggestions strips the embedded FOLLOW_UPS block and
//     returns the suggested next prompts it contained.
//   - DetectQuickActions maps topic keywords to shortcuts into the app.
//
// # Follow-up Block Format
//
//	<!-- FOLLOW_UPS -->
//	- "Check my nitrates" | "What should my nitrate level be for a reef tank?"
//	- How often should I dose alkalinity?
//	<!-- /FOLLOW_UPS -->
//
// At most three suggestions are returned. Lines without a label are ignored.
package annotate
