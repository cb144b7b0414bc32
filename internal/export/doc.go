// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversations to downloadable files.
//
// # Supported Formats
//
//   - Markdown (.md): Title, export time, one section per message
//   - JSON (.json): Conversation row plus messages for data export
//   - HTML (.html): The Markdown export rendered and sanitized
//   - CSV (.csv): Conversation list, one row per conversation
//
// # Usage
//
//	doc := export.Document{Conversation: conv, Messages: msgs, ExportedAt: time.Now()}
//	path, err := export.ToFile(doc, export.NewMarkdownExporter(), export.DefaultOptions())
//
// Filenames come from the conversation title through Filename, which
// replaces characters that are invalid on common filesystems.
package export
