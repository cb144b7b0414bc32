// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across packages.
//
// # Key Functions
//
// Display Width:
//   - TruncateWidth: Cut a string to a terminal cell width with ellipsis
//   - PadRight: Pad a string to a terminal cell width
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Fit a conversation title into a sidebar row
//	row := util.PadRight(util.TruncateWidth(title, 28), 28)
//
//	// Write exports and config atomically
//	err := util.AtomicWriteFile(path, data, 0644)
package util
