// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ally command line.
//
// Running ally without arguments opens the full-screen chat with its
// history sidebar. The subcommands script the same conversation history:
//
//	ally chat                        line-mode chat with saved history
//	ally history [-s q] [-f filter]  list, search, group or export as CSV
//	ally export <id> [-f md|json]    write a conversation to a file
//	ally rename <id> <title>
//	ally pin <id>
//	ally delete <id>...              several ids are deleted in one batch
//	ally serve [--addr]              JSON API over the same storage
//	ally config init|show|path|get|set|keys
//	ally version
//
// Every command loads ~/.ally/config.toml (or --config), the .env files,
// and opens the configured storage backend for the signed-in user.
//
// # Exit Codes
//
// Errors are printed once by Execute and mapped to exit codes: 2 for bad
// arguments, 3 for configuration problems, 4 when nobody is signed in and
// 7 for unknown conversations.
package cli
