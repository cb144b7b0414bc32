// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes a user's Ally conversation history as a JSON API.
//
// The server is a thin echo layer over the same storage backend and
// conversation manager the terminal client uses. The user identity comes
// from the X-User-ID header set by an upstream auth proxy, and every
// storage call is scoped to it.
//
// # Routes
//
//	GET    /health
//	GET    /api/v1/conversations              ?q= &filter= &group=1
//	GET    /api/v1/conversations.csv          ?q= &filter=
//	GET    /api/v1/conversations/:id/messages
//	GET    /api/v1/conversations/:id/export   ?format=md|json|html
//	PATCH  /api/v1/conversations/:id          {"title":..., "is_pinned":...}
//	DELETE /api/v1/conversations/:id
//	POST   /api/v1/conversations/bulk-delete  {"ids":[...]}
//	POST   /api/v1/annotate                   {"content":...}
//
// Errors are returned as {"error":{"message":..., "code":...}}.
//
// # Usage
//
//	srv := server.New(server.OptionsFromConfig(cfg.Server, version), store, logger)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
