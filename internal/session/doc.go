// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the signed-in user and their preferences.
//
// A Session is created once at startup and passed explicitly to the
// conversation manager, the UI and the API server. It replaces ambient
// auth and theme state with a single object that can be read concurrently
// and refreshed from a Provider.
//
// # Usage
//
//	sess := session.New(session.NewStaticProvider(cfg.Auth, cfg.UI))
//	if err := sess.Refresh(ctx); err != nil {
//	    return err
//	}
//	if u, ok := sess.User(); ok {
//	    fmt.Println("signed in as", u.DisplayName)
//	}
package session
