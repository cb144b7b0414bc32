// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for Ally.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, .env files and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.ally/config.toml
//   - ~/.ally/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Storage.Driver)
//
// Watch the file for edits while the TUI runs:
//
//	reloads, err := config.Watch(ctx, path)
//	for r := range reloads {
//	    if r.Err == nil {
//	        apply(r.Config)
//	    }
//	}
package config
