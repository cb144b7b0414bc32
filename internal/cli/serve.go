// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aquaally/ally/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversation history JSON API",
		Long: `Serve the history API over the configured storage backend.

Requests must carry the user identity in the X-User-ID header, normally
set by an authenticating reverse proxy.`,
		Example: `  ally serve
  ally serve --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			srv := server.New(server.OptionsFromConfig(cfg, Version), a.store, a.logger)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
