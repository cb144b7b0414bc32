// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/ui/chat"
	"github.com/aquaally/ally/internal/ui/components"
)

// runTUI opens the full-screen chat with its history sidebar.
func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	if err := RequiresTTY("open the chat UI"); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	toasts := components.NewToastManager()
	a, err := openApp(ctx, opts, appOptions{tui: true, notifier: toasts})
	if err != nil {
		return err
	}
	defer a.Close()

	deps := chat.Deps{
		Manager: a.manager,
		Session: a.session,
		Toasts:  toasts,
		Logger:  a.logger,
		UI:      a.cfg.UI,
		Ctx:     ctx,
	}

	client, err := a.assistant()
	if err != nil {
		a.logger.Warn("Assistant unavailable", zap.Error(err))
	} else if client != nil {
		deps.Assistant = client
	}

	if path, err := opts.resolveConfigPath(); err == nil {
		if reloads, err := config.Watch(ctx, path); err == nil {
			deps.Reloads = reloads
		} else {
			a.logger.Warn("Config watch disabled", zap.String("path", path), zap.Error(err))
		}
	}

	p := tea.NewProgram(chat.New(deps),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat UI: %w", err)
	}
	return nil
}
