// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/assistant"
	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/conversation"
	"github.com/aquaally/ally/internal/logging"
	"github.com/aquaally/ally/internal/session"
	"github.com/aquaally/ally/internal/storage"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app bundles the services one command invocation needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   storage.Backend
	session *session.Session
	manager *conversation.Manager
}

// appOptions tweak openApp for the caller.
type appOptions struct {
	// tui routes logs away from the terminal
	tui bool

	// notifier receives the manager's toasts; nil prints them to errOut
	notifier conversation.Notifier
	errOut   io.Writer
}

// openApp loads config, logging, storage and the session, in that order.
// The caller must Close the app.
func openApp(ctx context.Context, opts *rootOptions, ao appOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	var logger *zap.Logger
	if ao.tui {
		logger, err = logging.ForTUI(cfg.Logging)
	} else {
		logger, err = logging.New(cfg.Logging)
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		_ = logger.Sync()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	sess := session.New(session.NewStaticProvider(
		session.User{ID: cfg.Auth.UserID, Email: cfg.Auth.Email, DisplayName: cfg.Auth.DisplayName},
		cfg.Auth.Tier,
		session.Preferences{Theme: cfg.UI.Theme, Language: cfg.UI.Language},
	))
	if err := sess.Refresh(ctx); err != nil {
		logger.Warn("Session refresh failed", zap.Error(err))
	}

	notifier := ao.notifier
	if notifier == nil {
		notifier = printNotifier(ao.errOut)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		session: sess,
		manager: conversation.New(store, sess,
			conversation.WithLogger(logger),
			conversation.WithNotifier(notifier)),
	}
	logger.Debug("App opened",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("user_id", sess.UserID()))
	return a, nil
}

// Close releases storage and flushes logs.
func (a *app) Close() error {
	err := a.store.Close()
	_ = a.logger.Sync()
	return err
}

// requireUser fails commands that need a signed-in user.
func (a *app) requireUser() error {
	if a.session.UserID() == "" {
		return errNotSignedIn
	}
	return nil
}

// assistant returns the configured reply client, or nil without an API key.
func (a *app) assistant() (*assistant.Client, error) {
	if a.cfg.Assistant.APIKey == "" {
		return nil, nil
	}
	return assistant.New(a.cfg.Assistant, a.logger)
}

// printNotifier writes manager successes as one styled line each. Errors
// are returned to the command and shown once by Execute.
func printNotifier(w io.Writer) conversation.Notifier {
	if w == nil {
		return conversation.NopNotifier{}
	}
	return conversation.NotifierFuncs{
		OnSuccess: func(title, description string) {
			fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render(title), description)
		},
	}
}
