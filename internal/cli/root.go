// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aquaally/ally/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
}

// Execute runs the ally command tree and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		DisplayError(cmd.ErrOrStderr(), err)
	}
	return ExitCode(err)
}

// NewRootCommand builds the full command tree. Running it without a
// subcommand opens the terminal UI.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ally",
		Short: "Ally, your aquatic assistant, in the terminal",
		Long: `Ally answers questions about aquariums, pools, spas and ponds.

Run without arguments to open the chat UI with its conversation history
sidebar, or use the subcommands to script your history.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: opts.loadDotEnv,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.ally/config.toml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newChatCommand(opts),
		newHistoryCommand(opts),
		newExportCommand(opts),
		newRenameCommand(opts),
		newPinCommand(opts),
		newDeleteCommand(opts),
		newServeCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

func (o *rootOptions) loadDotEnv(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Warning:"), err)
	}
	return nil
}

// resolveConfigPath returns the --config flag or the active default path.
func (o *rootOptions) resolveConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ActivePath()
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		if _, statErr := os.Stat(o.configPath); statErr != nil {
			return nil, &ConfigError{Err: fmt.Errorf("config file %s: %w", o.configPath, statErr)}
		}
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
