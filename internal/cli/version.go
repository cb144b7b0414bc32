// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ally %s\n", Version)
			fmt.Fprintf(out, "  %s %s\n", RenderLabel("Commit:"), GitCommit)
			fmt.Fprintf(out, "  %s %s\n", RenderLabel("Built:"), BuildDate)
			fmt.Fprintf(out, "  %s %s %s/%s\n", RenderLabel("Go:"), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
