// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aquaally/ally/internal/export"
	"github.com/aquaally/ally/internal/history"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/util"
)

// titleWidth is the title column width in listings.
const titleWidth = 36

// =============================================================================
// HISTORY
// =============================================================================

type historyOptions struct {
	search string
	filter string
	group  bool
	csv    bool
	json   bool
	limit  int
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	ho := &historyOptions{}
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls"},
		Short:   "List saved conversations",
		Long: `List your conversations, pinned first and then most recently updated.

Filters: all, pinned, last7days, has_aquarium.`,
		Example: `  ally history
  ally history --search nitrate --filter last7days
  ally history --group
  ally history --csv > conversations.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts, ho)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&ho.search, "search", "s", "", "match title or last message preview")
	f.StringVarP(&ho.filter, "filter", "f", "all", "quick filter")
	f.BoolVarP(&ho.group, "group", "g", false, "group by date")
	f.BoolVar(&ho.csv, "csv", false, "write CSV")
	f.BoolVar(&ho.json, "json", false, "write JSON")
	f.IntVarP(&ho.limit, "limit", "n", 0, "show at most n conversations (0 = all)")
	cmd.MarkFlagsMutuallyExclusive("csv", "json", "group")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *rootOptions, ho *historyOptions) error {
	quick, err := history.ParseQuickFilter(ho.filter)
	if err != nil {
		return &UsageError{Field: "filter", Value: ho.filter, Reason: err.Error()}
	}

	ctx, out := cmd.Context(), cmd.OutOrStdout()
	a, err := openApp(ctx, opts, appOptions{errOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireUser(); err != nil {
		return err
	}
	if err := a.manager.FetchConversations(ctx); err != nil {
		return err
	}

	now := time.Now()
	convs := history.Filter(a.manager.Conversations(), ho.search, quick, now)
	if ho.limit > 0 && len(convs) > ho.limit {
		convs = convs[:ho.limit]
	}

	switch {
	case ho.csv:
		return export.WriteConversationsCSV(out, convs)
	case ho.json:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(convs)
	case len(convs) == 0:
		fmt.Fprintln(out, DimStyle.Render("No conversations found."))
		return nil
	case ho.group:
		for _, g := range history.GroupByDate(convs, now) {
			fmt.Fprintln(out, SectionStyle.Render(string(g.Bucket)))
			fmt.Fprintln(out, RenderSeparator())
			for _, c := range g.Conversations {
				fmt.Fprintln(out, conversationLineAt(c, now))
			}
		}
		return nil
	}

	for _, c := range convs {
		fmt.Fprintln(out, conversationLineAt(c, now))
	}
	return nil
}

func conversationLine(c model.Conversation) string {
	return conversationLineAt(c, time.Now())
}

// conversationLineAt renders one listing row: id, pin mark, title, age
// and message count.
func conversationLineAt(c model.Conversation, now time.Time) string {
	pin := " "
	if c.IsPinned {
		pin = PinStyle.Render("*")
	}
	title := util.PadRight(util.TruncateWidth(c.Title, titleWidth), titleWidth)
	meta := fmt.Sprintf("%-8s %3d msgs", formatAge(now.Sub(c.UpdatedAt)), c.MessageCount)
	return fmt.Sprintf("%s %s %s  %s", DimStyle.Render(c.ID), pin, ValueStyle.Render(title), DimStyle.Render(meta))
}

// formatAge renders a duration as a short "3h ago" style age.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// =============================================================================
// EXPORT
// =============================================================================

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		format string
		outDir string
		stdout bool
		open   bool
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a conversation as Markdown, JSON or HTML",
		Example: `  ally export 6f1c2b1e-...
  ally export 6f1c2b1e-... --format json --out ~/exports
  ally export 6f1c2b1e-... --format html --open
  ally export 6f1c2b1e-... --stdout | less`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.ForFormat(format)
			if err != nil {
				return &UsageError{Field: "format", Value: format, Reason: "want md, json or html"}
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts, appOptions{errOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireUser(); err != nil {
				return err
			}
			if err := a.manager.FetchConversations(ctx); err != nil {
				return err
			}

			doc, err := a.manager.ExportDocument(ctx, args[0])
			if err != nil {
				return err
			}
			if stdout {
				data, err := exporter.Export(doc)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			path, err := export.ToFile(doc, exporter, &export.Options{OutputDir: outDir, OpenAfterExport: open})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Exported"), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "md, json or html")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().BoolVar(&open, "open", false, "open the file in the default application")
	cmd.MarkFlagsMutuallyExclusive("stdout", "open")
	return cmd
}

// =============================================================================
// RENAME AND PIN
// =============================================================================

func newRenameCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rename <id> <title>",
		Short:   "Rename a conversation",
		Example: `  ally rename 6f1c2b1e-... "Koi pond in winter"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return &UsageError{Field: "title", Reason: "must not be empty"}
			}
			return withConversation(cmd, opts, args[0], func(a *app) error {
				return a.manager.RenameConversation(cmd.Context(), args[0], title)
			})
		},
	}
}

func newPinCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin or unpin a conversation",
		Long:  "Toggle the pinned flag. Pinned conversations are listed first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConversation(cmd, opts, args[0], func(a *app) error {
				return a.manager.PinConversation(cmd.Context(), args[0])
			})
		},
	}
}

// withConversation opens the app, checks that id exists and runs fn.
func withConversation(cmd *cobra.Command, opts *rootOptions, id string, fn func(a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts, appOptions{errOut: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireUser(); err != nil {
		return err
	}
	if err := a.manager.FetchConversations(ctx); err != nil {
		return err
	}
	if _, ok := a.manager.Find(id); !ok {
		return &NotFoundError{Resource: "conversation", ID: id}
	}
	return fn(a)
}

// =============================================================================
// DELETE
// =============================================================================

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete one or more conversations",
		Long:    "Delete conversations and all their messages. Several ids are removed in one batch.",
		Example: `  ally delete 6f1c2b1e-...
  ally delete --yes 6f1c2b1e-... 0b9a4c77-...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			a, err := openApp(ctx, opts, appOptions{errOut: out})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireUser(); err != nil {
				return err
			}
			if err := a.manager.FetchConversations(ctx); err != nil {
				return err
			}

			ids := dedupe(args)
			for _, id := range ids {
				if _, ok := a.manager.Find(id); !ok {
					return &NotFoundError{Resource: "conversation", ID: id}
				}
			}

			if !yes {
				question := "Delete conversation?"
				if len(ids) > 1 {
					question = fmt.Sprintf("Delete %d conversations?", len(ids))
				}
				ok, err := confirm(cmd.InOrStdin(), out, question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, DimStyle.Render("Cancelled."))
					return nil
				}
			}

			if len(ids) == 1 {
				_, err := a.manager.DeleteConversation(ctx, ids[0])
				return err
			}
			if _, err := a.manager.BulkDeleteConversations(ctx, ids); err != nil {
				return fmt.Errorf("failed to delete conversations: %w", err)
			}
			fmt.Fprintf(out, "%s %d conversations\n", SuccessStyle.Render("Deleted"), len(ids))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on in. Anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
