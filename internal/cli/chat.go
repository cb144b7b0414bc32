// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/annotate"
	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/conversation"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/ui/chat"
)

// recentLimit caps /history output in the REPL.
const recentLimit = 10

var errNoAnswer = errors.New("ally could not answer, please try again")

func newChatCommand(opts *rootOptions) *cobra.Command {
	var resume string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Ally in a line-mode REPL",
		Long: `Start a line-mode conversation. Every exchange is saved to your history.

Commands during chat:
  /new           start a new conversation
  /history       list recent conversations
  /open <id>     continue a saved conversation
  /help          show this help
  /quit          exit (Ctrl+D also works)

Enter the number of a suggested follow-up to send it.`,
		Example: `  ally chat
  ally chat --resume 6f1c2b1e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, resume)
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "continue the conversation with this id")
	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, resume string) error {
	ctx := cmd.Context()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	a, err := openApp(ctx, opts, appOptions{errOut: errOut})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireUser(); err != nil {
		return err
	}

	client, err := a.assistant()
	if err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	if client == nil {
		return &ConfigError{Err: errors.New("assistant not configured: set assistant.api_key or ALLY_API_KEY")}
	}

	repl := newREPL(a.manager, client, a.logger)
	if resume != "" {
		if err := repl.open(ctx, resume, out); err != nil {
			return err
		}
	} else {
		repl.greet(out)
	}

	input := newLineInput()
	defer input.Close()

	// Ctrl+C while a reply streams cancels only that reply.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			repl.cancelReply()
		}
	}()

	for {
		line, err := input.Read(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin.
			fmt.Fprintln(out)
			return nil
		}
		quit, err := repl.handle(ctx, line, out)
		if err != nil {
			DisplayError(errOut, err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

// =============================================================================
// REPL STATE
// =============================================================================

// repl is one line-mode chat session over the conversation manager.
type repl struct {
	manager   *conversation.Manager
	assistant chat.Replier
	logger    *zap.Logger

	messages  []model.Message
	followUps []model.FollowUpItem

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newREPL(manager *conversation.Manager, assistant chat.Replier, logger *zap.Logger) *repl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &repl{
		manager:   manager,
		assistant: assistant,
		logger:    logger,
		messages:  manager.StartNewConversation(),
	}
}

func (r *repl) greet(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n\n", AllyStyle.Render("Ally:"), model.GreetingText)
}

// handle processes one input line. It reports true when the user asked
// to quit.
func (r *repl) handle(ctx context.Context, line string, w io.Writer) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	if strings.HasPrefix(line, "/") {
		return r.command(ctx, line, w)
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(r.followUps) {
		line = r.followUps[n-1].Template
		fmt.Fprintln(w, DimStyle.Render("> "+line))
	}
	return false, r.send(ctx, line, w)
}

func (r *repl) command(ctx context.Context, line string, w io.Writer) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/q", "/exit":
		return true, nil
	case "/new", "/n":
		r.messages = r.manager.StartNewConversation()
		r.followUps = nil
		r.greet(w)
	case "/history", "/h":
		return false, r.history(ctx, w)
	case "/open", "/o":
		if len(fields) < 2 {
			return false, &UsageError{Field: "command", Value: line, Reason: "missing conversation id", Example: "/open <id>"}
		}
		return false, r.open(ctx, fields[1], w)
	case "/help", "/?":
		fmt.Fprintln(w, "/new  /history  /open <id>  /help  /quit")
	default:
		return false, &UsageError{Field: "command", Value: fields[0], Reason: "unknown command", Example: "/help"}
	}
	return false, nil
}

func (r *repl) history(ctx context.Context, w io.Writer) error {
	if err := r.manager.FetchConversations(ctx); err != nil {
		return err
	}
	convs := r.manager.Conversations()
	if len(convs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversations yet."))
		return nil
	}
	if len(convs) > recentLimit {
		convs = convs[:recentLimit]
	}
	for _, c := range convs {
		fmt.Fprintln(w, conversationLine(c))
	}
	return nil
}

// open makes id the active conversation and replays it.
func (r *repl) open(ctx context.Context, id string, w io.Writer) error {
	if err := r.manager.FetchConversations(ctx); err != nil {
		return err
	}
	if _, ok := r.manager.Find(id); !ok {
		return &NotFoundError{Resource: "conversation", ID: id}
	}
	msgs, err := r.manager.LoadConversation(ctx, id)
	if err != nil {
		return err
	}
	r.messages = msgs
	r.followUps = nil
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			fmt.Fprintf(w, "%s %s\n", PromptStyle.Render("you>"), m.Content)
			continue
		}
		clean, _ := annotate.ParseFollowUpSuggestions(m.Content)
		fmt.Fprintf(w, "%s %s\n\n", AllyStyle.Render("Ally:"), clean)
	}
	return nil
}

// send streams a reply to text and saves the exchange. A failed or
// cancelled reply is dropped and nothing is stored.
func (r *repl) send(ctx context.Context, text string, w io.Writer) error {
	userMsg := model.NewUserMessage(text)
	history := append(append([]model.Message(nil), r.messages...), userMsg)

	replyCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}()

	fmt.Fprint(w, AllyStyle.Render("Ally:")+" ")
	var raw strings.Builder
	printed := 0
	reply, err := r.assistant.Reply(replyCtx, history, r.manager.SelectedAquarium(), func(chunk string) {
		raw.WriteString(chunk)
		printed = printDelta(w, annotate.VisibleWhileStreaming(raw.String()), printed)
	})
	if err != nil {
		fmt.Fprintln(w)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(w, WarningStyle.Render("[Cancelled]"))
			return nil
		}
		r.logger.Warn("Reply failed", zap.Error(err))
		return errNoAnswer
	}

	clean, followUps := annotate.ParseFollowUpSuggestions(reply)
	printDelta(w, clean, printed)
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	r.followUps = followUps
	for i, f := range followUps {
		fmt.Fprintf(w, "  %s %s\n", DimStyle.Render(strconv.Itoa(i+1)+"."), f.Label)
	}
	for _, qa := range annotate.DetectQuickActions(clean) {
		fmt.Fprintf(w, "  %s %s %s\n", DimStyle.Render("→"), qa.Label, DimStyle.Render(qa.Type.Route()))
	}

	assistantMsg := model.NewAssistantMessage(reply)
	r.messages = append(history, assistantMsg)
	if _, err := r.manager.SaveConversation(ctx, userMsg, assistantMsg); err != nil {
		return err
	}
	return nil
}

// cancelReply stops the reply in flight, if any.
func (r *repl) cancelReply() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// printDelta writes the part of visible past printed bytes and returns the
// new printed length. Text that shrank (a follow-up marker being cut) is
// not reprinted.
func printDelta(w io.Writer, visible string, printed int) int {
	if len(visible) <= printed {
		return printed
	}
	fmt.Fprint(w, visible[printed:])
	return len(visible)
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineInput provides history and line editing for the REPL.
type lineInput struct {
	line        *liner.State
	historyFile string
}

func newLineInput() *lineInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &lineInput{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return in
}

// Read prompts for one line and records it in the history.
func (in *lineInput) Read(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

// Close saves the history 0600 and restores the terminal.
func (in *lineInput) Close() {
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}
