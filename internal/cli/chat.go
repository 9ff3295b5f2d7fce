// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/export"
	"github.com/jeranaias/scribe-tui/internal/model"
	"github.com/jeranaias/scribe-tui/internal/share"
	"github.com/jeranaias/scribe-tui/internal/ui/chat"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
	"github.com/jeranaias/scribe-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader(historyFile string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlash)

	r := &lineReader{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Prompt reads one line; non-empty lines are added to the history.
func (r *lineReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (r *lineReader) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		_, _ = r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

var slashCommands = []string{
	"/new", "/list", "/open", "/rename", "/delete", "/image",
	"/copy", "/share", "/export", "/type", "/plans", "/help", "/quit",
}

func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession runs slash commands and prompts against the manager.
type chatSession struct {
	app     *App
	mgr     *conversation.Manager
	printer *replyPrinter
	copier  *share.Copier
	sharer  *share.Sharer
	out     io.Writer
	errOut  io.Writer

	// confirm asks a yes/no question.
	confirm func(question string) (bool, error)

	fast        bool
	contentType string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newChatCommand(opts *rootOptions) *cobra.Command {
	var fast bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive line-mode chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireLogin(); err != nil {
				return err
			}
			return runChat(cmd.Context(), app, fast)
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", false, "use the non-streaming endpoint")
	return cmd
}

func runChat(ctx context.Context, app *App, fast bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.WatchSession(ctx)

	reader := newLineReader(app.HistoryPath())
	defer reader.Close()

	s := newChatSession(app, fast)
	s.confirm = func(question string) (bool, error) {
		answer, err := reader.Prompt(question + " [y/N] ")
		if err != nil {
			return false, nil
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
	unsubscribe := followManager(s.mgr, s.printer, s.errOut)
	defer unsubscribe()

	// The first interrupt cancels a running generation; at the prompt it
	// is handled by liner.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if s.cancelRunning() {
				fmt.Fprintln(s.errOut, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	if err := s.mgr.LoadConversations(ctx); err != nil {
		fmt.Fprintln(s.errOut, WarningStyle.Render("Could not load chats: "+api.Message(err)))
	}
	fmt.Fprintln(s.out, TitleStyle.Render("Scribe chat")+" "+DimStyle.Render("type /help for commands"))

	for {
		input, err := reader.Prompt(PromptStyle.Render("scribe> "))
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("prompt closed")
			}
			fmt.Fprintln(s.out)
			return nil
		}
		more, err := s.handleLine(ctx, input)
		if err != nil {
			fmt.Fprintln(s.errOut, styles.RenderError(describeError(err)))
		}
		if !more {
			return nil
		}
		if !app.Session.IsAuthenticated() {
			return ErrNotLoggedIn
		}
	}
}

func newChatSession(app *App, fast bool) *chatSession {
	return &chatSession{
		app:         app,
		mgr:         app.Manager,
		printer:     newReplyPrinter(app.Out),
		copier:      share.NewCopier(app.Out),
		sharer:      share.NewSharer(),
		out:         app.Out,
		errOut:      app.Err,
		confirm:     func(string) (bool, error) { return false, nil },
		fast:        fast,
		contentType: app.Config.UI.ContentType,
	}
}

// withCancel runs fn with a context the interrupt handler can cancel.
func (s *chatSession) withCancel(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()
	return fn(ctx)
}

func (s *chatSession) cancelRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// handleLine runs one line of input. It reports false when the session
// should end.
func (s *chatSession) handleLine(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return true, nil
	}
	if !strings.HasPrefix(input, "/") {
		return true, s.send(ctx, input)
	}

	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]
	switch name {
	case "/quit", "/exit", "/q":
		return false, nil
	case "/help", "/?":
		s.printHelp()
	case "/new":
		if err := s.mgr.StartNewConversation(); err != nil {
			return true, err
		}
		fmt.Fprintln(s.out, DimStyle.Render("Started a new chat."))
	case "/list":
		s.printList()
	case "/open":
		if len(args) != 1 {
			return true, ErrMissingArgument("ID", "/open ID")
		}
		return true, s.open(args[0])
	case "/rename":
		if len(args) < 2 {
			return true, ErrMissingArgument("TITLE", "/rename ID TITLE")
		}
		title := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(input, name)), args[0]))
		if err := s.mgr.RenameConversation(ctx, args[0], title); err != nil {
			return true, err
		}
		fmt.Fprintln(s.out, SuccessStyle.Render("Chat renamed."))
	case "/delete":
		if len(args) != 1 {
			return true, ErrMissingArgument("ID", "/delete ID")
		}
		return true, s.delete(ctx, args[0])
	case "/image":
		return true, s.image(ctx)
	case "/copy":
		return true, s.copyReply()
	case "/share":
		if len(args) != 1 {
			return true, ErrMissingArgument("PLATFORM", "/share facebook|twitter|linkedin|whatsapp")
		}
		return true, s.shareReply(args[0])
	case "/export":
		format := "md"
		if len(args) > 0 {
			format = args[0]
		}
		return true, s.exportActive(format)
	case "/type":
		return true, s.setType(strings.TrimSpace(strings.TrimPrefix(input, name)))
	case "/plans":
		return true, s.printPlans(ctx)
	default:
		return true, &UsageError{Message: fmt.Sprintf("unknown command %s (try /help)", name)}
	}
	return true, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func (s *chatSession) send(ctx context.Context, prompt string) error {
	return s.withCancel(ctx, func(ctx context.Context) error {
		s.printer.Arm()
		var err error
		if s.fast {
			err = s.mgr.GenerateFast(ctx, prompt, s.contentType)
		} else {
			err = s.mgr.Generate(ctx, prompt)
		}
		s.printer.Disarm()
		if err != nil {
			// The transcript already shows these.
			if errors.Is(err, api.ErrQuotaExceeded) || errors.Is(err, api.ErrUnauthorized) {
				return nil
			}
			return err
		}
		if s.mgr.ImageOffered() {
			fmt.Fprintln(s.out, DimStyle.Render("Type /image to generate an image for this reply."))
		}
		return nil
	})
}

func (s *chatSession) open(id string) error {
	found, err := s.mgr.SelectConversation(id)
	if err != nil {
		return err
	}
	if !found {
		return errors.Wrapf(conversation.ErrUnknownConversation, "conversation %s", id)
	}
	conv := s.mgr.Active()
	fmt.Fprintln(s.out, TitleStyle.Render(conv.DisplayTitle()))
	for _, msg := range conv.Messages {
		fmt.Fprintln(s.out, LabelStyle.Render(msg.Role.DisplayName()+":")+" "+msg.Content)
		if msg.HasImage() {
			fmt.Fprintln(s.out, DimStyle.Render("  image: "+msg.ImageURL))
		}
	}
	return nil
}

func (s *chatSession) delete(ctx context.Context, id string) error {
	if err := s.mgr.RequestDelete(id); err != nil {
		return err
	}
	ok, err := s.confirm(chat.DeleteConfirmText)
	if err != nil || !ok {
		s.mgr.CancelDelete()
		return err
	}
	if err := s.mgr.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, SuccessStyle.Render("Chat deleted."))
	return nil
}

func (s *chatSession) image(ctx context.Context) error {
	if !s.mgr.ImageOffered() {
		return &UsageError{Message: "the last reply does not offer an image"}
	}
	return s.withCancel(ctx, func(ctx context.Context) error {
		fmt.Fprintln(s.out, DimStyle.Render("Generating image..."))
		if err := s.mgr.GenerateImageForLastMessage(ctx); err != nil {
			return err
		}
		if last, ok := s.mgr.Active().Last(); ok && last.HasImage() {
			fmt.Fprintln(s.out, styles.RenderLink(last.ImageURL))
		}
		return nil
	})
}

func (s *chatSession) lastReply() (string, error) {
	text, ok := s.mgr.Active().LastAssistantContent()
	if !ok || strings.TrimSpace(text) == "" {
		return "", &UsageError{Message: "nothing to copy or share yet"}
	}
	return text, nil
}

func (s *chatSession) copyReply() error {
	text, err := s.lastReply()
	if err != nil {
		return err
	}
	if _, err := s.copier.Copy(text); err != nil {
		return err
	}
	fmt.Fprintln(s.out, SuccessStyle.Render(share.CopiedNotice))
	return nil
}

func (s *chatSession) shareReply(platform string) error {
	text, err := s.lastReply()
	if err != nil {
		return err
	}
	opened, err := s.sharer.Share(share.Platform(strings.ToLower(platform)), text)
	if err != nil {
		return err
	}
	if !opened {
		return &UsageError{Message: fmt.Sprintf("unknown platform %q", platform)}
	}
	fmt.Fprintln(s.out, DimStyle.Render("Opened "+strings.ToLower(platform)+" in your browser."))
	return nil
}

func (s *chatSession) exportActive(format string) error {
	exporter, err := export.ForFormat(format, export.DefaultOptions())
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	conv := s.mgr.Active()
	if conv == nil {
		return &UsageError{Message: "no chat is open"}
	}
	path, err := export.ToFile(conv, exporter, ".")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, styles.RenderSuccess("Exported to "+path))
	return nil
}

func (s *chatSession) setType(name string) error {
	if name == "" {
		for _, ct := range model.ContentTypes {
			marker := "  "
			if ct.Name == s.contentType {
				marker = "* "
			}
			fmt.Fprintln(s.out, marker+ct.Name)
		}
		return nil
	}
	ct, ok := model.FindContentType(name)
	if !ok {
		return &UsageError{Message: fmt.Sprintf("unknown content type %q", name)}
	}
	s.contentType = ct.Name
	fmt.Fprintln(s.out, DimStyle.Render("Content type: "+ct.Name))
	if len(ct.Samples) > 0 {
		fmt.Fprintln(s.out, DimStyle.Render("Try: "+ct.Samples[0]))
	}
	return nil
}

func (s *chatSession) printList() {
	snap := s.mgr.Snapshot()
	if len(snap.History) == 0 {
		fmt.Fprintln(s.out, DimStyle.Render(chat.EmptyHistoryText))
		return
	}
	if snap.Stale {
		fmt.Fprintln(s.out, WarningStyle.Render("offline: showing cached chats"))
	}
	for _, c := range snap.History {
		marker := "  "
		if snap.Active != nil && snap.Active.Ref.Is(c.Ref.ID()) {
			marker = "* "
		}
		fmt.Fprintf(s.out, "%s%-8s %s\n", marker, c.Ref.ID(), util.TruncateWidth(util.SingleLine(c.DisplayTitle()), 60))
	}
}

func (s *chatSession) printPlans(ctx context.Context) error {
	plans, err := s.app.Client.Plans(ctx)
	if err != nil {
		return err
	}
	printPlans(s.out, plans, s.mgr.Snapshot().Account)
	return nil
}

func (s *chatSession) printHelp() {
	rows := [][2]string{
		{"<text>", "send a prompt"},
		{"/new", "start a new chat"},
		{"/list", "list saved chats"},
		{"/open ID", "open a saved chat"},
		{"/rename ID TITLE", "rename a chat"},
		{"/delete ID", "delete a chat (asks first)"},
		{"/image", "generate the offered image"},
		{"/copy", "copy the last reply"},
		{"/share PLATFORM", "share the last reply"},
		{"/export [md|json]", "export the open chat"},
		{"/type [NAME]", "list or pick a content type"},
		{"/plans", "show plans and credits"},
		{"/quit", "leave"},
	}
	for _, r := range rows {
		fmt.Fprintf(s.out, "  %-18s %s\n", r[0], DimStyle.Render(r[1]))
	}
}
