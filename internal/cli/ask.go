// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/model"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
)

type askFlags struct {
	postID      string
	fast        bool
	contentType string
	markdown    bool
	image       bool
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	var flags askFlags
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send one prompt and print the reply",
		Example: `  scribe ask "Write a tagline for our Amlou"
  scribe ask --post 42 "Make it shorter"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runAsk(ctx, app, strings.Join(args, " "), flags)
		},
	}
	cmd.Flags().StringVar(&flags.postID, "post", "", "continue the conversation with this id")
	cmd.Flags().BoolVar(&flags.fast, "fast", false, "use the non-streaming endpoint")
	cmd.Flags().StringVar(&flags.contentType, "type", "", "content type sent with --fast")
	cmd.Flags().BoolVar(&flags.markdown, "markdown", false, "render the finished reply as markdown instead of streaming it")
	cmd.Flags().BoolVar(&flags.image, "image", false, "generate the offered image after the reply")
	return cmd
}

func runAsk(ctx context.Context, app *App, prompt string, flags askFlags) error {
	if err := app.RequireLogin(); err != nil {
		return err
	}
	if strings.TrimSpace(prompt) == "" {
		return conversation.ErrEmptyPrompt
	}
	if flags.contentType != "" {
		if _, ok := model.FindContentType(flags.contentType); !ok {
			return &UsageError{Message: fmt.Sprintf("unknown content type %q", flags.contentType)}
		}
	}

	mgr := app.Manager
	if flags.postID != "" {
		if err := mgr.LoadConversations(ctx); err != nil && !mgr.Snapshot().Stale {
			return err
		}
		found, err := mgr.SelectConversation(flags.postID)
		if err != nil {
			return err
		}
		if !found {
			return errors.Wrapf(conversation.ErrUnknownConversation, "conversation %s", flags.postID)
		}
	}

	streaming := !flags.markdown && !app.JSON
	var printer *replyPrinter
	if streaming {
		printer = newReplyPrinter(app.Out)
	}
	unsubscribe := followManager(mgr, printer, app.Err)
	defer unsubscribe()

	if printer != nil {
		printer.Arm()
	}
	var err error
	if flags.fast {
		err = mgr.GenerateFast(ctx, prompt, flags.contentType)
	} else {
		err = mgr.Generate(ctx, prompt)
	}
	if printer != nil {
		printer.Disarm()
	}
	if err != nil {
		return err
	}

	active := mgr.Active()
	reply, _ := active.LastAssistantContent()
	switch {
	case app.JSON:
		if err := writeJSON(app.Out, askResult{ID: active.Ref.ID(), Title: active.Title, Reply: reply}); err != nil {
			return err
		}
	case flags.markdown:
		fmt.Fprint(app.Out, renderMarkdown(reply, GetTerminalWidth()))
	}

	if !mgr.ImageOffered() {
		return nil
	}
	if !flags.image {
		fmt.Fprintln(app.Err, styles.RenderInfo("This reply offers an image; rerun with --image or use `scribe chat` and /image."))
		return nil
	}
	if err := mgr.GenerateImageForLastMessage(ctx); err != nil {
		return err
	}
	if last, ok := mgr.Active().Last(); ok && last.HasImage() {
		fmt.Fprintln(app.Out, last.ImageURL)
	}
	return nil
}

type askResult struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Reply string `json:"reply"`
}
