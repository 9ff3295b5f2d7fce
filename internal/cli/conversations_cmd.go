// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/export"
	"github.com/jeranaias/scribe-tui/internal/model"
	"github.com/jeranaias/scribe-tui/internal/ui/chat"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
	"github.com/jeranaias/scribe-tui/internal/util"
)

// conversationRow is the JSON shape of a listed conversation.
type conversationRow struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Messages int    `json:"messages"`
	Created  string `json:"created_at,omitempty"`
}

func rowsOf(convs []*model.Conversation) []conversationRow {
	rows := make([]conversationRow, 0, len(convs))
	for _, c := range convs {
		row := conversationRow{ID: c.Ref.ID(), Title: c.Title, Messages: len(c.Messages)}
		if !c.CreatedAt.IsZero() {
			row.Created = c.CreatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, row)
	}
	return rows
}

func newConversationsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "chats"},
		Short:   "List, show, rename and delete saved chats",
	}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()

			var convs []*model.Conversation
			stale := false
			if search != "" {
				// Search runs over the local cache.
				if convs, err = app.DB.Conversations().Search(search); err != nil {
					return err
				}
				stale = true
			} else {
				if err := app.RequireLogin(); err != nil {
					return err
				}
				loadErr := app.Manager.LoadConversations(cmd.Context())
				snap := app.Manager.Snapshot()
				if loadErr != nil && !snap.Stale {
					return loadErr
				}
				convs, stale = snap.History, snap.Stale
			}

			if app.JSON {
				return writeJSON(app.Out, rowsOf(convs))
			}
			printConversations(app.Out, convs, stale)
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "search cached chats by title or content")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a chat transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireLogin(); err != nil {
				return err
			}
			conv, err := openConversation(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(app.Out, map[string]interface{}{
					"id":       conv.Ref.ID(),
					"title":    conv.Title,
					"messages": conv.Messages,
				})
			}
			fmt.Fprintln(app.Out, TitleStyle.Render(conv.DisplayTitle()))
			for _, msg := range conv.Messages {
				fmt.Fprintln(app.Out, RenderSeparator(40))
				fmt.Fprintln(app.Out, LabelStyle.Render(msg.Role.DisplayName()))
				if msg.IsAssistant() {
					fmt.Fprint(app.Out, renderMarkdown(msg.Content, GetTerminalWidth()))
				} else {
					fmt.Fprintln(app.Out, msg.Content)
				}
				if msg.HasImage() {
					fmt.Fprintln(app.Out, DimStyle.Render("image: "+msg.ImageURL))
				}
			}
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename ID TITLE",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireLogin(); err != nil {
				return err
			}
			if err := app.Manager.LoadConversations(cmd.Context()); err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if err := app.Manager.RenameConversation(cmd.Context(), args[0], title); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("Chat renamed."))
			return nil
		},
	}

	var confirmed bool
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireLogin(); err != nil {
				return err
			}
			mgr := app.Manager
			if err := mgr.LoadConversations(cmd.Context()); err != nil {
				return err
			}
			if err := mgr.RequestDelete(args[0]); err != nil {
				return err
			}

			if !confirmed {
				ok, err := NewPrompter(app.In, app.Err).Confirm(chat.DeleteConfirmText)
				if errors.Is(err, io.EOF) {
					mgr.CancelDelete()
					return &UsageError{Message: "refusing to delete without --confirm"}
				}
				if err != nil || !ok {
					mgr.CancelDelete()
					if err == nil {
						fmt.Fprintln(app.Out, DimStyle.Render("Kept."))
					}
					return err
				}
			}

			if err := mgr.ConfirmDelete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("Chat deleted."))
			return nil
		},
	}
	del.Flags().BoolVar(&confirmed, "confirm", false, "delete without asking")

	var format, outDir string
	exp := &cobra.Command{
		Use:   "export ID",
		Short: "Export a chat to a Markdown or JSON file",
		Example: `  scribe conversations export 42
  scribe conversations export 42 --format json --out ./exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.ForFormat(format, export.DefaultOptions())
			if err != nil {
				return &UsageError{Message: err.Error()}
			}
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireLogin(); err != nil {
				return err
			}
			conv, err := openConversation(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			path, err := export.ToFile(conv, exporter, outDir)
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(app.Out, map[string]string{"id": conv.Ref.ID(), "path": path})
			}
			fmt.Fprintln(app.Out, styles.RenderSuccess("Exported to "+path))
			return nil
		},
	}
	exp.Flags().StringVar(&format, "format", "md", "export format: md or json")
	exp.Flags().StringVar(&outDir, "out", ".", "output directory")

	cmd.AddCommand(list, show, rename, del, exp)
	cmd.RunE = list.RunE
	return cmd
}

// openConversation loads the list, tolerating a stale cache, and selects id.
func openConversation(ctx context.Context, app *App, id string) (*model.Conversation, error) {
	if err := app.Manager.LoadConversations(ctx); err != nil && !app.Manager.Snapshot().Stale {
		return nil, err
	}
	found, err := app.Manager.SelectConversation(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(conversation.ErrUnknownConversation, "conversation %s", id)
	}
	return app.Manager.Active(), nil
}

func printConversations(w io.Writer, convs []*model.Conversation, stale bool) {
	if len(convs) == 0 {
		fmt.Fprintln(w, DimStyle.Render(chat.EmptyHistoryText))
		return
	}
	if stale {
		fmt.Fprintln(w, WarningStyle.Render("offline: showing cached chats"))
	}
	for _, c := range convs {
		created := ""
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-8s %-10s %s\n", c.Ref.ID(), created, util.TruncateWidth(util.SingleLine(c.DisplayTitle()), 60))
	}
}

// =============================================================================
// PLANS
// =============================================================================

func newPlansCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Show plans and remaining credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()

			plans, err := app.Client.Plans(cmd.Context())
			if err != nil {
				return err
			}
			var info api.UserInfo
			if app.Session.Token() != "" {
				if me, err := app.Client.Me(cmd.Context()); err == nil {
					info = *me
				}
			}
			if app.JSON {
				return writeJSON(app.Out, plans)
			}
			printPlans(app.Out, plans, info)
			return nil
		},
	}
}

func printPlans(w io.Writer, plans api.Plans, info api.UserInfo) {
	names := make([]string, 0, len(plans))
	for name := range plans {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := plans[name]
		credits := api.Unlimited
		if p.Credits != nil {
			credits = fmt.Sprintf("%g", *p.Credits)
		}
		line := fmt.Sprintf("%-10s %8s credits", name, credits)
		if p.Price != "" {
			line += "  " + p.Price
		}
		if strings.EqualFold(name, info.Plan) {
			line = SuccessStyle.Render(line + "  (current)")
		}
		fmt.Fprintln(w, line)
	}
	if info.Plan != "" {
		fmt.Fprintln(w, RenderLabel("Remaining")+info.CreditsLabel())
	}
}
