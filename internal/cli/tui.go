// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/session"
	"github.com/jeranaias/scribe-tui/internal/share"
	"github.com/jeranaias/scribe-tui/internal/ui/chat"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
)

type tuiFlags struct {
	contentType string
	fast        bool
}

func newTUICommand(opts *rootOptions) *cobra.Command {
	var flags tuiFlags
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts, flags)
		},
	}
	cmd.Flags().StringVar(&flags.contentType, "type", "", "preselected content type")
	cmd.Flags().BoolVar(&flags.fast, "fast", false, "use the non-streaming endpoint")
	return cmd
}

func runTUI(opts *rootOptions, flags tuiFlags) error {
	if opts.in == os.Stdin && !IsTTY() {
		return &UsageError{Message: "the dashboard needs a terminal; use `scribe ask` or `scribe chat` instead"}
	}
	app, err := opts.open(true)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.RequireLogin(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.WatchSession(ctx)

	contentType := flags.contentType
	if contentType == "" {
		contentType = app.Config.UI.ContentType
	}

	m := chat.New(chat.Config{
		Manager:     app.Manager,
		Theme:       styles.NewTheme(app.Config.UI.Theme),
		Plans:       app.Client.Plans,
		Copier:      share.NewCopier(app.Out),
		Sharer:      share.NewSharer(),
		ContentType: contentType,
		User:        app.Session.State().DisplayName(),
		Fast:        flags.fast,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithInput(app.In),
		tea.WithOutput(app.Out),
	)

	// A logout in another terminal ends the dashboard.
	unsubscribe := app.Session.Subscribe(func(s session.State) {
		if !s.IsAuthenticated() {
			log.Info().Msg("session ended elsewhere; closing dashboard")
			p.Quit()
		}
	})
	defer unsubscribe()

	final, err := p.Run()
	if err != nil {
		return errors.Wrap(err, "run dashboard")
	}

	fm, ok := final.(chat.Model)
	if !ok {
		return nil
	}
	fm.Close()
	if fm.AuthExpired() {
		if err := app.Session.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear expired session")
		}
		return errors.Wrap(api.ErrUnauthorized, "session expired; run `scribe login`")
	}
	return nil
}
