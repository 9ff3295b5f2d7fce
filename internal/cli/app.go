// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/scribe-tui/internal/account"
	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/config"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/logging"
	"github.com/jeranaias/scribe-tui/internal/session"
	"github.com/jeranaias/scribe-tui/internal/storage"
)

const (
	// DatabaseFile holds the fallback registry and the conversation cache.
	DatabaseFile = "scribe.db"
	// HistoryFile holds the REPL line history.
	HistoryFile = "chat_history"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App holds the collaborators shared by every command.
type App struct {
	Config   *config.Config
	Session  *session.Context
	DB       *storage.DB
	Client   *api.Client
	Manager  *conversation.Manager
	Accounts *account.Service

	dataDir     string
	sessionPath string
	logCloser   io.Closer

	In   io.Reader
	Out  io.Writer
	Err  io.Writer
	JSON bool
}

// appOptions controls NewApp.
type appOptions struct {
	// QuietLogs keeps logs off the terminal; used while the dashboard runs.
	QuietLogs bool
	// WithCaller adds caller information to log lines.
	WithCaller bool
}

// NewApp wires the collaborators from cfg.
func NewApp(cfg *config.Config, opts appOptions) (*App, error) {
	closer, err := logging.Init(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		Quiet:      opts.QuietLogs,
		WithCaller: opts.WithCaller,
	})
	if err != nil {
		return nil, &configError{err: err}
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		closer.Close()
		return nil, &configError{err: errors.Wrap(err, "resolve data directory")}
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		closer.Close()
		return nil, errors.Wrap(err, "create data directory")
	}

	sessionPath := filepath.Join(dataDir, session.FileName)
	sess := session.New(session.NewFileStore(sessionPath))
	if err := sess.Hydrate(); err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable session")
	}

	db, err := storage.Open(filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		closer.Close()
		return nil, err
	}

	client := api.NewClient(&api.Config{
		BaseURL:           cfg.Backend.URL,
		Timeout:           cfg.Backend.Timeout(),
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}, sess)

	app := &App{
		Config:      cfg,
		Session:     sess,
		DB:          db,
		Client:      client,
		dataDir:     dataDir,
		sessionPath: sessionPath,
		logCloser:   closer,
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
	}

	app.Manager = conversation.NewManager(client, conversation.Options{
		Cache: db.Conversations(),
	})
	app.Accounts = account.NewService(
		client,
		sess,
		db.Accounts(),
		account.NewVerifier(cfg.Verification.CodeTTL()),
		app.codeSender(),
	)
	return app, nil
}

// codeSender delivers codes through EmailJS when configured and prints
// them otherwise.
func (a *App) codeSender() account.CodeSender {
	v := a.Config.Verification
	sender := &account.EmailJSSender{
		Endpoint:   v.Endpoint,
		ServiceID:  v.ServiceID,
		TemplateID: v.TemplateID,
		PublicKey:  v.PublicKey,
	}
	if sender.Configured() {
		return sender
	}
	log.Debug().Msg("email delivery not configured; printing verification codes")
	return account.WriterSender{W: a.Err}
}

// WatchSession follows login changes made by other processes until ctx
// is done.
func (a *App) WatchSession(ctx context.Context) {
	go func() {
		if err := a.Session.WatchFile(ctx, a.sessionPath); err != nil {
			log.Debug().Err(err).Msg("session watch stopped")
		}
	}()
}

// RequireLogin fails unless someone is logged in.
func (a *App) RequireLogin() error {
	if !a.Session.IsAuthenticated() {
		return ErrNotLoggedIn
	}
	return nil
}

// HistoryPath is where the REPL keeps its line history.
func (a *App) HistoryPath() string {
	return filepath.Join(a.dataDir, HistoryFile)
}

// Close releases the database and the log file.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
	_ = a.logCloser.Close()
}
