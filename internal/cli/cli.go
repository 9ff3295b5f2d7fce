// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeranaias/scribe-tui/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// EnvPrefix prefixes every environment variable the command tree reads.
const EnvPrefix = "SCRIBE"

// configFlags maps persistent flags to config keys.
var configFlags = map[string]string{
	"backend-url": "backend.url",
	"data-dir":    "storage.data_dir",
	"log-level":   "log.level",
	"log-file":    "log.file",
	"log-format":  "log.format",
	"theme":       "ui.theme",
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// rootOptions is shared by every subcommand.
type rootOptions struct {
	v          *viper.Viper
	configPath string
	json       bool
	withCaller bool

	in  io.Reader
	out io.Writer
	err io.Writer
}

// loadConfig reads the config file and layers env and flags over it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &configError{err: err}
	}
	if err := cfg.Overlay(o.v); err != nil {
		return nil, &configError{err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: errors.Wrap(err, "invalid config")}
	}
	return cfg, nil
}

// open builds the App for a command.
func (o *rootOptions) open(quietLogs bool) (*App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	app, err := NewApp(cfg, appOptions{QuietLogs: quietLogs, WithCaller: o.withCaller})
	if err != nil {
		return nil, err
	}
	app.In, app.Out, app.Err = o.in, o.out, o.err
	app.JSON = o.json
	return app, nil
}

// NewRootCommand builds the command tree.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{v: viper.New(), in: in, out: out, err: errOut}

	root := &cobra.Command{
		Use:           "scribe",
		Short:         "scribe is a terminal client for the Scribe content generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts, tuiFlags{})
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.scribe/config.toml)")
	pf.String("backend-url", "", "backend base URL")
	pf.String("data-dir", "", "directory for the session, database and history")
	pf.String("log-level", "", "log level (trace, debug, info, warn, error)")
	pf.String("log-file", "", "write logs to this file as well")
	pf.String("log-format", "", "log format (text or json)")
	pf.String("theme", "", "color theme (dark, light, auto)")
	pf.BoolVar(&opts.json, "json", false, "machine-readable output")
	pf.BoolVar(&opts.withCaller, "with-caller", false, "add caller information to log lines")

	opts.v.SetEnvPrefix(EnvPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	opts.v.AutomaticEnv()
	for flag, key := range configFlags {
		if err := opts.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		newTUICommand(opts),
		newAskCommand(opts),
		newChatCommand(opts),
		newLoginCommand(opts),
		newRegisterCommand(opts),
		newLogoutCommand(opts),
		newResetPasswordCommand(opts),
		newProfileCommand(opts),
		newPlansCommand(opts),
		newConversationsCommand(opts),
		newConfigCommand(opts),
		newDoctorCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes args against a fresh command tree.
func Run(args []string, in io.Reader, out, errOut io.Writer) int {
	root := NewRootCommand(in, out, errOut)
	root.SetArgs(args)

	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitSuccess
	}
	if isCobraUsageError(err) {
		msg := err.Error()
		if cmd != nil {
			msg += "\n" + cmd.UsageString()
		}
		err = &UsageError{Message: msg}
	}
	jsonMode, _ := root.PersistentFlags().GetBool("json")
	DisplayError(errOut, err, jsonMode)
	return GetExitCode(err)
}

// isCobraUsageError recognizes argument errors cobra reports as plain
// errors.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "accepts ", "requires at least", "requires at most", "invalid argument"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
