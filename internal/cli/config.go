// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/scribe-tui/internal/config"
)

// secretKeys are masked by config show.
var secretKeys = map[string]bool{
	"verification.public_key": true,
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			values := configValues(cfg)
			if opts.json {
				return writeJSON(opts.out, values)
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(opts.out, "%-28s %v\n", k, values[k])
			}
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return &UsageError{Message: err.Error()}
			}
			fmt.Fprintln(opts.out, v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Set a configuration value in the config file",
		Example: "  scribe config set backend.url https://scribe.example.com\n  scribe config set ui.theme light",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg, err := opts.fileConfig()
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &UsageError{Message: err.Error()}
			}
			if err := cfg.Validate(); err != nil {
				return &configError{err: err}
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return NewCommandError("config", "set", "could not write "+path, err)
			}
			fmt.Fprintln(opts.out, SuccessStyle.Render(fmt.Sprintf("%s = %s", args[0], args[1])))
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset the config file to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.filePath()
			if err != nil {
				return err
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return NewCommandError("config", "reset", "could not write "+path, err)
			}
			fmt.Fprintln(opts.out, SuccessStyle.Render("Configuration reset to defaults."))
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Show the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.filePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, p)
			return nil
		},
	}

	cmd.AddCommand(show, get, set, reset, path)
	cmd.RunE = show.RunE
	return cmd
}

// filePath returns the config file the command tree reads.
func (o *rootOptions) filePath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	if err := config.EnsureConfigDir(); err != nil {
		return "", &configError{err: err}
	}
	p, err := config.ConfigPathTOML()
	if err != nil {
		return "", &configError{err: err}
	}
	return p, nil
}

// fileConfig loads the config file alone, without env or flag overrides,
// so that saving it does not persist them.
func (o *rootOptions) fileConfig() (string, *config.Config, error) {
	path, err := o.filePath()
	if err != nil {
		return "", nil, err
	}
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return "", nil, &configError{err: errors.Wrapf(err, "load %s", path)}
		}
	}
	return path, cfg, nil
}

func configValues(cfg *config.Config) map[string]interface{} {
	values := make(map[string]interface{})
	for _, key := range config.GetAllKeys() {
		v, err := cfg.Get(key)
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok && secretKeys[key] {
			v = maskSecret(s)
		}
		values[key] = v
	}
	return values
}

// maskSecret keeps the first and last characters of long values.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json {
				return writeJSON(opts.out, map[string]string{
					"version":    Version,
					"git_commit": GitCommit,
					"build_date": BuildDate,
				})
			}
			fmt.Fprintf(opts.out, "scribe %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
