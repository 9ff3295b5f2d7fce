// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for scribe.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags and SCRIBE_* variables bound through viper (Overlay)
//   - Environment variables (ApplyEnvOverrides)
//   - ~/.scribe/config.toml ($SCRIBE_HOME overrides the directory)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Backend.Timeout()
package config
