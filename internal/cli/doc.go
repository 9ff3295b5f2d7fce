// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the scribe command tree.
//
// Commands share one wiring path (NewApp): configuration from
// ~/.scribe/config.toml layered with SCRIBE_* environment variables and
// flags, zerolog logging, the persisted session, the SQLite registry and
// conversation cache, the backend client and the conversation manager.
//
// # Commands
//
//   - scribe, scribe tui: full-screen dashboard
//   - ask: one prompt, reply streamed to stdout
//   - chat: line-mode REPL with slash commands
//   - login, register, logout, reset-password, profile
//   - conversations list|show|rename|delete|export, plans
//   - config show|get|set|reset|path, doctor, version
//
// Errors map to exit codes in GetExitCode: 2 usage, 3 config, 4 auth,
// 5 network, 9 quota.
package cli
