// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage is scribe's local SQLite database.
//
// It holds two things:
//
//   - Accounts: the local fallback registry of email and bcrypt password
//     hash, used for password resets and for logging in while the backend
//     is unreachable.
//   - Conversations: a cache of the last conversation list fetched from
//     the backend, so history can still be browsed offline.
//
// # Usage
//
//	db, err := storage.Open(filepath.Join(dataDir, storage.FileName))
//	defer db.Close()
//	reg := db.Accounts()
//	cache := db.Conversations()
//
// The database lives in ~/.scribe/scribe.db by default.
package storage
