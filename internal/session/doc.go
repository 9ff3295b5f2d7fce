// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds who is logged in.
//
// A Context keeps the bearer token, email and display name of the current
// user and persists them through a Store, so a login survives restarts and
// is visible to every scribe process sharing the data directory.
//
// # Lifecycle
//
//	sess := session.New(session.NewFileStore(path))
//	if err := sess.Hydrate(); err != nil { ... }
//	unsubscribe := sess.Subscribe(func(s session.State) { ... })
//	defer unsubscribe()
//	go sess.WatchFile(ctx, path) // pick up logins from other terminals
//
// Context implements api.TokenSource.
package session
