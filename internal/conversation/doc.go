// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation is the session manager behind every scribe surface.
//
// A Manager owns the conversation list, the active conversation, the
// pending prompt and the transient flags (loading, pending delete, image
// offer). It reconciles that state with the backend:
//
//   - LoadConversations replaces the list with the server's.
//   - RenameConversation applies a new title only after the server accepted it.
//   - RequestDelete, ConfirmDelete and CancelDelete gate deletion behind an
//     explicit confirmation; ConfirmDelete refetches the whole list.
//   - Generate streams a reply into a placeholder assistant message, one
//     generation at a time.
//   - GenerateImageForLastMessage attaches an image to the last message and
//     saves the transcript.
//
// Views never touch the state directly. They read deep copies through
// Snapshot and learn about changes through Subscribe:
//
//	mgr := conversation.NewManager(client, conversation.Options{Cache: db.Conversations()})
//	unsubscribe := mgr.Subscribe(func(ev conversation.Event) {
//		if ev.Kind == conversation.EventChanged {
//			redraw(mgr.Snapshot())
//		}
//	})
//	defer unsubscribe()
//	err := mgr.Generate(ctx, "Write a tagline")
//
// A Manager is safe for concurrent use. Network calls run without the lock
// held; listeners are called without the lock held and may call back into
// the Manager.
package conversation
