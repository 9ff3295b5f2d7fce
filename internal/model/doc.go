// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by every scribe layer:
// conversations, messages, conversation references and the content-type
// catalog shown in the prompt selector.
//
// # Conversation references
//
// A conversation that has not yet been confirmed by the server carries a
// New reference. It only becomes Existing(id) once the backend reports the
// id it stored the conversation under:
//
//	conv := model.NewConversation("Write a tagline")
//	conv.Ref.IsNew()          // true
//	conv.Ref = model.ExistingRef("42")
//
// # Message payloads
//
// The backend stores a conversation's messages as a JSON-encoded string.
// DecodeMessages parses that string and rejects unknown roles, so nothing
// past the API boundary ever sees an unvalidated message.
package model
