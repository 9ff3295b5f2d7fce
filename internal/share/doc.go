// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package share copies message content to the clipboard and builds social
// share-intent URLs.
package share
