// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package account implements login, registration, password reset, profile
// updates and logout.
//
// All form validation happens before any network call. Registration and
// password reset require a six-digit verification code mailed to the
// user; codes are TOTP values bound to the moment they were issued and
// expire after ten minutes.
//
// When the backend cannot be reached, Login falls back to the local
// account registry and records an offline session.
package account
