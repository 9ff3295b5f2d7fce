// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the scribe backend.
//
// It covers account endpoints (login, register, profile, plan info), the
// saved-conversation ("post") endpoints and the three generation endpoints.
// Authenticated calls take their bearer token from a TokenSource, which the
// session context implements.
//
// Errors are returned as *Error values classified by ErrorType. Use
// errors.Is with the sentinels to branch on them:
//
//	stream, err := client.GenerateStream(ctx, req)
//	switch {
//	case errors.Is(err, api.ErrQuotaExceeded):
//		// show the server message, offer an upgrade
//	case errors.Is(err, api.ErrUnauthorized):
//		// send the user to login
//	}
//
// The client is safe for concurrent use. All requests share one
// token-bucket limiter.
package api
