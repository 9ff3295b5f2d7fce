// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// =============================================================================
// ACCOUNT OPERATIONS
// =============================================================================

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", creds, authNone, &out); err != nil {
		return nil, err
	}
	if out.BearerToken() == "" {
		return nil, &Error{Type: ErrTypeInvalidResponse, Message: "login response carried no token"}
	}
	if out.Email == "" {
		out.Email = creds.Email
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, creds Credentials) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/register", creds, authNone, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the backend the session ended. The backend keeps no
// server-side session, so failures are harmless.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/logout", nil, authOptional, nil)
}

// Me returns plan and credit information for the current user.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var out UserInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, authRequired, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the current user's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/profile", nil, authRequired, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the current user's email and, when set, password.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := c.doJSON(ctx, http.MethodPut, "/api/profile", update, authRequired, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plans returns per-plan credit allotments. Backends without the endpoint
// yield DefaultPlans.
func (c *Client) Plans(ctx context.Context) (Plans, error) {
	var out Plans
	err := c.doJSON(ctx, http.MethodGet, "/api/plans", nil, authNone, &out)
	if TypeOf(err) == ErrTypeNotFound {
		return DefaultPlans(), nil
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return DefaultPlans(), nil
	}
	return out, nil
}
