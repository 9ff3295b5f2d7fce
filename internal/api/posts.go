// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// =============================================================================
// POST OPERATIONS
// =============================================================================

// ListPosts returns the user's saved conversations in server order.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var out []Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts", nil, authRequired, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Post{}
	}
	return out, nil
}

// RenamePost sets a post's title.
func (c *Client) RenamePost(ctx context.Context, id, title string) error {
	return c.UpdatePost(ctx, id, PostUpdate{Title: &title})
}

// SavePostMessages replaces a post's stored message list.
func (c *Client) SavePostMessages(ctx context.Context, id, messages string) error {
	return c.UpdatePost(ctx, id, PostUpdate{Messages: &messages})
}

// UpdatePost applies a partial update.
func (c *Client) UpdatePost(ctx context.Context, id string, update PostUpdate) error {
	path, err := postPath(id)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, path, update, authRequired, nil)
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	path, err := postPath(id)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, authRequired, nil)
}

func postPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &Error{Type: ErrTypeBadRequest, Message: "post id is required"}
	}
	return "/api/posts/" + url.PathEscape(id), nil
}
