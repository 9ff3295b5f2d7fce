// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// PostIDHeader optionally names the post a streamed generation was
// stored under.
const PostIDHeader = "X-Post-Id"

// =============================================================================
// GENERATION OPERATIONS
// =============================================================================

// Stream is an open generation response. The caller must Close it.
type Stream struct {
	Body      io.ReadCloser
	PostID    string
	RequestID string
}

// Close releases the connection.
func (s *Stream) Close() error {
	if s == nil || s.Body == nil {
		return nil
	}
	return s.Body.Close()
}

// GenerateStream starts a streamed generation. A 403 is reported as
// ErrQuotaExceeded carrying the server's message, before any body is read.
func (c *Client) GenerateStream(ctx context.Context, in GenerateRequest) (*Stream, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/generate_stream", in, authRequired)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain, application/octet-stream")

	resp, err := c.send(c.streamHTTP, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, readErr := c.readBody(resp)
		if readErr != nil {
			body = nil
		}
		return nil, handleErrorResponse(resp.StatusCode, body, true)
	}

	return &Stream{
		Body:      resp.Body,
		PostID:    strings.TrimSpace(resp.Header.Get(PostIDHeader)),
		RequestID: req.Header.Get(RequestIDHeader),
	}, nil
}

// GenerateFast runs a non-streamed generation and returns the whole text.
// The backend reports model failures as {"error": ...} with status 200;
// those come back as ErrServer.
func (c *Client) GenerateFast(ctx context.Context, in FastRequest) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/generate_fast", in, authOptional)
	if err != nil {
		return "", err
	}
	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", handleErrorResponse(resp.StatusCode, body, true)
	}

	var out FastResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &Error{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if out.Error != "" {
		return "", &Error{Type: ErrTypeServer, Status: resp.StatusCode, Message: out.Error}
	}
	return out.Output, nil
}

// GenerateImage asks for an image illustrating prompt and returns its
// reference.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var out ImageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate_image", ImageRequest{Prompt: prompt}, authRequired, &out); err != nil {
		return "", err
	}
	ref := out.Reference()
	if ref == "" {
		return "", &Error{Type: ErrTypeInvalidResponse, Message: "image response carried no reference"}
	}
	return ref, nil
}
