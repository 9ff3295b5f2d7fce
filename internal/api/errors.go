// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// DefaultQuotaMessage is shown when the backend rejects a generation for
// lack of credits without saying why.
const DefaultQuotaMessage = "No credits left. Please upgrade your plan."

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeQuotaExceeded
	ErrTypeForbidden
	ErrTypeNotFound
	ErrTypeBadRequest
	ErrTypeServer
	ErrTypeInvalidResponse
)

// String returns a short name for logs.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeQuotaExceeded:
		return "quota_exceeded"
	case ErrTypeForbidden:
		return "forbidden"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeBadRequest:
		return "bad_request"
	case ErrTypeServer:
		return "server"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method.
type Error struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Type, so callers can compare against
// the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	ErrConnection      = &Error{Type: ErrTypeConnection, Message: "backend unreachable"}
	ErrTimeout         = &Error{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrUnauthorized    = &Error{Type: ErrTypeUnauthorized, Message: "not authenticated"}
	ErrQuotaExceeded   = &Error{Type: ErrTypeQuotaExceeded, Message: DefaultQuotaMessage}
	ErrForbidden       = &Error{Type: ErrTypeForbidden, Message: "forbidden"}
	ErrNotFound        = &Error{Type: ErrTypeNotFound, Message: "not found"}
	ErrBadRequest      = &Error{Type: ErrTypeBadRequest, Message: "request rejected"}
	ErrServer          = &Error{Type: ErrTypeServer, Message: "server error"}
	ErrInvalidResponse = &Error{Type: ErrTypeInvalidResponse, Message: "invalid response"}
)

// TypeOf returns the ErrorType of err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrTypeUnknown
}

// Message returns the server-provided message carried by err, falling back
// to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// =============================================================================
// RESPONSE MAPPING
// =============================================================================

// errorBody covers the error shapes the backend uses: {"error": "..."},
// {"detail": "..."}, {"detail": [{"msg": "..."}]} and {"message": "..."}.
type errorBody struct {
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// serverMessage extracts a human-readable message from an error body.
func serverMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Error != "" {
		return eb.Error
	}
	if len(eb.Detail) > 0 {
		var s string
		if json.Unmarshal(eb.Detail, &s) == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(eb.Detail, &items) == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					parts = append(parts, it.Msg)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return eb.Message
}

// handleErrorResponse converts a non-2xx response to an *Error. When
// quotaOn403 is set, 403 means the account is out of credits.
func handleErrorResponse(status int, body []byte, quotaOn403 bool) error {
	msg := serverMessage(body)
	e := &Error{Status: status, Message: msg}

	switch {
	case status == http.StatusUnauthorized:
		e.Type = ErrTypeUnauthorized
	case status == http.StatusForbidden && quotaOn403:
		e.Type = ErrTypeQuotaExceeded
		if e.Message == "" {
			e.Message = DefaultQuotaMessage
		}
	case status == http.StatusForbidden:
		e.Type = ErrTypeForbidden
	case status == http.StatusNotFound:
		e.Type = ErrTypeNotFound
	case status >= 500:
		e.Type = ErrTypeServer
	case status >= 400:
		e.Type = ErrTypeBadRequest
	default:
		e.Type = ErrTypeInvalidResponse
	}

	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
		if e.Message == "" {
			e.Message = "unexpected status"
		}
	}
	return e
}
