// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/jeranaias/scribe-tui/internal/account"
	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/config"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/storage"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid usage or rejected input
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the backend rejected the credentials or session
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitQuotaError indicates the account is out of credits
	ExitQuotaError = 9
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "conversations", "profile")
	Action  string // Action being performed (e.g., "rename", "update")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %s", e.Command, e.Action, e.Reason, api.Message(e.Err))
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is a malformed invocation.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// configError marks failures loading or validating the configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// ErrMissingArgument returns a usage error for a missing argument.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Message: fmt.Sprintf("missing required argument: %s\nUsage: %s", argName, usage)}
}

// ErrNotLoggedIn is returned by commands that need a session.
var ErrNotLoggedIn = errors.New("not logged in; run `scribe login` first")

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usage  *UsageError
		cfgErr *configError
		cfgVal config.ValidateErrors
	)
	switch {
	case errors.As(err, &usage),
		account.IsValidation(err),
		errors.Is(err, conversation.ErrEmptyPrompt),
		errors.Is(err, conversation.ErrEmptyTitle),
		errors.Is(err, conversation.ErrUnknownConversation):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.As(err, &cfgVal):
		return ExitConfigError
	case errors.Is(err, ErrNotLoggedIn),
		errors.Is(err, storage.ErrInvalidCredentials),
		errors.Is(err, account.ErrAutoLoginFailed):
		return ExitAuthError
	}

	switch api.TypeOf(err) {
	case api.ErrTypeUnauthorized:
		return ExitAuthError
	case api.ErrTypeQuotaExceeded:
		return ExitQuotaError
	case api.ErrTypeConnection, api.ErrTypeTimeout:
		return ExitNetworkError
	}
	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		displayErrorJSON(w, err)
		return
	}
	fmt.Fprintln(w, styles.RenderError(describeError(err)))
}

func displayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"error":     describeError(err),
		"success":   false,
		"exit_code": GetExitCode(err),
	}

	var (
		cmdErr *CommandError
		valErr *account.ValidationError
		apiErr *api.Error
		cfgVal config.ValidateErrors
	)
	switch {
	case errors.As(err, &cfgVal):
		output["error_type"] = "config_error"
		fields := make([]string, 0, len(cfgVal))
		for _, v := range cfgVal {
			fields = append(fields, v.Field)
		}
		output["fields"] = fields
	case errors.As(err, &valErr):
		output["error_type"] = "validation_error"
		output["field"] = valErr.Field
	case errors.As(err, &cmdErr):
		output["error_type"] = "command_error"
		output["command"] = cmdErr.Command
		output["action"] = cmdErr.Action
	case errors.As(err, &apiErr):
		output["error_type"] = apiErr.Type.String()
		if apiErr.Status != 0 {
			output["status"] = apiErr.Status
		}
	default:
		output["error_type"] = "generic_error"
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

// describeError prefers the message a user can act on.
func describeError(err error) string {
	var valErr *account.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Error()
	}
	switch api.TypeOf(err) {
	case api.ErrTypeQuotaExceeded, api.ErrTypeUnauthorized, api.ErrTypeBadRequest:
		return api.Message(err)
	}
	return err.Error()
}
