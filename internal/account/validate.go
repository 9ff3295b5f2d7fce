// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var gmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@gmail\.com$`)

// ValidationError is a form error caught before any request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ValidateGmail checks that email is a Gmail address.
func ValidateGmail(email string) error {
	if !gmailPattern.MatchString(strings.TrimSpace(email)) {
		return invalid("email", "Please enter a valid Gmail address.")
	}
	return nil
}

// ValidateNewPassword checks a password and its confirmation.
func ValidateNewPassword(password, confirm string) error {
	if password != confirm {
		return invalid("confirm", "Passwords do not match!")
	}
	if len([]rune(password)) < MinPasswordLength {
		return invalid("password", "Password must be at least 8 characters.")
	}
	return nil
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "Email is required.")
	}
	if password == "" {
		return invalid("password", "Password is required.")
	}
	return nil
}
