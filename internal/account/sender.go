// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultEmailJSEndpoint is the EmailJS REST send endpoint.
const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// CodeSender delivers a verification code to an address.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// =============================================================================
// EMAILJS
// =============================================================================

// EmailJSSender mails codes through an EmailJS template. The template
// receives the "email" and "code" parameters.
type EmailJSSender struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	HTTPClient *http.Client
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// Configured reports whether the service, template and key are set.
func (s *EmailJSSender) Configured() bool {
	return s.ServiceID != "" && s.TemplateID != "" && s.PublicKey != ""
}

// SendCode implements CodeSender.
func (s *EmailJSSender) SendCode(ctx context.Context, email, code string) error {
	if !s.Configured() {
		return errors.New("email delivery is not configured")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEmailJSEndpoint
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	body, err := json.Marshal(emailJSRequest{
		ServiceID:      s.ServiceID,
		TemplateID:     s.TemplateID,
		UserID:         s.PublicKey,
		TemplateParams: map[string]string{"email": email, "code": code},
	})
	if err != nil {
		return errors.Wrap(err, "encode email request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create email request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "send email")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("email service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// =============================================================================
// CONSOLE
// =============================================================================

// WriterSender prints codes instead of mailing them. Used when no mail
// service is configured.
type WriterSender struct {
	W io.Writer
}

// SendCode implements CodeSender.
func (s WriterSender) SendCode(_ context.Context, email, code string) error {
	_, err := fmt.Fprintf(s.W, "Verification code for %s: %s\n", email, code)
	return err
}
