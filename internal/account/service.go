// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/session"
	"github.com/jeranaias/scribe-tui/internal/storage"
)

// ErrAutoLoginFailed is returned when registration succeeded but the
// follow-up login did not.
var ErrAutoLoginFailed = errors.New("registered but failed to auto-login")

// Backend is the subset of *api.Client used by Service.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	Register(ctx context.Context, creds api.Credentials) (*api.RegisterResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*api.Profile, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.Profile, error)
}

// Registry is the local account registry. *storage.Registry satisfies it.
type Registry interface {
	Exists(email string) (bool, error)
	Add(email, password string) error
	Upsert(email, password string) error
	Verify(email, password string) error
	SetPassword(email, password string) error
	Rename(oldEmail, newEmail string) error
}

// Service runs the account flows against a backend, the session and the
// local registry.
type Service struct {
	backend  Backend
	session  *session.Context
	registry Registry
	verifier *Verifier
	sender   CodeSender
	logger   zerolog.Logger
}

// NewService wires a Service. A nil verifier gets the default TTL.
func NewService(backend Backend, sess *session.Context, registry Registry, verifier *Verifier, sender CodeSender) *Service {
	if verifier == nil {
		verifier = NewVerifier(DefaultCodeTTL)
	}
	return &Service{
		backend:  backend,
		session:  sess,
		registry: registry,
		verifier: verifier,
		sender:   sender,
		logger:   log.With().Str("component", "account").Logger(),
	}
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login authenticates against the backend. If the backend is unreachable
// and the registry knows the credentials, an offline session is recorded.
func (s *Service) Login(ctx context.Context, email, password string) (session.State, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return session.State{}, err
	}

	resp, err := s.backend.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		if offlineEligible(err) && s.registry != nil && s.registry.Verify(email, password) == nil {
			state := session.State{Email: email, Offline: true}
			s.logger.Warn().Err(err).Str("email", email).Msg("backend unreachable; offline login")
			return state, s.session.SetLogin(state)
		}
		return session.State{}, err
	}

	state := session.State{Token: resp.BearerToken(), Email: resp.Email, Name: resp.Name}
	if err := s.session.SetLogin(state); err != nil {
		return session.State{}, err
	}
	if s.registry != nil {
		if err := s.registry.Upsert(email, password); err != nil {
			s.logger.Warn().Err(err).Msg("failed to update local registry")
		}
	}
	s.logger.Info().Str("email", state.Email).Msg("logged in")
	return state, nil
}

func offlineEligible(err error) bool {
	switch api.TypeOf(err) {
	case api.ErrTypeConnection, api.ErrTypeTimeout:
		return true
	}
	return false
}

// Logout ends the session. The backend call is best effort.
func (s *Service) Logout(ctx context.Context) error {
	if s.session.Token() != "" {
		if err := s.backend.Logout(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("backend logout failed")
		}
	}
	return s.session.Clear()
}

// =============================================================================
// VERIFICATION
// =============================================================================

// SendCode issues and mails a code for purpose. Registration requires an
// unknown address; reset requires a known one.
func (s *Service) SendCode(ctx context.Context, email string, purpose Purpose) error {
	email = strings.TrimSpace(email)
	if err := ValidateGmail(email); err != nil {
		return err
	}
	if s.registry != nil {
		exists, err := s.registry.Exists(email)
		if err != nil {
			return err
		}
		switch {
		case purpose == PurposeRegister && exists:
			return invalid("email", "This email is already registered. Please login.")
		case purpose == PurposeReset && !exists:
			return invalid("email", "Email not registered!")
		}
	}
	if s.sender == nil {
		return errors.New("no verification code sender configured")
	}

	code, err := s.verifier.Issue(email, purpose)
	if err != nil {
		return err
	}
	if err := s.sender.SendCode(ctx, email, code); err != nil {
		return errors.Wrap(err, "failed to send verification code")
	}
	s.logger.Info().Str("email", email).Str("purpose", string(purpose)).Msg("verification code sent")
	return nil
}

// =============================================================================
// REGISTER / RESET
// =============================================================================

// RegisterForm is the registration input.
type RegisterForm struct {
	Email    string
	Code     string
	Password string
	Confirm  string
}

// Register validates the form, creates the account and logs in.
func (s *Service) Register(ctx context.Context, form RegisterForm) (session.State, error) {
	email := strings.TrimSpace(form.Email)
	if err := ValidateGmail(email); err != nil {
		return session.State{}, err
	}
	if !s.verifier.Pending(email, PurposeRegister) {
		return session.State{}, ErrCodeNotSent
	}
	if err := s.verifier.Check(email, PurposeRegister, form.Code); err != nil {
		return session.State{}, err
	}
	if err := ValidateNewPassword(form.Password, form.Confirm); err != nil {
		return session.State{}, err
	}
	s.verifier.Consume(email, PurposeRegister)

	creds := api.Credentials{Email: email, Password: form.Password}
	if _, err := s.backend.Register(ctx, creds); err != nil {
		return session.State{}, err
	}
	if s.registry != nil {
		if err := s.registry.Add(email, form.Password); err != nil && !errors.Is(err, storage.ErrAccountExists) {
			s.logger.Warn().Err(err).Msg("failed to record account locally")
		}
	}

	resp, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.Warn().Err(err).Msg("auto-login after registration failed")
		return session.State{}, ErrAutoLoginFailed
	}
	state := session.State{Token: resp.BearerToken(), Email: resp.Email, Name: resp.Name}
	if err := s.session.SetLogin(state); err != nil {
		return session.State{}, err
	}
	s.logger.Info().Str("email", email).Msg("registered")
	return state, nil
}

// ResetForm is the password reset input.
type ResetForm struct {
	Email    string
	Code     string
	Password string
	Confirm  string
}

// ResetPassword replaces the locally registered password.
func (s *Service) ResetPassword(ctx context.Context, form ResetForm) error {
	email := strings.TrimSpace(form.Email)
	if err := ValidateGmail(email); err != nil {
		return err
	}
	if s.registry == nil {
		return errors.New("no local account registry")
	}
	if !s.verifier.Pending(email, PurposeReset) {
		return ErrCodeNotSent
	}
	if err := s.verifier.Check(email, PurposeReset, form.Code); err != nil {
		return err
	}
	if err := ValidateNewPassword(form.Password, form.Confirm); err != nil {
		return err
	}
	s.verifier.Consume(email, PurposeReset)
	if err := s.registry.SetPassword(email, form.Password); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return invalid("email", "Email not registered!")
		}
		return err
	}
	s.logger.Info().Str("email", email).Msg("password reset")
	return nil
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile fetches the current profile.
func (s *Service) Profile(ctx context.Context) (*api.Profile, error) {
	return s.backend.Profile(ctx)
}

// UpdateProfile changes the email and optionally the password. An empty
// password keeps the current one.
func (s *Service) UpdateProfile(ctx context.Context, email, password string) (*api.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("email", "Email is required.")
	}
	if password != "" && len([]rune(password)) < MinPasswordLength {
		return nil, invalid("password", "Password must be at least 8 characters.")
	}

	profile, err := s.backend.UpdateProfile(ctx, api.ProfileUpdate{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	prev := s.session.State()
	if s.registry != nil && prev.Email != "" && !strings.EqualFold(prev.Email, email) {
		if err := s.registry.Rename(prev.Email, email); err != nil {
			s.logger.Debug().Err(err).Msg("registry rename skipped")
		}
	}
	if s.registry != nil && password != "" {
		if err := s.registry.Upsert(email, password); err != nil {
			s.logger.Warn().Err(err).Msg("failed to update local registry")
		}
	}
	if prev.Email != email {
		next := prev
		next.Email = email
		if err := s.session.SetLogin(next); err != nil {
			return nil, err
		}
	}
	return profile, nil
}
