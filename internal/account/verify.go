// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultCodeTTL is how long a verification code stays valid.
const DefaultCodeTTL = 10 * time.Minute

// MaxCodeAttempts is how many wrong codes invalidate a challenge.
const MaxCodeAttempts = 5

// Purpose scopes a code to one flow.
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeReset    Purpose = "reset"
)

// Verification errors.
var (
	ErrCodeNotSent     = &ValidationError{Field: "code", Message: "You must send the verification code first!"}
	ErrCodeMismatch    = &ValidationError{Field: "code", Message: "Incorrect verification code!"}
	ErrCodeExpired     = &ValidationError{Field: "code", Message: "The verification code has expired. Please request a new one."}
	ErrTooManyAttempts = &ValidationError{Field: "code", Message: "Too many incorrect codes. Please request a new one."}
)

var codeOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      0,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type challenge struct {
	secret   string
	issued   time.Time
	attempts int
}

// Verifier issues and checks verification codes. It is safe for
// concurrent use.
type Verifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]*challenge
	now     func() time.Time
}

// NewVerifier returns a Verifier whose codes expire after ttl.
func NewVerifier(ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &Verifier{
		ttl:     ttl,
		pending: make(map[string]*challenge),
		now:     time.Now,
	}
}

func challengeKey(email string, purpose Purpose) string {
	return string(purpose) + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Issue creates a fresh code for email, replacing any earlier one.
func (v *Verifier) Issue(email string, purpose Purpose) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "scribe",
		AccountName: strings.TrimSpace(email),
	})
	if err != nil {
		return "", errors.Wrap(err, "generate secret")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	issued := v.now()
	code, err := totp.GenerateCodeCustom(key.Secret(), issued, codeOpts)
	if err != nil {
		return "", errors.Wrap(err, "generate code")
	}
	v.pending[challengeKey(email, purpose)] = &challenge{secret: key.Secret(), issued: issued}
	return code, nil
}

// Pending reports whether an unexpired code exists for email.
func (v *Verifier) Pending(email string, purpose Purpose) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.pending[challengeKey(email, purpose)]
	return ok && v.now().Sub(c.issued) <= v.ttl
}

// Check verifies code without consuming it. Wrong codes count toward
// MaxCodeAttempts.
func (v *Verifier) Check(email string, purpose Purpose, code string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := challengeKey(email, purpose)
	c, ok := v.pending[key]
	if !ok {
		return ErrCodeNotSent
	}
	if v.now().Sub(c.issued) > v.ttl {
		delete(v.pending, key)
		return ErrCodeExpired
	}

	valid, err := totp.ValidateCustom(strings.TrimSpace(code), c.secret, c.issued, codeOpts)
	if err != nil || !valid {
		c.attempts++
		if c.attempts >= MaxCodeAttempts {
			delete(v.pending, key)
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}
	return nil
}

// Consume discards the code for email so it cannot be reused.
func (v *Verifier) Consume(email string, purpose Purpose) {
	v.mu.Lock()
	delete(v.pending, challengeKey(email, purpose))
	v.mu.Unlock()
}
