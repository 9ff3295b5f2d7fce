// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Registry errors.
var (
	ErrAccountExists      = errors.New("account already registered")
	ErrAccountNotFound    = errors.New("account not registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Registry is the local fallback account registry.
type Registry struct {
	db *sql.DB
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Exists reports whether email is registered locally.
func (r *Registry) Exists(email string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(1) FROM accounts WHERE email = ?`, normalizeEmail(email)).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "query account")
	}
	return n > 0, nil
}

// Add registers email with password. Registering twice fails with
// ErrAccountExists.
func (r *Registry) Add(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	now := time.Now().Unix()
	res, err := r.db.Exec(
		`INSERT INTO accounts (email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		normalizeEmail(email), string(hash), now, now,
	)
	if err != nil {
		return errors.Wrap(err, "insert account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountExists
	}
	return nil
}

// Upsert stores password for email whether or not it was registered.
// Used to keep the registry in step after an online login.
func (r *Registry) Upsert(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	now := time.Now().Unix()
	_, err = r.db.Exec(
		`INSERT INTO accounts (email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		normalizeEmail(email), string(hash), now, now,
	)
	return errors.Wrap(err, "upsert account")
}

// Verify checks password against the stored hash.
func (r *Registry) Verify(email, password string) error {
	var hash string
	err := r.db.QueryRow(`SELECT password_hash FROM accounts WHERE email = ?`, normalizeEmail(email)).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		return errors.Wrap(err, "query account")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SetPassword replaces the password of a registered account.
func (r *Registry) SetPassword(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	res, err := r.db.Exec(
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE email = ?`,
		string(hash), time.Now().Unix(), normalizeEmail(email),
	)
	if err != nil {
		return errors.Wrap(err, "update account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Rename moves an account to a new email, keeping its password.
func (r *Registry) Rename(oldEmail, newEmail string) error {
	if normalizeEmail(oldEmail) == normalizeEmail(newEmail) {
		return nil
	}
	_, err := r.db.Exec(
		`UPDATE accounts SET email = ?, updated_at = ? WHERE email = ?`,
		normalizeEmail(newEmail), time.Now().Unix(), normalizeEmail(oldEmail),
	)
	return errors.Wrap(err, "rename account")
}
