// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/scribe-tui/internal/model"
)

// ConversationCache mirrors the last conversation list seen from the
// backend.
type ConversationCache struct {
	db *sql.DB
}

// Replace swaps the whole cache for convs, keeping their order. Unsaved
// conversations are skipped.
func (c *ConversationCache) Replace(convs []*model.Conversation) (err error) {
	tx, err := c.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM conversations`); err != nil {
		return errors.Wrap(err, "clear cache")
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO conversations (id, title, messages, created_at, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for i, conv := range convs {
		if conv == nil || conv.Ref.IsNew() {
			continue
		}
		payload, encErr := model.EncodeMessages(conv.Messages)
		if encErr != nil {
			err = encErr
			return err
		}
		if _, err = stmt.Exec(conv.Ref.ID(), conv.Title, payload, conv.CreatedAt.Unix(), i); err != nil {
			return errors.Wrapf(err, "cache conversation %s", conv.Ref.ID())
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// List returns the cached conversations in their original order.
func (c *ConversationCache) List() ([]*model.Conversation, error) {
	return c.query(`SELECT id, title, messages, created_at FROM conversations ORDER BY position`)
}

// Search returns cached conversations whose title or messages contain
// query, case-insensitively.
func (c *ConversationCache) Search(query string) ([]*model.Conversation, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return c.query(
		`SELECT id, title, messages, created_at FROM conversations
		 WHERE lower(title) LIKE ? OR lower(messages) LIKE ? ORDER BY position`,
		like, like,
	)
}

// Clear empties the cache.
func (c *ConversationCache) Clear() error {
	_, err := c.db.Exec(`DELETE FROM conversations`)
	return errors.Wrap(err, "clear cache")
}

func (c *ConversationCache) query(q string, args ...any) ([]*model.Conversation, error) {
	rows, err := c.db.Query(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query cache")
	}
	defer rows.Close()

	out := make([]*model.Conversation, 0)
	for rows.Next() {
		var (
			id, title, payload string
			created            int64
		)
		if err := rows.Scan(&id, &title, &payload, &created); err != nil {
			return nil, errors.Wrap(err, "scan cache row")
		}
		msgs, err := model.DecodeMessages(payload)
		if err != nil {
			log.Warn().Err(err).Str("conversation", id).Msg("dropping unreadable cached transcript")
			msgs = []model.Message{}
		}
		out = append(out, &model.Conversation{
			Ref:       model.ExistingRef(id),
			Title:     title,
			Messages:  msgs,
			CreatedAt: time.Unix(created, 0),
		})
	}
	return out, errors.Wrap(rows.Err(), "iterate cache")
}
