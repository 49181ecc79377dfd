// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const driverName = "sqlite"

const messageColumns = `id, channel_id, channel_name, author_id, author_name, content,
	timestamp, timestamp_epoch, reply_to, attachments_count, reactions_count,
	is_pinned, export_date, safety_status, safety_score, safety_flags`

// Ingestion-owned columns only. The safety columns keep their stored values
// on conflict and take the schema default on first insert.
const upsertMessageSQL = `
INSERT INTO messages (
	id, channel_id, channel_name, author_id, author_name, content,
	timestamp, timestamp_epoch, reply_to, attachments_count, reactions_count,
	is_pinned, export_date
) VALUES (
	:id, :channel_id, :channel_name, :author_id, :author_name, :content,
	:timestamp, :timestamp_epoch, :reply_to, :attachments_count, :reactions_count,
	:is_pinned, :export_date
)
ON CONFLICT(id) DO UPDATE SET
	channel_id        = excluded.channel_id,
	channel_name      = excluded.channel_name,
	author_id         = excluded.author_id,
	author_name       = excluded.author_name,
	content           = excluded.content,
	timestamp         = excluded.timestamp,
	timestamp_epoch   = excluded.timestamp_epoch,
	reply_to          = excluded.reply_to,
	attachments_count = excluded.attachments_count,
	reactions_count   = excluded.reactions_count,
	is_pinned         = excluded.is_pinned,
	export_date       = excluded.export_date`

const upsertChannelSQL = `
INSERT INTO channels (id, name, category, topic, message_count, last_export)
VALUES (:id, :name, :category, :topic, :message_count, :last_export)
ON CONFLICT(id) DO UPDATE SET
	name          = excluded.name,
	category      = excluded.category,
	topic         = excluded.topic,
	message_count = excluded.message_count,
	last_export   = excluded.last_export`

const classifySQL = `
UPDATE messages SET
	safety_status = ?,
	safety_score  = COALESCE(?, safety_score),
	safety_flags  = COALESCE(?, safety_flags)
WHERE id = ?`

// The safety gate. Nothing else reads messages for indexing. Messages with
// an unknown time (epoch 0) come after every dated one.
const safeMessagesSQL = `
SELECT ` + messageColumns + `
FROM messages
WHERE safety_status = ?
  AND content IS NOT NULL
  AND LENGTH(content) >= ?
ORDER BY timestamp_epoch = 0, timestamp_epoch, id`

// Store implements storage.MessageStore on a single SQLite database file.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ storage.MessageStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger.With("component", "sqlite-store")
		return nil
	}
}

// Open opens or creates the database at path and migrates its schema.
// The parent directory is created if missing.
//
// Returns storage.MessageStore interface to enforce abstraction.
func Open(path string, opts ...Option) (storage.MessageStore, error) {
	return openStore(path, opts...)
}

// openStore is the internal constructor returning the concrete type.
func openStore(path string, opts ...Option) (*Store, error) {
	s := &Store{
		logger: slog.Default().With("component", "sqlite-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection per process; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := migrateSchema(db.DB, s.logger); err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	s.logger.Debug("opened store", "path", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type txKey struct{}

// ext returns the transaction carried by ctx, or the database.
func (s *Store) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// WithTransaction executes fn within a transaction.
// Nested calls join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "err", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// UpsertChannel inserts or replaces a channel row.
func (s *Store) UpsertChannel(ctx context.Context, channel *core.Channel) error {
	if err := core.ValidateChannel(channel); err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, s.ext(ctx), upsertChannelSQL, channel); err != nil {
		return fmt.Errorf("upserting channel %s: %w", channel.ID, err)
	}
	return nil
}

// UpsertMessages inserts or merges messages. See storage.MessageStore.
func (s *Store) UpsertMessages(ctx context.Context, messages ...*core.Message) error {
	if len(messages) == 0 {
		return nil
	}

	return s.WithTransaction(ctx, func(ctx context.Context) error {
		ext := s.ext(ctx)
		for _, msg := range messages {
			if err := core.ValidateMessage(msg); err != nil {
				return err
			}
			if _, err := sqlx.NamedExecContext(ctx, ext, upsertMessageSQL, msg); err != nil {
				return fmt.Errorf("upserting message %s: %w", msg.ID, err)
			}
		}
		return nil
	})
}

// GetMessage retrieves a single message by id.
func (s *Store) GetMessage(ctx context.Context, id string) (*core.Message, error) {
	var msg core.Message
	err := sqlx.GetContext(ctx, s.ext(ctx), &msg, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: message %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Classify writes safety decisions for existing messages.
func (s *Store) Classify(ctx context.Context, classifications ...core.Classification) (int, error) {
	updated := 0
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		ext := s.ext(ctx)
		for _, c := range classifications {
			if err := core.ValidateSafetyStatus(c.Status); err != nil {
				return err
			}
			res, err := ext.ExecContext(ctx, classifySQL, string(c.Status), c.Score, c.Flags, c.MessageID)
			if err != nil {
				return fmt.Errorf("classifying message %s: %w", c.MessageID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				s.logger.Warn("classification for unknown message", "id", c.MessageID)
			}
			updated += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// SafeMessages returns the messages allowed into the vector index.
func (s *Store) SafeMessages(ctx context.Context, minLength int) ([]*core.Message, error) {
	if minLength < 0 {
		return nil, fmt.Errorf("%w: negative minimum length", storage.ErrInvalidQuery)
	}

	var messages []*core.Message
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &messages, safeMessagesSQL, string(core.SafetyStatusSafe), minLength); err != nil {
		return nil, fmt.Errorf("selecting safe messages: %w", err)
	}
	return messages, nil
}

// Stats summarizes message counts per safety status and the channel table.
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	ext := s.ext(ctx)
	stats := &storage.Stats{ByStatus: make(map[core.SafetyStatus]int)}

	if err := sqlx.GetContext(ctx, ext, &stats.Messages, `SELECT COUNT(*) FROM messages`); err != nil {
		return nil, err
	}

	var rows []struct {
		Status string `db:"safety_status"`
		Count  int    `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, ext, &rows, `SELECT safety_status, COUNT(*) AS n FROM messages GROUP BY safety_status`); err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByStatus[core.SafetyStatus(r.Status)] = r.Count
	}

	if err := sqlx.SelectContext(ctx, ext, &stats.Channels,
		`SELECT id, name, category, topic, message_count, last_export FROM channels ORDER BY name, id`); err != nil {
		return nil, err
	}

	return stats, nil
}
