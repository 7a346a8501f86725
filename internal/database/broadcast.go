package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveDailyMessage queues a broadcast text and sets its ID.
func (s *sqlxStore) SaveDailyMessage(ctx context.Context, message *DailyMessage) error {
	if message == nil || message.Text == "" {
		return fmt.Errorf("cannot save empty daily message")
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO daily_messages (text, sent, created_at) VALUES (:text, :sent, :created_at)`
	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving daily message", "error", err)
		return fmt.Errorf("failed to save daily message: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		message.ID = id
	}
	return nil
}

// GetUnsentDailyMessage retrieves the oldest unsent broadcast.
func (s *sqlxStore) GetUnsentDailyMessage(ctx context.Context) (*DailyMessage, error) {
	var message DailyMessage
	query := `
		SELECT id, text, sent, created_at
		FROM daily_messages
		WHERE sent = 0
		ORDER BY created_at, id
		LIMIT 1
	`
	err := s.db.GetContext(ctx, &message, query)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting unsent daily message", "error", err)
		return nil, fmt.Errorf("failed to get unsent daily message: %w", err)
	}
	return &message, nil
}

// MarkDailyMessageSent marks a broadcast as delivered.
func (s *sqlxStore) MarkDailyMessageSent(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE daily_messages SET sent = 1 WHERE id = ?`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking daily message as sent", "message_id", id, "error", err)
		return fmt.Errorf("failed to mark daily message %d as sent: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("daily message %d not found", id)
	}
	return nil
}
