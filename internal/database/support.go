package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSupportRequest inserts a support request and sets its ID.
// A zero CreatedAt is set to now and an empty Status defaults to OPEN.
func (s *sqlxStore) SaveSupportRequest(ctx context.Context, request *SupportRequest) error {
	if request == nil {
		return fmt.Errorf("cannot save nil support request")
	}
	if request.UserID == 0 {
		return fmt.Errorf("support request must have a non-zero user_id")
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = RequestOpen
	}

	query := `
		INSERT INTO support_requests (user_id, message, status, created_at)
		VALUES (:user_id, :message, :status, :created_at)
	`
	result, err := s.db.NamedExecContext(ctx, query, request)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving support request", "user_id", request.UserID, "error", err)
		return fmt.Errorf("failed to save support request for user ID %d: %w", request.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		request.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving support request",
			"user_id", request.UserID, "error", err)
	}

	s.logger.InfoContext(ctx, "Support request saved", "user_id", request.UserID, "request_id", request.ID)
	return nil
}

// GetLastSupportRequest retrieves the newest support request of a user.
func (s *sqlxStore) GetLastSupportRequest(ctx context.Context, userID int64) (*SupportRequest, error) {
	var request SupportRequest
	query := `
		SELECT id, user_id, message, status, created_at
		FROM support_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	err := s.db.GetContext(ctx, &request, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting last support request", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get last support request for user ID %d: %w", userID, err)
	}
	return &request, nil
}
