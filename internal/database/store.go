package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Lookups of a single row return nil, nil when the row does not exist.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// GetUserProfile retrieves a user profile by user ID. Returns nil, nil if not found.
	GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error)

	// GetAllUserProfiles retrieves every stored profile ordered by user ID.
	GetAllUserProfiles(ctx context.Context) ([]*UserProfile, error)

	// GetVisibleUserProfiles retrieves the profiles eligible for matching:
	// visible, not banned and not bot-blocked, ordered by user ID.
	GetVisibleUserProfiles(ctx context.Context) ([]*UserProfile, error)

	// SaveUserProfile inserts or updates a user profile.
	SaveUserProfile(ctx context.Context, profile *UserProfile) error

	// DeleteUserProfile removes a user profile. Deleting a missing profile is not an error.
	DeleteUserProfile(ctx context.Context, userID int64) error

	// ToggleVisibility flips the visibility flag and returns the updated profile.
	// Returns nil, nil if the profile does not exist.
	ToggleVisibility(ctx context.Context, userID int64) (*UserProfile, error)

	// MarkBotBlocked flags a user who blocked the bot so they are skipped by later runs.
	MarkBotBlocked(ctx context.Context, userID int64) error

	// CountProfiles returns live profile counts.
	CountProfiles(ctx context.Context) (*ProfileCounts, error)

	// SaveProfileStatistics persists a statistics snapshot.
	SaveProfileStatistics(ctx context.Context, stats *ProfileStatistics) error

	// SaveSupportRequest inserts a support request and sets its ID.
	SaveSupportRequest(ctx context.Context, request *SupportRequest) error

	// GetLastSupportRequest retrieves the newest support request of a user.
	// Returns nil, nil if the user never contacted support.
	GetLastSupportRequest(ctx context.Context, userID int64) (*SupportRequest, error)

	// SaveMatchingRun persists the result of a matching run.
	SaveMatchingRun(ctx context.Context, run *MatchingRun) error

	// GetLastMatchingRun retrieves the newest matching run. Returns nil, nil if none ran yet.
	GetLastMatchingRun(ctx context.Context) (*MatchingRun, error)

	// SaveDailyMessage queues a broadcast text and sets its ID.
	SaveDailyMessage(ctx context.Context, message *DailyMessage) error

	// GetUnsentDailyMessage retrieves the oldest unsent broadcast. Returns nil, nil if the queue is empty.
	GetUnsentDailyMessage(ctx context.Context) (*DailyMessage, error)

	// MarkDailyMessageSent marks a broadcast as delivered.
	MarkDailyMessageSent(ctx context.Context, id int64) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn inside a transaction, committing when fn returns nil.
func (s *sqlxStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RunSQLMaintenance executes ANALYZE and VACUUM on the SQLite database.
// VACUUM must run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (ANALYZE, VACUUM)")

	for _, stmt := range []string{"ANALYZE;", "VACUUM;"} {
		_, err := s.db.ExecContext(ctx, stmt)
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			s.logger.WarnContext(ctx, "Database maintenance timed out or was cancelled", "statement", stmt, "error", err)
			return fmt.Errorf("database maintenance (%s) timed out: %w", stmt, err)
		case err != nil:
			s.logger.ErrorContext(ctx, "Database maintenance failed", "statement", stmt, "error", err)
			return fmt.Errorf("failed to execute %s: %w", stmt, err)
		}
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}
