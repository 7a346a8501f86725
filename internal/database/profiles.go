package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const profileColumns = `user_id, username, name, age, discussion_topic, fun_fact,
	is_visible, is_banned, is_bot_blocked, created_at, updated_at`

// GetUserProfile retrieves a user profile by user ID. Returns nil, nil if not found.
func (s *sqlxStore) GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}

	profile, err := getProfile(ctx, s.db, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user profile found", "user_id", userID)
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user profile",
			"user_id", userID, "error", err)
		return nil, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile by ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user profile for user ID %d: %w", userID, err)
	}

	return profile, nil
}

func getProfile(ctx context.Context, q sqlx.QueryerContext, userID int64) (*UserProfile, error) {
	var profile UserProfile
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = ?`
	if err := sqlx.GetContext(ctx, q, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetAllUserProfiles retrieves every stored profile ordered by user ID.
func (s *sqlxStore) GetAllUserProfiles(ctx context.Context) ([]*UserProfile, error) {
	return s.selectProfiles(ctx, `SELECT `+profileColumns+` FROM user_profiles ORDER BY user_id`)
}

// GetVisibleUserProfiles retrieves the profiles eligible for matching.
func (s *sqlxStore) GetVisibleUserProfiles(ctx context.Context) ([]*UserProfile, error) {
	return s.selectProfiles(ctx, `SELECT `+profileColumns+` FROM user_profiles
		WHERE is_visible = 1 AND is_banned = 0 AND is_bot_blocked = 0
		ORDER BY user_id`)
}

func (s *sqlxStore) selectProfiles(ctx context.Context, query string) ([]*UserProfile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profiles []*UserProfile
	if err := s.db.SelectContext(ctx, &profiles, query); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching user profiles", "error", err)
		return nil, fmt.Errorf("failed to fetch user profiles: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched user profiles", "count", len(profiles))
	return profiles, nil
}

// SaveUserProfile inserts or updates a user profile keyed by UserID.
// CreatedAt is preserved for existing rows.
func (s *sqlxStore) SaveUserProfile(ctx context.Context, profile *UserProfile) error {
	if profile == nil {
		return fmt.Errorf("cannot save nil user profile")
	}
	if profile.UserID == 0 {
		return fmt.Errorf("user profile must have a non-zero user_id")
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}

	query := `
		INSERT INTO user_profiles (` + profileColumns + `)
		VALUES (
			:user_id, :username, :name, :age, :discussion_topic, :fun_fact,
			:is_visible, :is_banned, :is_bot_blocked, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			name = excluded.name,
			age = excluded.age,
			discussion_topic = excluded.discussion_topic,
			fun_fact = excluded.fun_fact,
			is_visible = excluded.is_visible,
			is_banned = excluded.is_banned,
			is_bot_blocked = excluded.is_bot_blocked,
			updated_at = excluded.updated_at
	`

	result, err := s.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving user profile", "user_id", profile.UserID, "error", err)
		return fmt.Errorf("failed to save user profile for user ID %d: %w", profile.UserID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when saving profile",
			"user_id", profile.UserID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "User profile saved successfully", "user_id", profile.UserID)
	return nil
}

// DeleteUserProfile removes a user profile.
func (s *sqlxStore) DeleteUserProfile(ctx context.Context, userID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting user profile", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete user profile for user ID %d: %w", userID, err)
	}

	affected, _ := result.RowsAffected()
	s.logger.DebugContext(ctx, "User profile deleted", "user_id", userID, "affected", affected)
	return nil
}

// ToggleVisibility flips is_visible and returns the updated row in one transaction.
func (s *sqlxStore) ToggleVisibility(ctx context.Context, userID int64) (*UserProfile, error) {
	var profile *UserProfile
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE user_profiles SET is_visible = NOT is_visible, updated_at = ? WHERE user_id = ?`,
			time.Now().UTC(), userID)
		if err != nil {
			return fmt.Errorf("failed to toggle visibility for user ID %d: %w", userID, err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return nil
		}

		profile, err = getProfile(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to reload user profile for user ID %d: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error toggling profile visibility", "user_id", userID, "error", err)
		return nil, err
	}

	if profile == nil {
		s.logger.DebugContext(ctx, "No user profile to toggle", "user_id", userID)
		return nil, nil
	}

	s.logger.InfoContext(ctx, "Profile visibility toggled", "user_id", userID, "is_visible", profile.IsVisible)
	return profile, nil
}

// MarkBotBlocked flags a user who blocked the bot.
func (s *sqlxStore) MarkBotBlocked(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_profiles SET is_bot_blocked = 1, updated_at = ? WHERE user_id = ?`,
		time.Now().UTC(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking user as bot-blocked", "user_id", userID, "error", err)
		return fmt.Errorf("failed to mark user ID %d as bot-blocked: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "User marked as bot-blocked", "user_id", userID)
	return nil
}

// CountProfiles returns live profile counts.
func (s *sqlxStore) CountProfiles(ctx context.Context) (*ProfileCounts, error) {
	var counts ProfileCounts
	query := `
		SELECT
			COUNT(*) AS total_profiles,
			COALESCE(SUM(is_visible), 0) AS visible_profiles,
			COALESCE(SUM(is_banned), 0) AS banned_profiles,
			COALESCE(SUM(is_bot_blocked), 0) AS bot_blocked_profiles,
			COALESCE(SUM(is_visible = 1 AND is_banned = 0 AND is_bot_blocked = 0), 0) AS eligible_profiles
		FROM user_profiles
	`
	if err := s.db.GetContext(ctx, &counts, query); err != nil {
		s.logger.ErrorContext(ctx, "Error counting user profiles", "error", err)
		return nil, fmt.Errorf("failed to count user profiles: %w", err)
	}
	return &counts, nil
}

// SaveProfileStatistics persists a statistics snapshot.
func (s *sqlxStore) SaveProfileStatistics(ctx context.Context, stats *ProfileStatistics) error {
	if stats == nil {
		return fmt.Errorf("cannot save nil profile statistics")
	}
	if stats.Date.IsZero() {
		stats.Date = time.Now().UTC()
	}

	query := `
		INSERT INTO profile_statistics (
			date, total_profiles, visible_profiles, banned_profiles,
			bot_blocked_profiles, eligible_profiles
		) VALUES (
			:date, :total_profiles, :visible_profiles, :banned_profiles,
			:bot_blocked_profiles, :eligible_profiles
		)
	`
	result, err := s.db.NamedExecContext(ctx, query, stats)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving profile statistics", "error", err)
		return fmt.Errorf("failed to save profile statistics: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		stats.ID = id
	}
	return nil
}
