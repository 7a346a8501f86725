package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveMatchingRun persists the result of a matching run. Runs are immutable,
// so saving an existing ID fails.
func (s *sqlxStore) SaveMatchingRun(ctx context.Context, run *MatchingRun) error {
	if run == nil {
		return fmt.Errorf("cannot save nil matching run")
	}
	if run.ID == "" {
		return fmt.Errorf("matching run must have an ID")
	}

	query := `
		INSERT INTO matching_runs (id, executed_at, pairs, unpaired, status, error_message)
		VALUES (:id, :executed_at, :pairs, :unpaired, :status, :error_message)
	`
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		s.logger.ErrorContext(ctx, "Error saving matching run", "run_id", run.ID, "error", err)
		return fmt.Errorf("failed to save matching run %s: %w", run.ID, err)
	}

	s.logger.DebugContext(ctx, "Matching run saved",
		"run_id", run.ID, "status", run.Status, "pairs", len(run.Pairs), "unpaired", len(run.Unpaired))
	return nil
}

// GetLastMatchingRun retrieves the newest matching run.
func (s *sqlxStore) GetLastMatchingRun(ctx context.Context) (*MatchingRun, error) {
	var run MatchingRun
	query := `
		SELECT id, executed_at, pairs, unpaired, status, error_message
		FROM matching_runs
		ORDER BY executed_at DESC
		LIMIT 1
	`
	err := s.db.GetContext(ctx, &run, query)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting last matching run", "error", err)
		return nil, fmt.Errorf("failed to get last matching run: %w", err)
	}
	return &run, nil
}
