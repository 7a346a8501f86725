package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/matching"
)

// newProfileMatchingTask creates the weekly task pairing users and sending introductions.
func newProfileMatchingTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskProfileMatching)

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled profile matching task...")

		run, err := deps.Matcher.Run(ctx)
		if errors.Is(err, matching.ErrRunInProgress) {
			log.WarnContext(ctx, "Skipping profile matching, a run is already in progress")
			return nil
		}
		if err != nil {
			return fmt.Errorf("profile matching failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled profile matching task completed",
			"run_id", run.ID, "pairs", len(run.Pairs), "unpaired", len(run.Unpaired))
		return nil
	}
}
