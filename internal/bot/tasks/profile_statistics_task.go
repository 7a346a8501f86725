package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
)

// newProfileStatisticsTask creates the task that snapshots profile counts.
func newProfileStatisticsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskProfileStatistics)

	return func(ctx context.Context) error {
		counts, err := deps.Store.CountProfiles(ctx)
		if err != nil {
			return fmt.Errorf("failed to count profiles: %w", err)
		}

		stats := &database.ProfileStatistics{Date: deps.Clock.Now().UTC(), ProfileCounts: *counts}
		if err := deps.Store.SaveProfileStatistics(ctx, stats); err != nil {
			return fmt.Errorf("failed to save profile statistics: %w", err)
		}

		log.InfoContext(ctx, "Profile statistics",
			"total", counts.Total,
			"visible", counts.Visible,
			"banned", counts.Banned,
			"bot_blocked", counts.BotBlocked,
			"eligible", counts.Eligible)
		return nil
	}
}
