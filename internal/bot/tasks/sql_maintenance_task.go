package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/aurorabot/internal/config"
)

// newSQLMaintenanceTask returns the weekly ANALYZE/VACUUM job. It checks the
// connection first so an unreachable database is reported as such.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskSQLMaintenance)

	return func(ctx context.Context) error {
		if err := deps.Store.Ping(ctx); err != nil {
			log.ErrorContext(ctx, "Database unreachable, skipping maintenance", "error", err)
			return fmt.Errorf("database ping before maintenance: %w", err)
		}

		began := deps.Clock.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "Database maintenance failed", "error", err, "took", deps.Clock.Since(began))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Database maintenance finished", "took", deps.Clock.Since(began))
		return nil
	}
}
