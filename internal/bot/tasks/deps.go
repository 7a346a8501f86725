// Package tasks implements the scheduled jobs of the bot: the weekly matching
// run, the daily broadcast, profile statistics and database maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/dialog"
)

// MatchRunner runs one matching job.
type MatchRunner interface {
	Run(ctx context.Context) (*database.MatchingRun, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Matcher   MatchRunner
	Messenger dialog.Messenger
	Config    *config.Config
	Clock     clockwork.Clock
}
