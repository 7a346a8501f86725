package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/dialog"
)

// Dialog handles one user update of the private-chat conversation.
type Dialog interface {
	Handle(ctx context.Context, in dialog.Incoming) error
}

// MatchRunner runs one matching job on demand.
type MatchRunner interface {
	Run(ctx context.Context) (*database.MatchingRun, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Store   database.Store
	Dialog  Dialog
	Matcher MatchRunner
}
