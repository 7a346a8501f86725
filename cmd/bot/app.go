package main

import (
	"context"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/aurorabot/internal/bot/handlers"
	"github.com/edgard/aurorabot/internal/config"
	"github.com/edgard/aurorabot/internal/database"
	"github.com/edgard/aurorabot/internal/dialog"
	"github.com/edgard/aurorabot/internal/gemini"
	"github.com/edgard/aurorabot/internal/logger"
	"github.com/edgard/aurorabot/internal/matching"
	"github.com/edgard/aurorabot/internal/similarity"
	"github.com/edgard/aurorabot/internal/telegram"
	"github.com/edgard/aurorabot/internal/throttle"
)

// application holds the wired components shared by the run and match commands.
type application struct {
	cfg          *config.Config
	log          *slog.Logger
	db           *sqlx.DB
	store        database.Store
	clock        clockwork.Clock
	tg           *tgbot.Bot
	messenger    *telegram.Messenger
	machine      *dialog.Machine
	orchestrator *matching.Orchestrator
	hDeps        handlers.HandlerDeps
}

// newApplication loads the configuration at path and builds every component.
// The caller must call close when done.
func newApplication(ctx context.Context, path string) (*application, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		slog.Error("Failed to load configuration", "path", path, "error", err)
		return nil, err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return nil, err
	}
	app := &application{
		cfg:   cfg,
		log:   log,
		db:    db,
		store: database.NewStore(db, log),
		clock: clockwork.NewRealClock(),
	}

	scorer, err := newScorer(ctx, cfg, log)
	if err != nil {
		app.close()
		return nil, err
	}

	// Updates only arrive once the listener starts, after dialogHandler is set.
	var dialogHandler tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			dialogHandler(ctx, b, update)
		}),
	}
	app.tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		app.close()
		return nil, err
	}

	cfg.Telegram.BotInfo, err = app.tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		app.close()
		return nil, err
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	app.messenger = telegram.NewMessenger(app.tg, log)
	app.machine = dialog.NewMachine(dialog.Deps{
		Profiles:  app.store,
		Support:   app.store,
		Throttle:  throttle.New(app.store, app.clock),
		Messenger: app.messenger,
		Messages:  cfg.Messages,
		Clock:     app.clock,
		Logger:    log,
	})
	app.orchestrator = matching.NewOrchestrator(matching.OrchestratorDeps{
		Store:          app.store,
		Engine:         matching.NewEngine(scorer, log),
		Messenger:      app.messenger,
		Messages:       cfg.Messages,
		FallbackUserID: cfg.Matching.FallbackUserID,
		Clock:          app.clock,
		Logger:         log,
	})
	app.hDeps = handlers.HandlerDeps{
		Logger:  log,
		Config:  cfg,
		Store:   app.store,
		Dialog:  app.machine,
		Matcher: app.orchestrator,
	}
	dialogHandler = handlers.NewDialogHandler(app.hDeps)

	return app, nil
}

func (a *application) close() {
	database.CloseDB(a.db)
}

// newScorer picks the similarity backend configured by matching.scorer.
func newScorer(ctx context.Context, cfg *config.Config, log *slog.Logger) (similarity.Scorer, error) {
	switch cfg.Matching.Scorer {
	case config.ScorerGemini:
		embedder, err := gemini.NewEmbedder(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini embedder", "error", err)
			return nil, fmt.Errorf("failed to initialize gemini embedder: %w", err)
		}
		return embedder, nil
	default:
		log.Info("Using TF-IDF similarity scorer")
		return similarity.NewTFIDF(), nil
	}
}
