package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/aurorabot/internal/bot"
	"github.com/edgard/aurorabot/internal/bot/handlers"
	"github.com/edgard/aurorabot/internal/bot/tasks"
	"github.com/edgard/aurorabot/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot: listen for Telegram updates and run scheduled tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runBot(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(ctx context.Context) error {
	app, err := newApplication(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer app.close()
	log := app.log

	cmdHandlers := handlers.RegisterAllCommands(app.hDeps)
	if err := telegram.RegisterHandlers(app.tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}
	if err := telegram.SetupCommands(ctx, app.tg, app.cfg.Messages); err != nil {
		log.Warn("Failed to publish bot commands", "error", err)
	}

	tDeps := tasks.TaskDeps{
		Logger:    log,
		Store:     app.store,
		Matcher:   app.orchestrator,
		Messenger: app.messenger,
		Config:    app.cfg,
		Clock:     app.clock,
	}
	sched, err := bot.NewScheduler(log, &app.cfg.Scheduler, tasks.RegisterAllTasks(tDeps), app.clock)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	log.Info("Starting bot...")
	runErr := bot.NewBot(log, app.tg, sched).Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
