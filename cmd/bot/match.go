package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run one matching job now and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApplication(ctx, cfgFile)
		if err != nil {
			return err
		}
		defer app.close()

		run, err := app.orchestrator.Run(ctx)
		if err != nil {
			return fmt.Errorf("matching run failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), app.cfg.Messages.MatchNowDoneFmt+"\n", run.ID, len(run.Pairs), len(run.Unpaired))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
