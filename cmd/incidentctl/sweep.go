package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrubbe-dev/incident-service/internal/app"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one SLA breach sweep and exit",
	Long: `Runs a single pass of the breach sweeper. The pass only proceeds when
this process wins the Redis leader lock, so it is safe to run next to live
API instances.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Postgres.RunMigrations = false
		c, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		sent, err := c.Sweeper().RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "breach notifications sent: %d\n", sent)
		return nil
	},
}
