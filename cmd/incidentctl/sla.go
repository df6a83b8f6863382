package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/sla"
)

var slaCmd = &cobra.Command{
	Use:   "sla",
	Short: "Print the effective SLA policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := sla.Load(cfg.SLA)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRIORITY\tACK\tRESOLVE")
		for _, priority := range domain.AllPriorities {
			window := policy[priority]
			fmt.Fprintf(w, "%s\t%s\t%s\n", priority, window.Ack, window.Resolve)
		}
		return w.Flush()
	},
}
