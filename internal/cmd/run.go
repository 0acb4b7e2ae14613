package cmd

import (
	"FlowTagger/internal/engine/manager"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	var lookupFile, flowLogFile, reportFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Tag a flow log and write the count report",
		Long: `Load the lookup table, classify every record of the flow log and write
tag counts and port/protocol combination counts to the report file.

Examples:
  flow-tagger run
  flow-tagger run --lookup lookup_table.csv --flowlog flow_logs.txt --output analysis_results.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lookupFile != "" {
				a.cfg.Input.LookupFile = lookupFile
			}
			if flowLogFile != "" {
				a.cfg.Input.FlowLogFile = flowLogFile
			}
			if reportFile != "" {
				a.cfg.Output.ReportFile = reportFile
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := manager.NewManager(a.cfg, a.logger)
			if _, err := m.Run(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Processing completed successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&lookupFile, "lookup", "", "lookup table CSV file (overrides config)")
	cmd.Flags().StringVar(&flowLogFile, "flowlog", "", "flow log file (overrides config)")
	cmd.Flags().StringVarP(&reportFile, "output", "o", "", "report file (overrides config)")
	return cmd
}
