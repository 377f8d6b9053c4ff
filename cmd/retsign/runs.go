package main

import (
	"fmt"

	"github.com/newthinker/retsign/internal/report"
	"github.com/newthinker/retsign/internal/storage/archive"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived run reports",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived run IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := archivedReports()
		if err != nil {
			return err
		}
		ids, err := reports.Runs(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print an archived run report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := archivedReports()
		if err != nil {
			return err
		}
		rep, err := reports.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if showRaw {
			return report.Encode(cmd.OutOrStdout(), rep, report.FormatJSON)
		}
		printReport(cmd.OutOrStdout(), rep)
		return nil
	},
}

var showRaw bool

func init() {
	runsShowCmd.Flags().BoolVar(&showRaw, "json", false, "print the full report as JSON")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// archivedReports opens the configured archive for reading.
func archivedReports() (*archive.Reports, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	reports, err := openReports(cfg, log)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		return nil, fmt.Errorf("archive is disabled (archive.type=%q)", cfg.Archive.Type)
	}
	return reports, nil
}
