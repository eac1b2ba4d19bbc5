package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CapobiancoR/stopwatch-desktop/internal/aggregate"
	"github.com/CapobiancoR/stopwatch-desktop/internal/config"
)

var (
	reportDays       int
	reportWithPauses bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print daily work/leisure totals",
	Long:  `Print per-day work, leisure and total time for the last N days, oldest first.`,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", 7, "Number of days to report")
	reportCmd.Flags().BoolVar(&reportWithPauses, "pauses", false, "Include recorded pause periods per day")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	aggregator := aggregate.New(store)
	ctx := context.Background()

	window, err := aggregator.WindowTotals(ctx, reportDays, time.Now(), nil)
	if err != nil {
		return fmt.Errorf("failed to compute totals: %w", err)
	}

	header := color.New(color.Bold)
	workColor := color.New(color.FgGreen)
	leisureColor := color.New(color.FgYellow)
	pauseColor := color.New(color.FgHiBlack)

	header.Printf("%-12s %10s %10s %10s\n", "Date", "Work", "Leisure", "Total")

	for _, day := range window {
		fmt.Printf("%-12s %10s %10s %10s\n",
			day.Date,
			workColor.Sprint(formatSeconds(day.WorkSeconds)),
			leisureColor.Sprint(formatSeconds(day.LeisureSeconds)),
			formatSeconds(day.TotalSeconds()),
		)

		if !reportWithPauses {
			continue
		}

		pauses, err := aggregator.PausesForDate(ctx, day.Date)
		if err != nil {
			return fmt.Errorf("failed to list pauses for %s: %w", day.Date, err)
		}
		for _, pause := range pauses {
			pauseColor.Printf("    pause %s - %s (%s)\n",
				pause.StartedAt.Format("15:04:05"),
				pause.EndedAt.Format("15:04:05"),
				formatSeconds(pause.DurationSeconds),
			)
		}
	}

	return nil
}

// formatSeconds renders a second count as HH:MM:SS.
func formatSeconds(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
