package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/diamondlab/unicorn/internal/domain"
	"github.com/diamondlab/unicorn/internal/engine"
	"github.com/diamondlab/unicorn/internal/market"
)

func runCmd(cfg *domain.Config) *cobra.Command {
	var (
		dateStr    string
		seasonYear int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate all enabled patterns and publish the Top-50 for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			runDate, err := parseRunDate(dateStr)
			if err != nil {
				return err
			}
			if seasonYear == 0 {
				seasonYear = runDate.Year()
			}

			comps, err := initComponents(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer comps.close()

			marketSvc := market.NewService(comps.repo, comps.cache, cfg.Engine.MarketWeightTTL)
			eng := engine.New(comps.repo, marketSvc, comps.bus, cfg.Engine)

			summary, err := eng.RunForDate(cmd.Context(), runDate, seasonYear)
			if err != nil {
				return err
			}

			fmt.Printf("run %s: %d patterns evaluated, %d skipped, %d leaderboard entries (%dms)\n",
				domain.DateOnly(summary.RunDate),
				summary.PatternsEvaluated,
				summary.PatternsSkipped,
				summary.Top50Entries,
				summary.DurationMs,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "run date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&seasonYear, "season-year", 0, "season year for market weights (default run date's year)")
	return cmd
}

func parseRunDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
