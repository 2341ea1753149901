package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diamondlab/unicorn/internal/domain"
)

func top50Cmd(cfg *domain.Config) *cobra.Command {
	var (
		dateStr string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "top50",
		Short: "Print the Top-50 snapshot for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			runDate, err := parseRunDate(dateStr)
			if err != nil {
				return err
			}

			comps, err := initComponents(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer comps.close()

			entries, err := comps.repo.GetTop50(cmd.Context(), runDate)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Printf("no snapshot for %s\n", domain.DateOnly(runDate))
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%2d  %-8s %-10d %-24s %10.4f  %s\n",
					e.Rank, e.EntityType, e.EntityID, e.PatternID, e.FinalScore, e.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "run date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
	return cmd
}
