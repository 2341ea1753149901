package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/diamondlab/unicorn/internal/domain"
	"github.com/diamondlab/unicorn/internal/pattern"
)

func seedCmd(cfg *domain.Config) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load pattern templates from a JSON file into the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read pattern file: %w", err)
			}

			var patterns []*domain.PatternTemplate
			if err := json.Unmarshal(data, &patterns); err != nil {
				return fmt.Errorf("failed to parse pattern file: %w", err)
			}

			comps, err := initComponents(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer comps.close()

			saved, rejected := 0, 0
			for _, p := range patterns {
				if err := pattern.Validate(p); err != nil {
					slog.Warn("pattern rejected",
						"pattern_id", p.ID,
						"error", err,
					)
					rejected++
					continue
				}
				if err := comps.repo.SavePattern(cmd.Context(), p); err != nil {
					return fmt.Errorf("failed to save pattern %s: %w", p.ID, err)
				}
				saved++
			}

			fmt.Printf("seeded %d patterns, %d rejected\n", saved, rejected)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "patterns.json", "pattern template JSON file")
	return cmd
}
