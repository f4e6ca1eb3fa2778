package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkaplan/mixsmith/internal/library"
	"github.com/mkaplan/mixsmith/internal/planner"
)

var (
	planMinutes int
	planNoReuse bool
)

var planCmd = &cobra.Command{
	Use:   "plan <concept>",
	Short: "Plan a session without rendering it",
	Long: `Asks the planning model for a session plan and prints it as JSON,
including the estimated generation cost. Nothing is generated or mixed.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		store := newStore(ctx, cfg)
		index := library.NewIndex(store)

		minutes := planMinutes
		if minutes <= 0 {
			minutes = cfg.Planner.DefaultDurationMinutes
		}

		plan, err := newPlanner(cfg, index).Plan(ctx, planner.Options{
			Concept:               strings.Join(args, " "),
			TargetDurationMinutes: minutes,
			ExcludeDays:           cfg.Planner.ExcludeUsedWithinDays,
			AllowLibraryReuse:     cfg.Planner.AllowLibraryReuse && !planNoReuse,
		})
		if err != nil {
			log.Fatalf("planning failed: %v", err)
		}

		out, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(out))
		fmt.Printf("\nEstimated cost: $%.2f (%d generated, %d reused)\n",
			plan.EstimatedCostUSD, len(plan.GenerateSlots()), len(plan.LibrarySlots()))
	},
}

func init() {
	planCmd.Flags().IntVar(&planMinutes, "minutes", 0, "target session duration in minutes")
	planCmd.Flags().BoolVar(&planNoReuse, "no-reuse", false, "plan without library reuse")
	rootCmd.AddCommand(planCmd)
}
