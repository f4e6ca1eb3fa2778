package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mkaplan/mixsmith/internal/library"
	"github.com/mkaplan/mixsmith/internal/mix"
)

var libraryLimit int

var libraryCmd = &cobra.Command{
	Use:   "library <genre>",
	Short: "List stored tracks for a genre",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		index := library.NewIndex(newStore(ctx, cfg))

		limit := libraryLimit
		if limit <= 0 {
			limit = cfg.Planner.CandidateLimit
		}

		tracks, err := index.Query(ctx, args[0], 0, limit)
		if err != nil {
			log.Fatalf("library query failed: %v", err)
		}

		if len(tracks) == 0 {
			fmt.Printf("No tracks stored for genre %q\n", args[0])
			return
		}

		for _, t := range tracks {
			fmt.Printf("%s  %-30s  %6.1f BPM  %s  used %d times  %s\n",
				t.TrackID, t.Title, t.BPM, mix.FormatTimestamp(t.DurationMs), t.UsageCount, t.Provider)
		}
		fmt.Printf("\n%d tracks\n", len(tracks))
	},
}

func init() {
	libraryCmd.Flags().IntVar(&libraryLimit, "limit", 0, "maximum number of tracks to list")
	rootCmd.AddCommand(libraryCmd)
}
