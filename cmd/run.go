package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkaplan/mixsmith/internal/session"
)

var (
	runMinutes int
	runWorkers int
	runVideo   bool
)

var runCmd = &cobra.Command{
	Use:   "run <concept>",
	Short: "Plan, generate and mix a full session",
	Long: `Runs the whole pipeline for a concept: the model plans the session,
tracks are generated or pulled from the library, and the final mix is
rendered and stored together with its plan and tracklist.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		pipeline, store := newPipeline(ctx, cfg)

		sess, err := pipeline.Run(ctx, session.RunOptions{
			Concept:               strings.Join(args, " "),
			TargetDurationMinutes: runMinutes,
			MaxConcurrentTasks:    runWorkers,
			ShowProgress:          true,
		})
		if err != nil {
			log.Fatalf("session failed: %v", err)
		}

		fmt.Println()
		fmt.Println(sess.Tracklist)
		fmt.Printf("Session %s stored at %s\n", sess.ID, sess.MixKey)

		if runVideo {
			if err := renderSessionVideo(ctx, cfg, store, sess.ID); err != nil {
				log.Fatalf("video render failed: %v", err)
			}
		}
	},
}

func init() {
	runCmd.Flags().IntVar(&runMinutes, "minutes", 0, "target session duration in minutes")
	runCmd.Flags().IntVar(&runWorkers, "workers", 4, "maximum concurrent acquisition tasks")
	runCmd.Flags().BoolVar(&runVideo, "video", false, "also render a waveform video")
	rootCmd.AddCommand(runCmd)
}
