package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkaplan/mixsmith/internal/audio"
	"github.com/mkaplan/mixsmith/internal/mix"
)

var (
	mixOutput      string
	mixCrossfadeMs int
)

var mixCmd = &cobra.Command{
	Use:   "mix <file>...",
	Short: "Crossfade local audio files into one mix",
	Long: `Mixes local audio files in argument order with equal-power
crossfades, normalizes the result and writes an mp3 plus a tracklist
on stdout. No planner or providers are involved.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		engine := audio.NewEngine()

		tracks := make([]mix.Track, len(args))
		for i, path := range args {
			clip, err := engine.Decode(ctx, path)
			if err != nil {
				log.Fatalf("failed to decode %s: %v", path, err)
			}
			title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			tracks[i] = mix.Track{Title: title, Clip: clip}
		}

		crossfade := mixCrossfadeMs
		if crossfade <= 0 {
			crossfade = cfg.Mixer.CrossfadeMs
		}

		result, err := mix.Compose(tracks, mix.Options{
			CrossfadeMs: crossfade,
			Normalize:   cfg.Mixer.Normalize,
			TargetDBFS:  cfg.Mixer.TargetDBFS,
		})
		if err != nil {
			log.Fatalf("mix failed: %v", err)
		}

		if err := engine.Encode(ctx, result.Clip, mixOutput, cfg.Mixer.Bitrate); err != nil {
			log.Fatalf("encode failed: %v", err)
		}

		fmt.Println(mix.RenderTracklist(result))
		fmt.Printf("Mix written to %s\n", mixOutput)
	},
}

func init() {
	mixCmd.Flags().StringVarP(&mixOutput, "output", "o", "mix.mp3", "output file")
	mixCmd.Flags().IntVar(&mixCrossfadeMs, "crossfade-ms", 0, "crossfade length in milliseconds")
	rootCmd.AddCommand(mixCmd)
}
