package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkaplan/mixsmith/config"
	"github.com/mkaplan/mixsmith/internal/session"
	"github.com/mkaplan/mixsmith/internal/storage"
	"github.com/mkaplan/mixsmith/internal/video"
)

var (
	composeWidth     int
	composeHeight    int
	composeWaveColor string
	composeBGColor   string
)

var composeCmd = &cobra.Command{
	Use:   "compose <session-id>",
	Short: "Render a waveform video for a stored session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		store := newStore(ctx, cfg)
		if err := renderSessionVideo(ctx, cfg, store, args[0]); err != nil {
			log.Fatalf("video render failed: %v", err)
		}
	},
}

// renderSessionVideo downloads a session's mix, renders the waveform
// video and uploads it next to the mix.
func renderSessionVideo(ctx context.Context, cfg *config.Config, store storage.Store, sessionID string) error {
	workDir, err := os.MkdirTemp(cfg.Storage.TempDir, "mixsmith_video_*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	mixPath := filepath.Join(workDir, "final_mix.mp3")
	if err := store.Download(ctx, session.MixKey(sessionID), mixPath); err != nil {
		return fmt.Errorf("failed to fetch mix for %s: %w", sessionID, err)
	}

	videoPath := filepath.Join(workDir, "final_mix.mp4")
	err = video.NewRenderer().Render(ctx, mixPath, videoPath, video.Options{
		Width:           composeWidth,
		Height:          composeHeight,
		WaveColor:       composeWaveColor,
		BackgroundColor: composeBGColor,
	})
	if err != nil {
		return err
	}

	key := session.VideoKey(sessionID)
	if err := store.Upload(ctx, videoPath, key, "video/mp4"); err != nil {
		return fmt.Errorf("failed to store video: %w", err)
	}

	fmt.Printf("Video stored at %s\n", key)
	return nil
}

func init() {
	composeCmd.Flags().IntVar(&composeWidth, "width", 1280, "video width")
	composeCmd.Flags().IntVar(&composeHeight, "height", 720, "video height")
	composeCmd.Flags().StringVar(&composeWaveColor, "wave-color", "white", "waveform color")
	composeCmd.Flags().StringVar(&composeBGColor, "bg-color", "black", "background color")
	rootCmd.AddCommand(composeCmd)
}
