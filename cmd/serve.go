package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/mkaplan/mixsmith/internal/library"
	"github.com/mkaplan/mixsmith/internal/server"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the session pipeline over HTTP: sessions run as background
jobs that can be polled and cancelled, and the track library can be
browsed by genre.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		pipeline, store := newPipeline(ctx, cfg)
		browser := library.NewIndex(store)

		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}

		if err := server.New(cfg, pipeline, browser).Start(port); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (defaults to config)")
	rootCmd.AddCommand(serveCmd)
}
