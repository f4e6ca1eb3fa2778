package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/mkaplan/mixsmith/config"
	"github.com/mkaplan/mixsmith/internal/acquire"
	"github.com/mkaplan/mixsmith/internal/audio"
	"github.com/mkaplan/mixsmith/internal/library"
	"github.com/mkaplan/mixsmith/internal/oracle"
	"github.com/mkaplan/mixsmith/internal/planner"
	"github.com/mkaplan/mixsmith/internal/provider"
	"github.com/mkaplan/mixsmith/internal/session"
	"github.com/mkaplan/mixsmith/internal/storage"
)

// loadConfig reads the config file and wires slog. Commands call this
// first; a broken config is fatal.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(cfg.LogLevel),
	})))

	return cfg
}

func newStore(ctx context.Context, cfg *config.Config) storage.Store {
	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	return store
}

func newOracle(cfg *config.Config) *oracle.Client {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENROUTER_API_KEY is not set")
	}
	return oracle.NewClient(apiKey, cfg.Oracle.BaseURL, cfg.Oracle.Model)
}

// newRegistry builds the provider registry from whichever API keys are
// present. Planning needs no providers; rendering needs at least one.
func newRegistry() *provider.Registry {
	var providers []provider.MusicProvider
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		providers = append(providers, provider.NewElevenLabs(key))
	}
	if key := os.Getenv("STABILITY_API_KEY"); key != "" {
		providers = append(providers, provider.NewStableAudio(key))
	}
	return provider.NewRegistry(providers...)
}

func newPlanner(cfg *config.Config, index *library.Index) *planner.Planner {
	return planner.New(index, newOracle(cfg), cfg.Provider.Costs, cfg.Planner.CandidateLimit)
}

func newPipeline(ctx context.Context, cfg *config.Config) (*session.Pipeline, storage.Store) {
	store := newStore(ctx, cfg)
	index := library.NewIndex(store)

	return session.NewPipeline(
		newPlanner(cfg, index),
		acquire.NewAcquirer(index, newRegistry()),
		index,
		audio.NewEngine(),
		store,
		cfg,
	), store
}
