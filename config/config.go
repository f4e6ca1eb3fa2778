package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Planner  PlannerConfig  `yaml:"planner"`
	Mixer    MixerConfig    `yaml:"mixer"`
	Provider ProviderConfig `yaml:"providers"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StorageConfig struct {
	// Type of storage: "local", "gcs" or "s3"
	Type string `yaml:"type"`

	// Local storage options
	OutputDir string `yaml:"output_dir"`
	TempDir   string `yaml:"temp_dir"`

	// GCS options
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	CredentialsFile string `yaml:"credentials_file"`

	// S3-compatible options (Cloudflare R2, MinIO). Credentials come
	// from the environment: S3_ACCESS_KEY_ID / S3_SECRET_ACCESS_KEY.
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	UseSSL   bool   `yaml:"use_ssl"`
}

type OracleConfig struct {
	// OpenRouter model used for session planning.
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type PlannerConfig struct {
	DefaultDurationMinutes int  `yaml:"default_duration_minutes"`
	ExcludeUsedWithinDays  int  `yaml:"exclude_used_within_days"`
	AllowLibraryReuse      bool `yaml:"allow_library_reuse"`
	CandidateLimit         int  `yaml:"candidate_limit"`
}

type MixerConfig struct {
	CrossfadeMs int     `yaml:"crossfade_ms"`
	Normalize   bool    `yaml:"normalize"`
	TargetDBFS  float64 `yaml:"target_dbfs"`
	Bitrate     string  `yaml:"bitrate"`
}

// ProviderCost is the static cost table entry for one provider.
type ProviderCost struct {
	CostPerTrack float64 `yaml:"cost_per_track"`
	CostPerMs    float64 `yaml:"cost_per_ms"`
}

type ProviderConfig struct {
	Costs map[string]ProviderCost `yaml:"costs"`
}

// defaults is the configuration used when a field is absent from the
// YAML file. Decoding happens on top of it, so an explicit zero in the
// file (crossfade_ms: 0 for hard cuts, target_dbfs: 0) stays a zero.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Storage: StorageConfig{
			Type:      "local",
			OutputDir: "output",
			TempDir:   os.TempDir(),
		},
		Oracle: OracleConfig{
			Model:   "anthropic/claude-sonnet-4.5",
			BaseURL: "https://openrouter.ai/api/v1",
		},
		Planner: PlannerConfig{
			DefaultDurationMinutes: 60,
			ExcludeUsedWithinDays:  7,
			CandidateLimit:         50,
		},
		Mixer: MixerConfig{
			CrossfadeMs: 5000,
			TargetDBFS:  -1.0,
			Bitrate:     "320k",
		},
		Provider: ProviderConfig{
			Costs: map[string]ProviderCost{
				"elevenlabs":   {CostPerMs: 0.000005},
				"stable_audio": {CostPerTrack: 0.20},
			},
		},
	}
}

func Load(path string) (*Config, error) {
	// API credentials live in .env, never in the YAML file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}
