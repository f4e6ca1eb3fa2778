package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/mkaplan/mixsmith/config"
)

// New creates the Store selected by the configuration.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Type {
	case "local":
		return NewLocalStore(cfg.Storage.OutputDir)
	case "gcs":
		return NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.ObjectPrefix, cfg.Storage.CredentialsFile)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: os.Getenv("S3_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
