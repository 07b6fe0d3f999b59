package storage

import (
	"fmt"

	"rentshare-backend/internal/config"
	"rentshare-backend/internal/logger"
)

// New builds the backend selected by cfg.Type.
func New(cfg config.StorageConfig) (StorageInterface, error) {
	switch cfg.Type {
	case "", "mock":
		logger.Info("Using mock storage (local filesystem)", "upload_dir", cfg.UploadDir)
		return NewMockStorageService(cfg.BaseURL, cfg.UploadDir)
	case "s3":
		logger.Info("Using s3 storage", "bucket", cfg.Bucket, "region", cfg.Region)
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
