package storage

import (
	"fmt"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
)

// NewObjectStore picks the store backend from configuration.
func NewObjectStore(cfg *config.Config, log logger.Logger) (ObjectStore, error) {
	switch cfg.StoreBackend {
	case "minio":
		return NewMinioStore(cfg, log)
	case "s3":
		return NewS3Store(cfg, log)
	}
	return nil, fmt.Errorf("invalid store backend %q", cfg.StoreBackend)
}
