package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"adsboard/internal/config"
)

// ObjectStore is the durable blob store behind uploaded images.
type ObjectStore interface {
	// Put stores body under key.
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of key.
	URL(key string) string
}

// New builds the store selected by cfg.Provider.
func New(ctx context.Context, cfg config.ObjectStoreConfig, log *zap.Logger) (ObjectStore, error) {
	switch cfg.Provider {
	case config.StorageProviderR2:
		return NewR2Store(ctx, cfg)
	case config.StorageProviderMinIO:
		return NewMinIOStore(ctx, cfg, log)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}
