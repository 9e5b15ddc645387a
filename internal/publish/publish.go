package publish

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"promoscan/internal/config"
	"promoscan/internal/promo"
)

// Publisher pushes a finished crawl to a remote destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, artifactPath string, categories []promo.Category) error
}

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}

// FromConfig builds the publishers enabled in cfg. The returned closer
// releases their clients and is never nil.
func FromConfig(ctx context.Context, cfg config.Config) ([]Publisher, func(), error) {
	var publishers []Publisher
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.WithError(err).Warn("Failed to close publisher")
			}
		}
	}

	if cfg.Firebase.DatabaseURL != "" {
		rtdb, err := NewRealtimeDB(ctx, cfg.Firebase)
		if err != nil {
			return nil, func() {}, err
		}
		publishers = append(publishers, rtdb)
	}

	if cfg.Storage.Bucket != "" {
		bucket, err := NewBucket(ctx, cfg.Storage, cfg.Output.Format)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		publishers = append(publishers, bucket)
		closers = append(closers, bucket.Close)
	}

	return publishers, closeAll, nil
}
