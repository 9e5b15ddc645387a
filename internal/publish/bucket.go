package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"

	"promoscan/internal/config"
	"promoscan/internal/output"
	"promoscan/internal/promo"
)

// Bucket uploads the artifact file to a Cloud Storage bucket.
type Bucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	object string
	format string
}

// NewBucket creates a Bucket publisher. format is the artifact's output format
// and decides the uploaded content type.
func NewBucket(ctx context.Context, cfg config.StorageConfig, format string) (*Bucket, error) {
	client, err := storage.NewClient(ctx, clientOptions(cfg.CredentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}
	return &Bucket{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		object: cfg.Object,
		format: format,
	}, nil
}

func (b *Bucket) Name() string {
	return "bucket"
}

func (b *Bucket) Publish(ctx context.Context, artifactPath string, _ []promo.Category) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	object := objectName(b.object, artifactPath)
	wc := b.bucket.Object(object).NewWriter(ctx)
	wc.ContentType = output.ContentType(b.format)
	if _, err := io.Copy(wc, f); err != nil {
		wc.Close()
		return fmt.Errorf("failed to upload %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish upload of %s: %w", object, err)
	}

	log.WithFields(log.Fields{
		"bucket": b.name,
		"object": object,
	}).Info("Uploaded artifact")
	return nil
}

func (b *Bucket) Close() error {
	return b.client.Close()
}

// objectName falls back to the artifact's file name when no object is configured.
func objectName(configured, artifactPath string) string {
	if configured != "" {
		return configured
	}
	return filepath.Base(artifactPath)
}
