package publish

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/db"
	log "github.com/sirupsen/logrus"

	"promoscan/internal/config"
	"promoscan/internal/promo"
)

// RealtimeDB replaces the value at a Realtime Database path with the category array.
type RealtimeDB struct {
	client *db.Client
	path   string
}

// NewRealtimeDB connects to the database named in cfg. Without a credentials
// file, application default credentials are used.
func NewRealtimeDB(ctx context.Context, cfg config.FirebaseConfig) (*RealtimeDB, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: cfg.DatabaseURL}, clientOptions(cfg.CredentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize realtime database client: %w", err)
	}

	return &RealtimeDB{client: client, path: cfg.Path}, nil
}

func (r *RealtimeDB) Name() string {
	return "realtimedb"
}

func (r *RealtimeDB) Publish(ctx context.Context, _ string, categories []promo.Category) error {
	if categories == nil {
		categories = []promo.Category{}
	}
	if err := r.client.NewRef(r.path).Set(ctx, categories); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.path, err)
	}

	c, p := promo.Totals(categories)
	log.WithFields(log.Fields{
		"path":       r.path,
		"categories": c,
		"products":   p,
	}).Info("Published to realtime database")
	return nil
}
