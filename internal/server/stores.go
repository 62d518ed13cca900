package server

import (
	"context"
	"fmt"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content/repository"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/database"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/permissions"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stores are the persistence collaborators of the service.
type Stores struct {
	Content  repository.Repository
	Grants   permissions.GrantStore
	Settings permissions.SettingsStore
	// Backend is "mongo" or "memory".
	Backend string

	client *mongo.Client
}

// MemoryStores keeps everything in process.
func MemoryStores() *Stores {
	return &Stores{
		Content:  repository.NewMemoryRepo(),
		Grants:   permissions.NewMemoryGrantStore(),
		Settings: permissions.NewMemorySettingsStore(),
		Backend:  "memory",
	}
}

// OpenStores connects to MongoDB when a URI is configured and falls back to memory otherwise.
// A configured but unreachable MongoDB is an error unless fallback is set.
func OpenStores(ctx context.Context, cfg config.MongoDBConfig, fallback bool) (*Stores, error) {
	if cfg.URI == "" {
		return MemoryStores(), nil
	}
	client, err := database.ConnectMongoWithRetry(ctx, cfg.URI, cfg.Timeout, 5)
	if err != nil {
		if fallback {
			logger.Warnf("cannot connect to MongoDB (%v); using memory-backed stores", err)
			return MemoryStores(), nil
		}
		return nil, err
	}
	db := client.Database(cfg.Database)
	contentRepo, err := repository.NewMongoRepo(ctx, db.Collection("content"))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("content collection: %w", err)
	}
	grants, err := permissions.NewMongoGrantStore(ctx, db.Collection("grants"))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("grants collection: %w", err)
	}
	logger.Infof("using MongoDB database %s", cfg.Database)
	return &Stores{
		Content:  contentRepo,
		Grants:   grants,
		Settings: permissions.NewMongoSettingsStore(db.Collection("settings")),
		Backend:  "mongo",
		client:   client,
	}, nil
}

func (s *Stores) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
