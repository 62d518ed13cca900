package main

import (
	"context"
	"os"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/server"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Standalone content service for local work: no Redis, no object storage, callers identified
// by the X-Actor-ID header. MongoDB is used when reachable, memory otherwise.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Configure("development", os.Stdout)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	addr := os.Getenv("CONTENT_SERVICE_PORT")
	if addr == "" {
		addr = "5010"
	}

	ctx := context.Background()
	stores, err := server.OpenStores(ctx, cfg.MongoDB, true)
	if err != nil {
		logger.Fatalf("failed to open stores: %v", err)
	}
	defer func() { _ = stores.Close(ctx) }()

	r, err := server.NewRouter(ctx, cfg, server.Deps{Stores: stores, Auth: server.AuthHeader})
	if err != nil {
		logger.Fatalf("failed to build router: %v", err)
	}
	logger.Infof("content service listening on :%s (store=%s)", addr, stores.Backend)
	if err := r.Run(":" + addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
