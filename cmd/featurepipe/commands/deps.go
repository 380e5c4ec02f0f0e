package commands

import (
	"context"
	"fmt"

	"github.com/quantward/featurepipe/internal/alphavantage"
	"github.com/quantward/featurepipe/internal/extract"
	"github.com/quantward/featurepipe/internal/transform"
	"github.com/quantward/featurepipe/pkg/config"
	"github.com/quantward/featurepipe/pkg/database"
	"github.com/quantward/featurepipe/pkg/httputil"
	"github.com/quantward/featurepipe/pkg/logger"
	"github.com/quantward/featurepipe/pkg/redis"
	"github.com/quantward/featurepipe/pkg/warehouse"
)

// app holds the wired dependency graph shared by the CLI commands.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	mirror    *warehouse.Conn
	extractor *extract.Extractor
	store     *extract.Store
	pipeline  *transform.Pipeline
}

// initApp wires configuration, storage, clients and the pipeline.
func initApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	httpClient := httputil.New(log)
	if redisClient.Enabled() {
		limiter := redis.NewRateLimiter(redisClient, "featurepipe")
		httpClient = httpClient.WithRateLimiter(limiter, redis.AlphaVantageRateLimit(cfg.AlphaVantage.RequestsPerMinute))
	}

	var mirror *warehouse.Conn
	if cfg.Warehouse.Enabled {
		mirror, err = warehouse.New(ctx, cfg.Warehouse.DSN)
		if err != nil {
			// Mirror is optional; the Postgres tables stay authoritative
			log.WithError(err).Warn("Warehouse unavailable, continuing without mirror")
			mirror = nil
		}
	}

	avClient := alphavantage.NewClient(cfg, httpClient, log)
	store := extract.NewStore(db.Pool)

	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		mirror:    mirror,
		store:     store,
		extractor: extract.New(store, avClient, log),
		pipeline:  transform.New(db, mirror, log),
	}, nil
}

// close releases every connection the app holds.
func (a *app) close() {
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}
