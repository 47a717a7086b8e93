package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-poi-resolver/app/db"
	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/batch"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/cache"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/city"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/itinerary"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/place"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/provider"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/resolver"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/semantic"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	Places   place.Repository
	Index    *semantic.IndexImpl
	Resolver *resolver.ServiceImpl
	Writer   *resolver.Writer
	Planner  *batch.Planner
	// Runner is nil when the provider cannot list categories.
	Runner *batch.Runner

	ResolverHandler  *resolver.Handler
	ItineraryHandler *itinerary.Handler
	CityHandler      *city.Handler
	BatchHandler     *batch.Handler
}

// NewContainer wires repositories, services and handlers on top of an open pool.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, m *metrics.AppMetrics, logger *slog.Logger) (*Container, error) {
	c, err := Build(ctx, cfg, pool, m, logger)
	if err != nil {
		return nil, err
	}
	c.Pool = pool
	return c, nil
}

// Build wires everything against any DBTX, which lets tests substitute a mock pool.
func Build(ctx context.Context, cfg *config.Config, db database.DBTX, m *metrics.AppMetrics, logger *slog.Logger) (*Container, error) {
	// repositories
	placeRepo := place.NewRepository(db, logger)
	cacheRepo := cache.NewRepository(db, logger)
	semanticRepo := semantic.NewRepository(db, logger)
	cityRepo := city.NewCityRepository(db, logger)

	// collaborators
	embedder, err := semantic.NewEmbedder(ctx, cfg.Semantic)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	paid, err := provider.New(ctx, cfg.Provider, logger)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	if paid == nil {
		logger.Warn("Paid provider disabled; unresolved places will be synthesized")
	}

	// services
	index := semantic.NewIndex(semanticRepo, embedder, logger)
	store := cache.NewStore(cacheRepo, cfg.Cache.MemoryTTL, cfg.Cache.CleanupInterval, logger)
	writer := resolver.NewWriter(placeRepo, store, m, logger)
	resolverService := resolver.NewService(placeRepo, index, store, paid, writer, m, resolver.OptionsFromConfig(*cfg), logger)
	itineraryService := itinerary.NewService(placeRepo, resolverService, m, cfg.Itinerary, logger)
	planner := batch.NewPlanner(cityRepo, cfg.Batch, logger)

	var runner *batch.Runner
	if searcher, ok := paid.(provider.CategorySearcher); ok {
		runner = batch.NewRunner(searcher, writer, index, m, cfg.Batch, logger)
	}

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Places:           placeRepo,
		Index:            index,
		Resolver:         resolverService,
		Writer:           writer,
		Planner:          planner,
		Runner:           runner,
		ResolverHandler:  resolver.NewHandler(resolverService, logger),
		ItineraryHandler: itinerary.NewHandler(itineraryService, logger),
		CityHandler:      city.NewCityHandler(cityRepo, logger),
		BatchHandler:     batch.NewHandler(planner, runner, logger),
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
		c.Logger.Info("Database connection pool closed")
	}
}
