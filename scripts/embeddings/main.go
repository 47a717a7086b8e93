package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	database "github.com/FACorreiaa/go-poi-resolver/app/db"
	appLogger "github.com/FACorreiaa/go-poi-resolver/app/logger"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/place"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/semantic"
)

var (
	batchSize = flag.Int("batch", 50, "documents embedded per round")
	workers   = flag.Int("workers", 4, "concurrent embedding calls")
	city      = flag.String("city", "", "index every stored place of this city before backfilling")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := appLogger.New(cfg.Mode)

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, cfg.Repositories.Postgres.MaxConns, logger)
	if err != nil {
		logger.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready")
		os.Exit(1)
	}

	embedder, err := semantic.NewEmbedder(ctx, cfg.Semantic)
	if err != nil {
		logger.Error("Failed to create embedder", slog.Any("error", err))
		os.Exit(1)
	}
	if embedder == nil {
		logger.Error("semantic.embedder is none; nothing to do")
		os.Exit(1)
	}
	index := semantic.NewIndex(semantic.NewRepository(pool, logger), embedder, logger)

	if *city != "" {
		places, err := place.NewRepository(pool, logger).ListByCity(ctx, *city)
		if err != nil {
			logger.Error("Failed to list city places", slog.Any("error", err))
			os.Exit(1)
		}
		indexed, failed := 0, 0
		for _, p := range places {
			if err := index.IndexPlace(ctx, p); err != nil {
				logger.Warn("Failed to index place", slog.String("place", p.Key().String()), slog.Any("error", err))
				failed++
				continue
			}
			indexed++
		}
		logger.Info("City places indexed", slog.String("city", *city), slog.Int("indexed", indexed), slog.Int("failed", failed))
	}

	total := 0
	for {
		n, err := index.Backfill(ctx, *batchSize, *workers)
		if err != nil {
			logger.Error("Backfill failed", slog.Any("error", err))
			os.Exit(1)
		}
		total += n
		if n == 0 {
			break
		}
	}
	logger.Info("Embedding backfill completed", slog.Int("updated", total))
}
