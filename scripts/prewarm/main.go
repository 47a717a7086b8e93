package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	database "github.com/FACorreiaa/go-poi-resolver/app/db"
	appLogger "github.com/FACorreiaa/go-poi-resolver/app/logger"
	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/city"
	"github.com/FACorreiaa/go-poi-resolver/internal/container"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

var (
	targetsFlag = flag.String("targets", "", "comma separated city:category pairs, e.g. Turin:museum,Asti:church")
	fileFlag    = flag.String("file", "", "JSON file holding a batch plan request")
	runFlag     = flag.Bool("run", false, "execute the plan; without it only the estimate is printed")
	saveCenters = flag.Bool("save-centers", false, "store the centers given in -file in the cities table")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := appLogger.New(cfg.Mode)

	req, err := request(*targetsFlag, *fileFlag)
	if err != nil {
		logger.Error("Invalid input", slog.Any("error", err))
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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
	c, err := container.NewContainer(ctx, &cfg, pool, metrics.Noop(), logger)
	if err != nil {
		logger.Error("Failed to wire application", slog.Any("error", err))
		pool.Close()
		os.Exit(1)
	}
	defer c.Close()

	if *saveCenters {
		cities := city.NewCityRepository(pool, logger)
		for name, center := range req.Centers {
			if _, err := cities.SaveCity(ctx, types.City{Name: name, Center: center}); err != nil {
				logger.Warn("Failed to save city center", slog.String("city", name), slog.Any("error", err))
			}
		}
	}

	plan, err := c.Planner.Plan(ctx, req)
	if err != nil {
		logger.Error("Planning failed", slog.Any("error", err))
		os.Exit(1)
	}
	printJSON(plan)

	if !*runFlag {
		return
	}
	if c.Runner == nil {
		logger.Error("Configured provider cannot run category searches", slog.String("provider", cfg.Provider.Kind))
		os.Exit(1)
	}
	report, err := c.Runner.Run(ctx, plan)
	if report != nil {
		printJSON(report)
	}
	if err != nil {
		logger.Error("Pre-warm interrupted", slog.Any("error", err))
		os.Exit(1)
	}
}

func request(targets, file string) (types.BatchPlanRequest, error) {
	var req types.BatchPlanRequest
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	for _, pair := range strings.Split(targets, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		cityName, category, ok := strings.Cut(pair, ":")
		if !ok {
			return req, fmt.Errorf("target %q is not city:category", pair)
		}
		req.Targets = append(req.Targets, types.BatchTarget{City: cityName, Category: types.Category(category)})
	}
	if len(req.Targets) == 0 {
		return req, fmt.Errorf("no targets given; use -targets or -file")
	}
	return req, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("encode: %v", err)
	}
}
