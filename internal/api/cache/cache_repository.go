package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-poi-resolver/app/db"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists cache entries as JSON payloads keyed by signature.
type Repository interface {
	Get(ctx context.Context, key string) (*types.CacheEntry, error)
	Put(ctx context.Context, entry types.CacheEntry) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewRepository(db database.DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, db: db}
}

func (r *RepositoryImpl) Get(ctx context.Context, key string) (*types.CacheEntry, error) {
	ctx, span := otel.Tracer("CacheRepository").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("cache.key", key),
	))
	defer span.End()

	var payload []byte
	entry := types.CacheEntry{Key: key}
	err := r.db.QueryRow(ctx,
		`SELECT payload, fetched_at FROM cache_entries WHERE key = $1`, key,
	).Scan(&payload, &entry.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "Cache miss")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read cache entry")
		return nil, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	if err = json.Unmarshal(payload, &entry.Places); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}

	span.SetStatus(codes.Ok, "Cache hit")
	return &entry, nil
}

func (r *RepositoryImpl) Put(ctx context.Context, entry types.CacheEntry) error {
	ctx, span := otel.Tracer("CacheRepository").Start(ctx, "Put", trace.WithAttributes(
		attribute.String("cache.key", entry.Key),
		attribute.Int("cache.places", len(entry.Places)),
	))
	defer span.End()

	payload, err := json.Marshal(entry.Places)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode cache entry %q: %w", entry.Key, err)
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO cache_entries (key, payload, fetched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`,
		entry.Key, payload, entry.FetchedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to write cache entry")
		return fmt.Errorf("failed to write cache entry %q: %w", entry.Key, err)
	}

	span.SetStatus(codes.Ok, "Cache entry written")
	return nil
}
