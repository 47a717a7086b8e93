package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-poi-resolver/app/db"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	SaveCity(ctx context.Context, city types.City) (uuid.UUID, error)
	// FindCityCenter returns nil, nil for an unknown city.
	FindCityCenter(ctx context.Context, name string) (*types.GeoPoint, error)
	GetAllCities(ctx context.Context) ([]types.City, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewCityRepository(db database.DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

// SaveCity inserts the city or moves the center of an existing one.
func (r *RepositoryImpl) SaveCity(ctx context.Context, city types.City) (uuid.UUID, error) {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "SaveCity", trace.WithAttributes(
		attribute.String("city.name", city.Name),
	))
	defer span.End()

	norm := types.NormalizeIdentity(city.Name)
	if norm == "" {
		return uuid.Nil, &types.ValidationError{Field: "city", Reason: "must not be empty"}
	}
	if !city.Center.Valid() {
		return uuid.Nil, &types.ValidationError{Field: "center", Reason: "coordinates out of range"}
	}

	query := `
        INSERT INTO cities (name, name_norm, country, latitude, longitude)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (name_norm) DO UPDATE
        SET latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            country = COALESCE(NULLIF(cities.country, ''), EXCLUDED.country)
        RETURNING id
    `
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query,
		city.Name, norm, city.Country, city.Center.Lat, city.Center.Lng,
	).Scan(&id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return uuid.Nil, fmt.Errorf("failed to save city: %w", err)
	}
	span.SetStatus(codes.Ok, "City saved")
	return id, nil
}

func (r *RepositoryImpl) FindCityCenter(ctx context.Context, name string) (*types.GeoPoint, error) {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "FindCityCenter", trace.WithAttributes(
		attribute.String("city.name", name),
	))
	defer span.End()

	query := `SELECT latitude, longitude FROM cities WHERE name_norm = $1`
	var center types.GeoPoint
	if err := r.db.QueryRow(ctx, query, types.NormalizeIdentity(name)).Scan(&center.Lat, &center.Lng); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "City not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("failed to find city center: %w", err)
	}
	span.SetStatus(codes.Ok, "City found")
	return &center, nil
}

func (r *RepositoryImpl) GetAllCities(ctx context.Context) ([]types.City, error) {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "GetAllCities")
	defer span.End()

	query := `
        SELECT id, name, country, latitude, longitude
        FROM cities
        ORDER BY name_norm
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("failed to query cities: %w", err)
	}
	defer rows.Close()

	var cities []types.City
	for rows.Next() {
		var c types.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country, &c.Center.Lat, &c.Center.Lng); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating cities: %w", err)
	}

	r.logger.DebugContext(ctx, "Cities listed", slog.Int("count", len(cities)))
	span.SetStatus(codes.Ok, "Cities listed")
	return cities, nil
}
