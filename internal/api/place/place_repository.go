package place

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

// Repository is the authoritative store of places keyed by normalized (name, city).
type Repository interface {
	// FindByIdentity returns nil, nil when no row matches.
	FindByIdentity(ctx context.Context, key types.PlaceKey) (*types.Place, error)
	// FindCandidates returns trigram-similar names in the same city, best first.
	FindCandidates(ctx context.Context, key types.PlaceKey, limit int) ([]types.Place, error)
	// ListByCity returns every place of a city in insertion order.
	ListByCity(ctx context.Context, city string) ([]types.Place, error)
	// Upsert inserts p or fills the empty fields of the existing row. Never overwrites.
	Upsert(ctx context.Context, p types.Place) (*types.Place, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewRepository(db database.DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

const storedConfidence = 1.0

const placeColumns = `id, name, city, COALESCE(external_id, ''), category, COALESCE(description, ''),
       latitude, longitude, COALESCE(image_ref, ''), provenance, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (types.Place, error) {
	var p types.Place
	var category, provenance string
	err := row.Scan(
		&p.ID, &p.Name, &p.City, &p.ExternalID, &category, &p.Description,
		&p.Latitude, &p.Longitude, &p.ImageRef, &provenance, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Category = types.Category(category)
	p.Provenance = types.Provenance(provenance)
	return p, err
}

func (r *RepositoryImpl) FindByIdentity(ctx context.Context, key types.PlaceKey) (*types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "FindByIdentity", trace.WithAttributes(
		attribute.String("place.key", key.String()),
	))
	defer span.End()

	query := `SELECT ` + placeColumns + `
        FROM places
        WHERE name_norm = $1 AND city_norm = $2`

	p, err := scanPlace(r.db.QueryRow(ctx, query, key.Name, key.City))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "No place found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to find place")
		return nil, fmt.Errorf("failed to find place %s: %w", key, err)
	}

	span.SetStatus(codes.Ok, "Place found")
	return &p, nil
}

func (r *RepositoryImpl) FindCandidates(ctx context.Context, key types.PlaceKey, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "FindCandidates", trace.WithAttributes(
		attribute.String("place.key", key.String()),
		attribute.Int("limit", limit),
	))
	defer span.End()

	query := `SELECT ` + placeColumns + `
        FROM places
        WHERE city_norm = $1
          AND (name_norm % $2 OR name_norm LIKE '%' || $2 || '%' OR $2 LIKE '%' || name_norm || '%')
        ORDER BY similarity(name_norm, $2) DESC, name_norm
        LIMIT $3`

	places, err := r.queryPlaces(ctx, query, key.City, key.Name, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query candidates")
		return nil, fmt.Errorf("failed to find candidates for %s: %w", key, err)
	}

	span.SetAttributes(attribute.Int("candidates.count", len(places)))
	span.SetStatus(codes.Ok, "Candidates retrieved")
	return places, nil
}

func (r *RepositoryImpl) ListByCity(ctx context.Context, city string) ([]types.Place, error) {
	cityNorm := types.NormalizeIdentity(city)
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "ListByCity", trace.WithAttributes(
		attribute.String("city", cityNorm),
	))
	defer span.End()

	query := `SELECT ` + placeColumns + `
        FROM places
        WHERE city_norm = $1
        ORDER BY created_at, id`

	places, err := r.queryPlaces(ctx, query, cityNorm)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list places")
		return nil, fmt.Errorf("failed to list places for city %q: %w", city, err)
	}
	// stored rows are the structured tier and outrank semantic candidates
	for i := range places {
		places[i].Confidence = storedConfidence
	}

	span.SetAttributes(attribute.Int("places.count", len(places)))
	span.SetStatus(codes.Ok, "Places listed")
	return places, nil
}

func (r *RepositoryImpl) queryPlaces(ctx context.Context, query string, args ...any) ([]types.Place, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []types.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		places = append(places, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return places, nil
}

// mergeAssignments builds the SET list that only fills empty columns. v maps a column
// name to the expression holding the incoming value.
func mergeAssignments(v func(col string) string) string {
	lat, lng := v("latitude"), v("longitude")
	noCoords := "(places.latitude IS NULL OR places.longitude IS NULL)"
	newCoords := fmt.Sprintf("%s IS NOT NULL AND %s IS NOT NULL", lat, lng)
	return fmt.Sprintf(`external_id = COALESCE(NULLIF(places.external_id, ''), %s),
            category    = COALESCE(NULLIF(NULLIF(places.category, ''), 'other'), %s, places.category),
            description = COALESCE(NULLIF(places.description, ''), %s),
            image_ref   = COALESCE(NULLIF(places.image_ref, ''), %s),
            latitude    = CASE WHEN %s AND %s THEN %s ELSE places.latitude END,
            longitude   = CASE WHEN %s AND %s THEN %s ELSE places.longitude END,
            updated_at  = NOW()`,
		v("external_id"), v("category"), v("description"), v("image_ref"),
		noCoords, newCoords, lat,
		noCoords, newCoords, lng,
	)
}

var (
	updateMergeQuery = `UPDATE places SET ` + mergeAssignments(func(col string) string {
		return map[string]string{
			"external_id": "NULLIF($2, '')",
			"category":    "NULLIF($3, '')",
			"description": "NULLIF($4, '')",
			"latitude":    "$5::double precision",
			"longitude":   "$6::double precision",
			"image_ref":   "NULLIF($7, '')",
		}[col]
	}) + `
        WHERE id = $1
        RETURNING ` + placeColumns

	insertMergeQuery = `INSERT INTO places (
            name, city, name_norm, city_norm, external_id, category, description,
            latitude, longitude, image_ref, provenance
        ) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, NULLIF($10, ''), $11)
        ON CONFLICT (name_norm, city_norm) DO UPDATE SET ` + mergeAssignments(func(col string) string {
		return "EXCLUDED." + col
	}) + `
        RETURNING ` + placeColumns
)

func (r *RepositoryImpl) Upsert(ctx context.Context, p types.Place) (_ *types.Place, err error) {
	key := p.Key()
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "Upsert", trace.WithAttributes(
		attribute.String("place.key", key.String()),
		attribute.String("place.provenance", string(p.Provenance)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Upsert"), slog.String("key", key.String()))

	if key.IsZero() {
		return nil, &types.ValidationError{Field: "identity", Reason: "name and city are required"}
	}
	if p.Category == "" {
		p.Category = types.CategoryOther
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				l.WarnContext(ctx, "Rollback failed", slog.Any("error", rbErr))
			}
		}
	}()

	var existingID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM places WHERE name_norm = $1 AND city_norm = $2 FOR UPDATE`,
		key.Name, key.City).Scan(&existingID)

	var saved types.Place
	switch {
	case err == nil:
		saved, err = scanPlace(tx.QueryRow(ctx, updateMergeQuery,
			existingID, p.ExternalID, string(p.Category), p.Description, p.Latitude, p.Longitude, p.ImageRef,
		))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to merge place")
			return nil, fmt.Errorf("failed to merge place %s: %w", key, err)
		}
		l.DebugContext(ctx, "Merged into existing place", slog.String("id", saved.ID.String()))
	case errors.Is(err, pgx.ErrNoRows):
		saved, err = scanPlace(tx.QueryRow(ctx, insertMergeQuery,
			p.Name, p.City, key.Name, key.City, p.ExternalID, string(p.Category), p.Description,
			p.Latitude, p.Longitude, p.ImageRef, string(p.Provenance),
		))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to insert place")
			return nil, fmt.Errorf("failed to insert place %s: %w", key, err)
		}
		l.DebugContext(ctx, "Inserted place", slog.String("id", saved.ID.String()))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to lock place")
		return nil, fmt.Errorf("failed to look up place %s: %w", key, err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetAttributes(attribute.String("place.id", saved.ID.String()))
	span.SetStatus(codes.Ok, "Place upserted")
	return &saved, nil
}
