package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-poi-resolver/app/db"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	UpsertDocument(ctx context.Context, doc Document) (uuid.UUID, error)
	DocumentsWithoutEmbeddings(ctx context.Context, limit int) ([]Document, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewRepository(db database.DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, db: db}
}

// vectorLiteral formats an embedding as a pgvector text literal.
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

const documentColumns = `id, title, body, COALESCE(city_norm, ''), COALESCE(place_name, ''), COALESCE(category, ''),
       latitude, longitude, COALESCE(image_ref, ''), COALESCE(external_id, ''), source, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, extra ...any) (Document, error) {
	var d Document
	var category string
	dest := append([]any{
		&d.ID, &d.Title, &d.Body, &d.City, &d.PlaceName, &category,
		&d.Latitude, &d.Longitude, &d.ImageRef, &d.ExternalID, &d.Source, &d.CreatedAt,
	}, extra...)
	err := row.Scan(dest...)
	d.Category = types.Category(category)
	return d, err
}

func (r *RepositoryImpl) Search(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	ctx, span := otel.Tracer("SemanticRepository").Start(ctx, "Search", trace.WithAttributes(
		attribute.Int("embedding.dimension", len(embedding)),
		attribute.Int("limit", topK),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Search"))

	query := `SELECT ` + documentColumns + `, 1 - (embedding <=> $1::vector) AS similarity_score
        FROM place_documents
        WHERE embedding IS NOT NULL
        ORDER BY embedding <=> $1::vector
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, vectorLiteral(embedding), topK)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query similar documents", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search similar documents: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var score float64
		d, err := scanDocument(rows, &score)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan similar document row: %w", err)
		}
		matches = append(matches, d.match(score))
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating similar documents: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(matches)))
	span.SetStatus(codes.Ok, "Similar documents found")
	return matches, nil
}

func (r *RepositoryImpl) UpsertDocument(ctx context.Context, doc Document) (uuid.UUID, error) {
	ctx, span := otel.Tracer("SemanticRepository").Start(ctx, "UpsertDocument", trace.WithAttributes(
		attribute.String("document.title", doc.Title),
		attribute.String("document.source", doc.Source),
	))
	defer span.End()

	var embedding any
	var generatedAt *time.Time
	if len(doc.Embedding) > 0 {
		embedding = vectorLiteral(doc.Embedding)
		now := time.Now()
		generatedAt = &now
	}
	if doc.Source == "" {
		doc.Source = SourceGuide
	}

	query := `INSERT INTO place_documents (
            title, body, city_norm, place_name, category, latitude, longitude,
            image_ref, external_id, source, embedding, embedding_generated_at
        ) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11::vector, $12)
        ON CONFLICT (title, city_norm) DO UPDATE SET
            body                   = EXCLUDED.body,
            place_name             = COALESCE(EXCLUDED.place_name, place_documents.place_name),
            category               = COALESCE(EXCLUDED.category, place_documents.category),
            latitude               = COALESCE(place_documents.latitude, EXCLUDED.latitude),
            longitude              = COALESCE(place_documents.longitude, EXCLUDED.longitude),
            image_ref              = COALESCE(place_documents.image_ref, EXCLUDED.image_ref),
            external_id            = COALESCE(place_documents.external_id, EXCLUDED.external_id),
            embedding              = COALESCE(EXCLUDED.embedding, place_documents.embedding),
            embedding_generated_at = COALESCE(EXCLUDED.embedding_generated_at, place_documents.embedding_generated_at)
        RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		doc.Title, doc.Body, types.NormalizeIdentity(doc.City), doc.PlaceName, string(doc.Category),
		doc.Latitude, doc.Longitude, doc.ImageRef, doc.ExternalID, doc.Source, embedding, generatedAt,
	).Scan(&id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upsert document")
		return uuid.Nil, fmt.Errorf("failed to upsert document %q: %w", doc.Title, err)
	}

	span.SetAttributes(attribute.String("document.id", id.String()))
	span.SetStatus(codes.Ok, "Document upserted")
	return id, nil
}

func (r *RepositoryImpl) DocumentsWithoutEmbeddings(ctx context.Context, limit int) ([]Document, error) {
	ctx, span := otel.Tracer("SemanticRepository").Start(ctx, "DocumentsWithoutEmbeddings", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	query := `SELECT ` + documentColumns + `
        FROM place_documents
        WHERE embedding IS NULL
        ORDER BY created_at
        LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query documents without embeddings: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	span.SetStatus(codes.Ok, "Documents retrieved")
	return docs, nil
}

func (r *RepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	ctx, span := otel.Tracer("SemanticRepository").Start(ctx, "UpdateEmbedding", trace.WithAttributes(
		attribute.String("document.id", id.String()),
	))
	defer span.End()

	tag, err := r.db.Exec(ctx,
		`UPDATE place_documents SET embedding = $2::vector, embedding_generated_at = NOW() WHERE id = $1`,
		id, vectorLiteral(embedding))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update embedding")
		return fmt.Errorf("failed to update embedding for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found", id)
	}

	span.SetStatus(codes.Ok, "Embedding updated")
	return nil
}
