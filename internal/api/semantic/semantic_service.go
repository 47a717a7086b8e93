package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// Index answers free-text queries with scored matches, best first.
type Index interface {
	Query(ctx context.Context, text string, topK int) ([]Match, error)
}

var _ Index = (*IndexImpl)(nil)

type IndexImpl struct {
	logger   *slog.Logger
	repo     Repository
	embedder Embedder
}

// NewIndex wires the corpus to an embedder. A nil embedder makes every query a miss.
func NewIndex(repo Repository, embedder Embedder, logger *slog.Logger) *IndexImpl {
	return &IndexImpl{logger: logger, repo: repo, embedder: embedder}
}

func (s *IndexImpl) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	ctx, span := otel.Tracer("SemanticIndex").Start(ctx, "Query", trace.WithAttributes(
		attribute.String("query.text", text),
		attribute.Int("query.top_k", topK),
	))
	defer span.End()

	if s.embedder == nil || topK <= 0 {
		span.SetStatus(codes.Ok, "Semantic index disabled")
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Embedding failed")
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.repo.Search(ctx, embedding, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("results.count", len(matches)))
	span.SetStatus(codes.Ok, "Query complete")
	return matches, nil
}

// IndexPlace adds or refreshes the corpus row for a stored place.
func (s *IndexImpl) IndexPlace(ctx context.Context, p types.Place) error {
	doc := DocumentFromPlace(p)
	if s.embedder != nil {
		embedding, err := s.embedder.Embed(ctx, doc.EmbeddingText())
		if err != nil {
			return fmt.Errorf("failed to embed place %s: %w", p.Key(), err)
		}
		doc.Embedding = embedding
	}
	if _, err := s.repo.UpsertDocument(ctx, doc); err != nil {
		return err
	}
	return nil
}

// Backfill embeds up to limit documents that have no vector yet, with at most
// workers concurrent embedding calls. It returns how many were updated.
func (s *IndexImpl) Backfill(ctx context.Context, limit, workers int) (int, error) {
	l := s.logger.With(slog.String("method", "Backfill"))
	if s.embedder == nil {
		return 0, fmt.Errorf("backfill requires an embedder")
	}

	docs, err := s.repo.DocumentsWithoutEmbeddings(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		l.InfoContext(ctx, "No documents need embeddings")
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	updated := make([]bool, len(docs))
	for i, d := range docs {
		g.Go(func() error {
			embedding, err := s.embedder.Embed(gctx, d.EmbeddingText())
			if err != nil {
				l.WarnContext(gctx, "Failed to embed document", slog.String("id", d.ID.String()), slog.Any("error", err))
				return nil
			}
			if err := s.repo.UpdateEmbedding(gctx, d.ID, embedding); err != nil {
				return err
			}
			updated[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for _, ok := range updated {
		if ok {
			n++
		}
	}
	l.InfoContext(ctx, "Backfill complete", slog.Int("updated", n), slog.Int("scanned", len(docs)))
	return n, nil
}
