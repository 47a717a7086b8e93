package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/provider"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// WriteBacker persists paid results; satisfied by resolver.Writer.
type WriteBacker interface {
	WriteBack(ctx context.Context, signature string, places []types.Place) types.WriteBackResult
}

// PlaceIndexer adds stored places to the semantic corpus.
type PlaceIndexer interface {
	IndexPlace(ctx context.Context, p types.Place) error
}

// Runner executes a batch plan against the provider.
type Runner struct {
	logger          *slog.Logger
	searcher        provider.CategorySearcher
	writer          WriteBacker
	indexer         PlaceIndexer
	metrics         *metrics.AppMetrics
	maxConcurrency  int
	placesPerTarget int
}

// NewRunner builds a runner. indexer may be nil.
func NewRunner(searcher provider.CategorySearcher, writer WriteBacker, indexer PlaceIndexer, m *metrics.AppMetrics, cfg config.BatchConfig, logger *slog.Logger) *Runner {
	return &Runner{
		logger:          logger,
		searcher:        searcher,
		writer:          writer,
		indexer:         indexer,
		metrics:         m,
		maxConcurrency:  cfg.MaxConcurrency,
		placesPerTarget: cfg.PlacesPerTarget,
	}
}

// Run executes batches concurrently and the targets of one batch in sequence.
// Target failures are reported, not returned; only cancellation fails the run.
func (r *Runner) Run(ctx context.Context, plan *types.BatchPlan) (*types.BatchReport, error) {
	ctx, span := otel.Tracer("BatchRunner").Start(ctx, "Run", trace.WithAttributes(
		attribute.Int("batches", len(plan.Batches)),
		attribute.Int("calls", plan.TotalCalls),
	))
	defer span.End()

	started := time.Now()
	report := &types.BatchReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	for _, b := range plan.Batches {
		g.Go(func() error {
			res := r.runBatch(gctx, b)
			mu.Lock()
			report.BatchesRun++
			report.ProviderCalls += res.ProviderCalls
			report.PlacesWritten += res.PlacesWritten
			report.PersistErrors += res.PersistErrors
			report.FailedTargets = append(report.FailedTargets, res.FailedTargets...)
			mu.Unlock()
			return gctx.Err()
		})
	}
	err := g.Wait()
	report.DurationMillis = time.Since(started).Milliseconds()

	r.logger.InfoContext(ctx, "Batch run finished",
		slog.Int("batches", report.BatchesRun),
		slog.Int("provider_calls", report.ProviderCalls),
		slog.String("cost_marker", "paid_provider_call"),
		slog.Int("places_written", report.PlacesWritten),
		slog.Int("failed_targets", len(report.FailedTargets)),
		slog.Int("persist_errors", report.PersistErrors))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Run interrupted")
		return report, err
	}
	span.SetStatus(codes.Ok, "Run finished")
	return report, nil
}

func (r *Runner) runBatch(ctx context.Context, b types.Batch) types.BatchReport {
	l := r.logger.With(slog.String("method", "runBatch"), slog.Int("batch", b.Index))
	var res types.BatchReport

	for _, t := range b.Targets {
		label := t.City + "/" + string(t.Category)
		if ctx.Err() != nil {
			res.FailedTargets = append(res.FailedTargets, label)
			r.metrics.BatchTarget(ctx, "cancelled")
			continue
		}

		res.ProviderCalls++
		raws, err := r.searcher.SearchCategory(ctx, t.Category, t.City, r.placesPerTarget)
		switch {
		case errors.Is(err, types.ErrProviderEmpty):
			r.metrics.BatchTarget(ctx, "empty")
			continue
		case err != nil:
			l.WarnContext(ctx, "Category search failed", slog.String("target", label), slog.Any("error", err))
			res.FailedTargets = append(res.FailedTargets, label)
			r.metrics.BatchTarget(ctx, "failed")
			continue
		case len(raws) == 0:
			r.metrics.BatchTarget(ctx, "empty")
			continue
		}

		places := make([]types.Place, 0, len(raws))
		for _, raw := range raws {
			p := raw.Place(t.City, t.Category)
			if types.NormalizeIdentity(p.Name) == "" {
				continue
			}
			places = append(places, p)
		}

		written := r.writer.WriteBack(ctx, types.CategorySignature(t.City, t.Category), places)
		res.PlacesWritten += written.Persisted
		res.PersistErrors += written.Failures
		r.index(ctx, l, written.Served)
		r.metrics.BatchTarget(ctx, "ok")
	}
	return res
}

func (r *Runner) index(ctx context.Context, l *slog.Logger, places []types.Place) {
	if r.indexer == nil {
		return
	}
	for _, p := range places {
		if err := r.indexer.IndexPlace(ctx, p); err != nil {
			l.WarnContext(ctx, "Indexing place failed", slog.String("place", p.Key().String()), slog.Any("error", err))
		}
	}
}
