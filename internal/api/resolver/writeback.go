package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/cache"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/place"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

const (
	storePlaces = "place_store"
	storeCache  = "generic_cache"
)

// Writer persists paid results so the same lookup is never paid for twice.
// Failures are logged and counted, never returned.
type Writer struct {
	logger  *slog.Logger
	places  place.Repository
	cache   cache.Cache
	metrics *metrics.AppMetrics
	now     func() time.Time
}

func NewWriter(places place.Repository, c cache.Cache, m *metrics.AppMetrics, logger *slog.Logger) *Writer {
	return &Writer{logger: logger, places: places, cache: c, metrics: m, now: time.Now}
}

// WriteBack merges each place into the store, then caches the merged list under signature.
// A place whose upsert fails is cached as given and not counted as persisted.
func (w *Writer) WriteBack(ctx context.Context, signature string, places []types.Place) types.WriteBackResult {
	l := w.logger.With(slog.String("method", "WriteBack"), slog.String("signature", signature))

	failures, persisted := 0, 0
	served := make([]types.Place, 0, len(places))
	for _, p := range places {
		stored, err := w.places.Upsert(ctx, p)
		if err != nil || stored == nil {
			failures++
			w.fail(ctx, l, &types.PersistenceError{Store: storePlaces, Key: p.Key().String(), Err: err})
			served = append(served, p)
			continue
		}
		persisted++
		merged := *stored
		merged.Provenance = p.Provenance
		merged.Confidence = p.Confidence
		served = append(served, merged)
	}

	if len(served) > 0 {
		entry := types.CacheEntry{Key: signature, Places: served, FetchedAt: w.now()}
		if err := w.cache.Put(ctx, entry); err != nil {
			failures++
			w.fail(ctx, l, &types.PersistenceError{Store: storeCache, Key: signature, Err: err})
		}
	}

	if failures == 0 {
		l.DebugContext(ctx, "Write-back complete", slog.Int("places", len(served)))
	}
	return types.WriteBackResult{Served: served, Persisted: persisted, Failures: failures}
}

func (w *Writer) fail(ctx context.Context, l *slog.Logger, perr *types.PersistenceError) {
	l.WarnContext(ctx, "Write-back failed", slog.String("store", perr.Store), slog.String("key", perr.Key), slog.Any("error", perr))
	w.metrics.WriteBackFailure(ctx, perr.Store)
}
