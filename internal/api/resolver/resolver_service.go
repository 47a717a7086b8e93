package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/cache"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/place"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/provider"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/semantic"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

const (
	exactConfidence       = 1.0
	synthesizedConfidence = 0.1
)

// Service answers "what do we know about place X in city Y", cheapest tier first.
type Service interface {
	Resolve(ctx context.Context, req types.ResolutionRequest) (*types.Place, error)
	// SemanticCandidates returns routable places of the given categories found by meaning.
	SemanticCandidates(ctx context.Context, city string, categories []types.Category, limit int) ([]types.Place, error)
}

// Options are the tuned thresholds and timeouts of the chain.
type Options struct {
	StructuredThreshold float64
	SemanticThreshold   float64
	SemanticTopK        int
	FuzzyCandidates     int
	SynthesizeFallback  bool
	CacheFreshFor       time.Duration
	ProviderTimeout     time.Duration
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		StructuredThreshold: cfg.Resolution.StructuredThreshold,
		SemanticThreshold:   cfg.Resolution.SemanticThreshold,
		SemanticTopK:        cfg.Resolution.SemanticTopK,
		FuzzyCandidates:     cfg.Resolution.FuzzyCandidates,
		SynthesizeFallback:  cfg.Resolution.SynthesizeFallback,
		CacheFreshFor:       cfg.Cache.FreshFor,
		ProviderTimeout:     cfg.Provider.Timeout,
	}
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger   *slog.Logger
	places   place.Repository
	index    semantic.Index
	cache    cache.Cache
	provider provider.Provider
	writer   *Writer
	metrics  *metrics.AppMetrics
	opts     Options
	attempts atomic.Uint64
	now      func() time.Time
}

// NewService wires the tiers. A nil provider disables the paid tier.
func NewService(
	places place.Repository,
	index semantic.Index,
	c cache.Cache,
	p provider.Provider,
	writer *Writer,
	m *metrics.AppMetrics,
	opts Options,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		places:   places,
		index:    index,
		cache:    c,
		provider: p,
		writer:   writer,
		metrics:  m,
		opts:     opts,
		now:      time.Now,
	}
}

func validate(req types.ResolutionRequest) (types.PlaceKey, types.Category, error) {
	key := types.NewPlaceKey(req.Name, req.City)
	if key.Name == "" {
		return key, "", &types.ValidationError{Field: "place_name", Reason: "must not be empty"}
	}
	if key.City == "" {
		return key, "", &types.ValidationError{Field: "city", Reason: "must not be empty"}
	}
	hint, err := types.ParseCategory(req.CategoryHint)
	if err != nil {
		return key, "", &types.ValidationError{Field: "category_hint", Reason: err.Error()}
	}
	return key, hint, nil
}

func (s *ServiceImpl) Resolve(ctx context.Context, req types.ResolutionRequest) (*types.Place, error) {
	req.Attempt = s.attempts.Add(1)
	started := time.Now()

	ctx, span := otel.Tracer("ResolverService").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("place.name", req.Name),
		attribute.String("place.city", req.City),
		attribute.Bool("refresh", req.Refresh),
		attribute.Int64("attempt", int64(req.Attempt)),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "Resolve"),
		slog.Uint64("attempt", req.Attempt),
		slog.String("name", req.Name),
		slog.String("city", req.City),
	)

	key, hint, err := validate(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		s.metrics.Resolution(ctx, "invalid", started)
		return nil, err
	}

	done := func(p *types.Place) (*types.Place, error) {
		span.SetAttributes(attribute.String("provenance", string(p.Provenance)))
		span.SetStatus(codes.Ok, "Resolved")
		s.metrics.TierHit(ctx, string(p.Provenance))
		s.metrics.Resolution(ctx, "resolved", started)
		l.InfoContext(ctx, "Place resolved",
			slog.String("provenance", string(p.Provenance)),
			slog.Float64("confidence", p.Confidence),
			slog.Duration("latency", time.Since(started)))
		return p, nil
	}

	if p := s.structured(ctx, l, key); p != nil {
		return done(p)
	}

	if p := s.semantic(ctx, l, req); p != nil {
		return done(p)
	}

	signature := types.PlaceSignature(req.City, req.Name)
	cached, stale := s.cached(ctx, l, signature, req.Refresh)
	if cached != nil {
		return done(cached)
	}

	if p := s.paid(ctx, l, req, hint, signature); p != nil {
		return done(p)
	}

	if stale != nil {
		l.InfoContext(ctx, "Provider missed on refresh, serving stale cache entry")
		return done(stale)
	}

	if !s.opts.SynthesizeFallback {
		span.SetStatus(codes.Ok, "Not found")
		s.metrics.Resolution(ctx, "not_found", started)
		l.InfoContext(ctx, "Place not found in any tier")
		return nil, types.ErrPlaceNotFound
	}
	return done(synthesize(req, hint))
}

func (s *ServiceImpl) structured(ctx context.Context, l *slog.Logger, key types.PlaceKey) *types.Place {
	p, err := s.places.FindByIdentity(ctx, key)
	if err != nil {
		l.WarnContext(ctx, "Structured lookup failed", slog.Any("error", err))
		return nil
	}
	if p != nil {
		p.Provenance = types.ProvenanceStructured
		p.Confidence = exactConfidence
		return p
	}

	if s.opts.FuzzyCandidates <= 0 {
		return nil
	}
	candidates, err := s.places.FindCandidates(ctx, key, s.opts.FuzzyCandidates)
	if err != nil {
		l.WarnContext(ctx, "Fuzzy lookup failed", slog.Any("error", err))
		return nil
	}
	m, ok := place.BestMatch(key.Name, candidates, s.opts.StructuredThreshold)
	if !ok {
		return nil
	}
	l.DebugContext(ctx, "Fuzzy structured match",
		slog.String("matched", m.Place.Name), slog.Float64("score", m.Score))
	best := m.Place
	best.Provenance = types.ProvenanceStructured
	best.Confidence = m.Score
	return &best
}

func (s *ServiceImpl) semantic(ctx context.Context, l *slog.Logger, req types.ResolutionRequest) *types.Place {
	if s.index == nil {
		return nil
	}
	matches, err := s.index.Query(ctx, strings.TrimSpace(req.Name)+" "+strings.TrimSpace(req.City), s.opts.SemanticTopK)
	if err != nil {
		l.WarnContext(ctx, "Semantic lookup failed", slog.Any("error", err))
		return nil
	}
	for _, m := range matches {
		if m.Score < s.opts.SemanticThreshold || !m.InCity(req.City) {
			continue
		}
		p := m.Place(strings.TrimSpace(req.City))
		if p.Name == "" {
			p.Name = strings.TrimSpace(req.Name)
		}
		return &p
	}
	return nil
}

// cached returns a servable entry, or the stale one that Refresh skipped.
func (s *ServiceImpl) cached(ctx context.Context, l *slog.Logger, signature string, refresh bool) (hit, stale *types.Place) {
	entry, err := s.cache.Get(ctx, signature)
	if err != nil {
		l.WarnContext(ctx, "Cache lookup failed", slog.Any("error", err))
		return nil, nil
	}
	if entry == nil {
		return nil, nil
	}
	first, ok := entry.First()
	if !ok {
		return nil, nil
	}
	first.Provenance = types.ProvenanceCache
	if refresh && !entry.IsFresh(s.opts.CacheFreshFor, s.now()) {
		return nil, &first
	}
	return &first, nil
}

func (s *ServiceImpl) paid(ctx context.Context, l *slog.Logger, req types.ResolutionRequest, hint types.Category, signature string) *types.Place {
	if s.provider == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	started := time.Now()
	raw, err := s.provider.Search(callCtx, strings.TrimSpace(req.Name), strings.TrimSpace(req.City))
	outcome := "ok"
	switch {
	case errors.Is(err, types.ErrProviderEmpty), err == nil && raw == nil:
		outcome = "empty"
	case errors.Is(err, types.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}

	l.InfoContext(ctx, "Provider call",
		slog.String("cost_marker", "paid_provider_call"),
		slog.String("provider", s.provider.Name()),
		slog.String("outcome", outcome),
		slog.Duration("latency", time.Since(started)),
		slog.Any("error", err))
	s.metrics.ProviderCall(ctx, s.provider.Name(), outcome)

	if outcome != "ok" {
		return nil
	}

	p := raw.Place(strings.TrimSpace(req.City), hint)
	p.Name = strings.TrimSpace(req.Name)
	res := s.writer.WriteBack(ctx, signature, []types.Place{p})
	return &res.Served[0]
}

func synthesize(req types.ResolutionRequest, hint types.Category) *types.Place {
	category := hint
	if category == "" {
		category = types.CategoryOther
	}
	name, city := strings.TrimSpace(req.Name), strings.TrimSpace(req.City)
	return &types.Place{
		Name:        name,
		City:        city,
		Category:    category,
		Description: fmt.Sprintf("%s is a point of interest in %s.", name, city),
		Provenance:  types.ProvenanceSynthesized,
		Confidence:  synthesizedConfidence,
	}
}

func (s *ServiceImpl) SemanticCandidates(ctx context.Context, city string, categories []types.Category, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("ResolverService").Start(ctx, "SemanticCandidates", trace.WithAttributes(
		attribute.String("city", city),
		attribute.Int("categories", len(categories)),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if s.index == nil || limit <= 0 {
		return nil, nil
	}

	queries := make(map[string]types.Category, len(categories))
	order := make([]string, 0, len(categories))
	for _, c := range categories {
		q := string(c) + " " + strings.TrimSpace(city)
		if _, dup := queries[q]; !dup {
			queries[q] = c
			order = append(order, q)
		}
	}
	if len(order) == 0 {
		q := "points of interest in " + strings.TrimSpace(city)
		queries[q] = ""
		order = append(order, q)
	}

	seen := make(map[types.PlaceKey]struct{})
	var out []types.Place
	for _, q := range order {
		matches, err := s.index.Query(ctx, q, limit)
		if err != nil {
			span.RecordError(err)
			return out, fmt.Errorf("semantic candidates for %q: %w", q, err)
		}
		for _, m := range matches {
			if m.Score < s.opts.SemanticThreshold || !m.InCity(city) {
				continue
			}
			p := m.Place(strings.TrimSpace(city))
			if p.Name == "" || !p.Routable() {
				continue
			}
			if p.Category == "" {
				p.Category = queries[q]
			}
			if _, dup := seen[p.Key()]; dup {
				continue
			}
			seen[p.Key()] = struct{}{}
			out = append(out, p)
			if len(out) == limit {
				span.SetStatus(codes.Ok, "Limit reached")
				return out, nil
			}
		}
	}

	span.SetAttributes(attribute.Int("candidates", len(out)))
	span.SetStatus(codes.Ok, "Candidates found")
	return out, nil
}
