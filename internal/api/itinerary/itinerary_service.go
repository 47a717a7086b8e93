package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/geo"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/place"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/resolver"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

const (
	startName = "Start"
	endName   = "End"
)

type Service interface {
	Build(ctx context.Context, req types.ItineraryRequest) (*types.Itinerary, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger        *slog.Logger
	places        place.Repository
	resolver      resolver.Service
	metrics       *metrics.AppMetrics
	thresholds    geo.Thresholds
	maxStopsLimit int
}

func NewService(places place.Repository, res resolver.Service, m *metrics.AppMetrics, cfg config.ItineraryConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:        logger,
		places:        places,
		resolver:      res,
		metrics:       m,
		thresholds:    geo.Thresholds{WalkingMaxKm: cfg.WalkingMaxKm, TransitMaxKm: cfg.TransitMaxKm},
		maxStopsLimit: cfg.MaxStopsLimit,
	}
}

func (s *ServiceImpl) validate(req types.ItineraryRequest) error {
	if types.NormalizeIdentity(req.City) == "" {
		return &types.ValidationError{Field: "city", Reason: "must not be empty"}
	}
	if req.MaxStops < 1 || req.MaxStops > s.maxStopsLimit {
		return &types.ValidationError{Field: "max_stops", Reason: fmt.Sprintf("must be between 1 and %d", s.maxStopsLimit)}
	}
	if req.Start.IsZero() {
		return &types.ValidationError{Field: "start", Reason: "needs coordinates or a place name"}
	}
	if req.End != nil && req.End.IsZero() {
		return &types.ValidationError{Field: "end", Reason: "needs coordinates or a place name"}
	}
	return nil
}

// Build resolves the anchors, gathers a candidate pool for the city and plans the route.
func (s *ServiceImpl) Build(ctx context.Context, req types.ItineraryRequest) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Build", trace.WithAttributes(
		attribute.String("city", req.City),
		attribute.Int("max_stops", req.MaxStops),
		attribute.StringSlice("interests", req.Interests),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Build"), slog.String("city", req.City))

	if err := s.validate(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		return nil, err
	}
	categories, err := CategoriesFor(req.Interests)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid interests")
		return nil, err
	}
	city := strings.TrimSpace(req.City)

	start, err := s.anchor(ctx, city, req.Start, startName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Start anchor")
		return nil, fmt.Errorf("start anchor: %w", err)
	}
	var end *types.Place
	if req.End != nil {
		p, err := s.anchor(ctx, city, *req.End, endName)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "End anchor")
			return nil, fmt.Errorf("end anchor: %w", err)
		}
		end = &p
	}

	pool := s.pool(ctx, l, city, categories, req.MaxStops)

	it := Plan(PlanInput{
		City:       city,
		Pool:       pool,
		Start:      start.Point(),
		StartPlace: start,
		End:        end,
		Categories: categories,
		MaxStops:   req.MaxStops,
	}, s.thresholds)

	s.metrics.Itinerary(ctx, it.InsufficientData)
	l.InfoContext(ctx, "Itinerary built",
		slog.Int("pool", len(pool)),
		slog.Int("stops", len(it.ActivityStops())),
		slog.Float64("total_km", it.TotalDistanceKm),
		slog.Bool("insufficient_data", it.InsufficientData))
	span.SetAttributes(attribute.Int("stops", len(it.Stops)), attribute.Bool("insufficient_data", it.InsufficientData))
	span.SetStatus(codes.Ok, "Itinerary built")
	return &it, nil
}

// anchor turns coordinates into a synthetic place and names into a resolved routable place.
func (s *ServiceImpl) anchor(ctx context.Context, city string, a types.Anchor, label string) (types.Place, error) {
	if a.HasCoordinates() {
		g := types.GeoPoint{Lat: *a.Lat, Lng: *a.Lng}
		if !g.Valid() {
			return types.Place{}, &types.ValidationError{Field: strings.ToLower(label), Reason: "coordinates out of range"}
		}
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = label
		}
		return types.Place{
			Name:       name,
			City:       city,
			Category:   types.CategoryOther,
			Latitude:   types.Coord(g.Lat),
			Longitude:  types.Coord(g.Lng),
			Provenance: types.ProvenanceSynthesized,
		}, nil
	}

	p, err := s.resolver.Resolve(ctx, types.ResolutionRequest{Name: a.Name, City: city})
	if err != nil {
		return types.Place{}, err
	}
	if !p.Routable() {
		return types.Place{}, fmt.Errorf("%q: %w", a.Name, types.ErrAnchorNotRoutable)
	}
	return *p, nil
}

// pool lists the city from the place store and tops it up from the semantic index when
// fewer than maxStops places qualify. Lookup failures shrink the pool, never fail the build.
func (s *ServiceImpl) pool(ctx context.Context, l *slog.Logger, city string, categories []types.Category, maxStops int) []types.Place {
	pool, err := s.places.ListByCity(ctx, city)
	if err != nil {
		l.WarnContext(ctx, "Listing city places failed", slog.Any("error", err))
		pool = nil
	}

	if len(eligible(pool, categories, nil)) >= maxStops {
		return pool
	}

	extra, err := s.resolver.SemanticCandidates(ctx, city, categories, maxStops*2)
	if err != nil {
		l.WarnContext(ctx, "Semantic supplement failed", slog.Any("error", err))
	}
	l.DebugContext(ctx, "Pool supplemented", slog.Int("stored", len(pool)), slog.Int("semantic", len(extra)))
	return append(pool, extra...)
}
