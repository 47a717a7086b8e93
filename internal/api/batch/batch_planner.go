package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/city"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/geo"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// Planner groups pre-warm targets by geography so nearby cities share one provider session.
type Planner struct {
	logger *slog.Logger
	cities city.Repository
	cfg    config.BatchConfig
}

func NewPlanner(cities city.Repository, cfg config.BatchConfig, logger *slog.Logger) *Planner {
	return &Planner{logger: logger, cities: cities, cfg: cfg}
}

// shortest length of one degree of latitude
const kmPerDegreeLat = 110.5

// cityTargets is every target of one normalized city.
type cityTargets struct {
	name    string
	center  *types.GeoPoint
	targets []types.BatchTarget
}

func (p *Planner) Plan(ctx context.Context, req types.BatchPlanRequest) (*types.BatchPlan, error) {
	ctx, span := otel.Tracer("BatchPlanner").Start(ctx, "Plan", trace.WithAttributes(
		attribute.Int("targets", len(req.Targets)),
		attribute.Float64("radius_km", p.cfg.RadiusKm),
	))
	defer span.End()

	l := p.logger.With(slog.String("method", "Plan"))

	groups, err := group(req.Targets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid targets")
		return nil, err
	}
	p.locate(ctx, l, groups, req.Centers)

	clusters := cluster(groups, p.cfg.RadiusKm)

	plan := &types.BatchPlan{}
	for i, members := range clusters {
		b := p.batch(i, members)
		plan.Batches = append(plan.Batches, b)
		plan.TotalCalls += b.EstimatedCalls
		plan.EstimatedCostUSD += b.EstimatedCostUSD
		plan.EstimatedDuration += b.EstimatedDuration
	}

	l.InfoContext(ctx, "Batch plan ready",
		slog.Int("cities", len(groups)),
		slog.Int("batches", len(plan.Batches)),
		slog.Int("calls", plan.TotalCalls),
		slog.Float64("cost_usd", plan.EstimatedCostUSD))
	span.SetAttributes(attribute.Int("batches", len(plan.Batches)))
	span.SetStatus(codes.Ok, "Plan ready")
	return plan, nil
}

// group validates targets and collects them per normalized city, keeping first-seen order.
func group(targets []types.BatchTarget) ([]*cityTargets, error) {
	if len(targets) == 0 {
		return nil, &types.ValidationError{Field: "targets", Reason: "must not be empty"}
	}

	byCity := make(map[string]*cityTargets)
	var out []*cityTargets
	seen := make(map[string]struct{})
	for _, t := range targets {
		norm := types.NormalizeIdentity(t.City)
		if norm == "" {
			return nil, &types.ValidationError{Field: "targets.city", Reason: "must not be empty"}
		}
		category, err := types.ParseCategory(string(t.Category))
		if err != nil || category == "" {
			return nil, &types.ValidationError{Field: "targets.category", Reason: fmt.Sprintf("unknown category %q", t.Category)}
		}

		sig := types.CategorySignature(norm, category)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}

		g, ok := byCity[norm]
		if !ok {
			g = &cityTargets{name: strings.TrimSpace(t.City)}
			byCity[norm] = g
			out = append(out, g)
		}
		g.targets = append(g.targets, types.BatchTarget{City: g.name, Category: category})
	}
	return out, nil
}

// locate fills centers from the request first, then from the cities table.
// A failed lookup leaves the city unlocated.
func (p *Planner) locate(ctx context.Context, l *slog.Logger, groups []*cityTargets, explicit map[string]types.GeoPoint) {
	given := make(map[string]types.GeoPoint, len(explicit))
	for name, c := range explicit {
		given[types.NormalizeIdentity(name)] = c
	}

	for _, g := range groups {
		if c, ok := given[types.NormalizeIdentity(g.name)]; ok && c.Valid() {
			g.center = &c
			continue
		}
		if p.cities == nil {
			continue
		}
		c, err := p.cities.FindCityCenter(ctx, g.name)
		if err != nil {
			l.WarnContext(ctx, "City center lookup failed", slog.String("city", g.name), slog.Any("error", err))
			continue
		}
		if c == nil {
			l.DebugContext(ctx, "City has no known center", slog.String("city", g.name))
		}
		g.center = c
	}
}

// cluster seeds a batch with each unassigned located city and absorbs every unassigned
// city within radiusKm of the seed. Geohash neighbour cells prefilter the candidates,
// sized for the most poleward city; when no cell is wide enough every city is compared.
// Unlocated cities become singleton batches after the located ones.
func cluster(groups []*cityTargets, radiusKm float64) [][]*cityTargets {
	var located []int
	var unlocated []*cityTargets
	maxAbsLat := 0.0
	for i, g := range groups {
		if g.center == nil {
			unlocated = append(unlocated, g)
			continue
		}
		located = append(located, i)
		maxAbsLat = math.Max(maxAbsLat, math.Abs(g.center.Lat))
	}
	// a neighbour within the radius can sit up to radiusKm closer to the pole
	precision, bucketed := geo.PrecisionForRadius(radiusKm, maxAbsLat+radiusKm/kmPerDegreeLat)

	cells := make(map[string][]int)
	if bucketed {
		for _, i := range located {
			cell := geo.Bucket(*groups[i].center, precision)
			cells[cell] = append(cells[cell], i)
		}
	}
	candidates := func(seed types.GeoPoint) []int {
		if !bucketed {
			return located
		}
		var nearby []int
		for _, cell := range geo.NeighbourBuckets(geo.Bucket(seed, precision)) {
			nearby = append(nearby, cells[cell]...)
		}
		sort.Ints(nearby)
		return nearby
	}

	assigned := make([]bool, len(groups))
	var out [][]*cityTargets
	for _, i := range located {
		if assigned[i] {
			continue
		}
		seed := groups[i]
		assigned[i] = true
		members := []*cityTargets{seed}
		for _, j := range candidates(*seed.center) {
			if assigned[j] {
				continue
			}
			if geo.DistanceKm(*seed.center, *groups[j].center) <= radiusKm {
				assigned[j] = true
				members = append(members, groups[j])
			}
		}
		out = append(out, members)
	}

	for _, g := range unlocated {
		out = append(out, []*cityTargets{g})
	}
	return out
}

func (p *Planner) batch(index int, members []*cityTargets) types.Batch {
	b := types.Batch{Index: index}
	var centers []types.GeoPoint
	for _, m := range members {
		b.Cities = append(b.Cities, m.name)
		b.Targets = append(b.Targets, m.targets...)
		if m.center != nil {
			centers = append(centers, *m.center)
		}
	}
	if len(centers) > 0 {
		c := geo.Centroid(centers)
		b.Centroid = &c
	} else {
		b.Unlocated = true
	}

	b.EstimatedCalls = len(b.Targets)
	b.EstimatedCostUSD = float64(b.EstimatedCalls)*p.cfg.CostPerCallUSD + p.cfg.SessionOverheadUSD
	b.EstimatedDuration = p.cfg.SessionSetup + time.Duration(b.EstimatedCalls)*p.cfg.LatencyPerCall
	return b
}
