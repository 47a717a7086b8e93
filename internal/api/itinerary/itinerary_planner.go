package itinerary

import (
	"fmt"
	"sort"

	"github.com/FACorreiaa/go-poi-resolver/internal/api/geo"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// distances closer than this are treated as ties
const tieEpsilonKm = 1e-9

var interestCategories = map[string][]types.Category{
	"culture":     {types.CategoryMuseum, types.CategoryMonument, types.CategoryChurch},
	"food":        {types.CategoryRestaurant, types.CategoryCafe},
	"nature":      {types.CategoryPark, types.CategoryViewpoint},
	"sightseeing": {types.CategoryAttraction, types.CategoryMonument, types.CategoryViewpoint},
	"nightlife":   {types.CategoryNightlife},
	"shopping":    {types.CategoryShopping},
	"lodging":     {types.CategoryLodging},
}

// CategoriesFor maps user interests onto place categories. An interest that names a
// category maps to itself. No interests yields nil, meaning every category.
func CategoriesFor(interests []string) ([]types.Category, error) {
	seen := make(map[types.Category]struct{})
	var out []types.Category
	add := func(c types.Category) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	for _, raw := range interests {
		interest := types.NormalizeIdentity(raw)
		if interest == "" {
			continue
		}
		if cats, ok := interestCategories[interest]; ok {
			for _, c := range cats {
				add(c)
			}
			continue
		}
		c, err := types.ParseCategory(interest)
		if err != nil {
			return nil, &types.ValidationError{Field: "interests", Reason: fmt.Sprintf("unknown interest %q", raw)}
		}
		add(c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// PlanInput is a fully materialized planning problem.
type PlanInput struct {
	City  string
	Pool  []types.Place
	Start types.GeoPoint
	// StartPlace is emitted as the only stop when nothing in the pool qualifies.
	StartPlace types.Place
	// End, when set, is pinned as the last activity stop.
	End        *types.Place
	Categories []types.Category
	MaxStops   int
}

// Plan orders the pool into a route by greedy nearest neighbour from the start point.
// It never reorders chosen stops and never visits a place twice.
func Plan(in PlanInput, th geo.Thresholds) types.Itinerary {
	pool := eligible(in.Pool, in.Categories, in.End)

	it := types.Itinerary{City: in.City}
	if len(pool) == 0 {
		start := in.StartPlace
		it.Stops = []types.ItineraryStop{{Ordinal: 1, Kind: types.StopActivity, Place: &start}}
		it.InsufficientData = true
		return it
	}

	slots := in.MaxStops
	if in.End != nil {
		slots--
	}

	var route []types.Place
	cur := in.Start
	for len(route) < slots && len(pool) > 0 {
		i := nearest(cur, pool)
		route = append(route, pool[i])
		cur = pool[i].Point()
		pool = append(pool[:i:i], pool[i+1:]...)
	}
	if in.End != nil {
		route = append(route, *in.End)
	}

	it.Stops, it.TotalDistanceKm = stops(in.Start, route, th)
	it.InsufficientData = len(route) < in.MaxStops
	return it
}

// eligible keeps routable places of the wanted categories, first occurrence per identity,
// minus the end anchor.
func eligible(pool []types.Place, categories []types.Category, end *types.Place) []types.Place {
	wanted := make(map[types.Category]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	seen := make(map[types.PlaceKey]struct{}, len(pool))
	if end != nil {
		seen[end.Key()] = struct{}{}
	}

	out := make([]types.Place, 0, len(pool))
	for _, p := range pool {
		if !p.Routable() {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[p.Category]; !ok {
				continue
			}
		}
		if _, dup := seen[p.Key()]; dup {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// nearest returns the index of the closest place; ties go to higher confidence, then to
// the earlier position.
func nearest(from types.GeoPoint, pool []types.Place) int {
	best, bestKm := 0, geo.DistanceKm(from, pool[0].Point())
	for i := 1; i < len(pool); i++ {
		d := geo.DistanceKm(from, pool[i].Point())
		switch {
		case d < bestKm-tieEpsilonKm:
			best, bestKm = i, d
		case d <= bestKm+tieEpsilonKm && pool[i].Confidence > pool[best].Confidence:
			best, bestKm = i, d
		}
	}
	return best
}

func stops(start types.GeoPoint, route []types.Place, th geo.Thresholds) ([]types.ItineraryStop, float64) {
	out := make([]types.ItineraryStop, 0, 2*len(route)-1)
	ordinal := 0
	next := func(s types.ItineraryStop) {
		ordinal++
		s.Ordinal = ordinal
		out = append(out, s)
	}

	total := 0.0
	prev := start
	for i := range route {
		p := route[i]
		leg := geo.DistanceKm(prev, p.Point())
		total += leg
		if i > 0 {
			next(types.ItineraryStop{
				Kind:          types.StopTransit,
				TransportMode: th.ModeFor(leg),
				DistanceKm:    leg,
				CumulativeKm:  total,
			})
		}
		next(types.ItineraryStop{
			Kind:         types.StopActivity,
			Place:        &p,
			DistanceKm:   leg,
			CumulativeKm: total,
		})
		prev = p.Point()
	}
	return out, total
}
