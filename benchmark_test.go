package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/geo"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/itinerary"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/place"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/resolver"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

func benchResolver(b *testing.B) (*resolver.ServiceImpl, *placeStore) {
	b.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.Noop()
	places := newPlaceStore()
	cache := &cacheStore{entries: map[string]types.CacheEntry{}}
	writer := resolver.NewWriter(places, cache, m, logger)
	svc := resolver.NewService(places, nil, cache, nil, writer, m, resolver.Options{
		StructuredThreshold: 0.8,
		SemanticThreshold:   0.65,
		FuzzyCandidates:     20,
		SynthesizeFallback:  true,
		CacheFreshFor:       time.Hour,
		ProviderTimeout:     time.Second,
	}, logger)
	return svc, places
}

func BenchmarkResolve_StructuredHit(b *testing.B) {
	svc, places := benchResolver(b)
	ctx := context.Background()
	_, _ = places.Upsert(ctx, types.Place{Name: "Torre Civica", City: "ExampleCity", Latitude: types.Coord(45.07), Longitude: types.Coord(7.68)})
	req := types.ResolutionRequest{Name: "Torre Civica", City: "ExampleCity"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Resolve(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolve_Synthesized(b *testing.B) {
	svc, _ := benchResolver(b)
	ctx := context.Background()
	req := types.ResolutionRequest{Name: "Nowhere", City: "ExampleCity"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Resolve(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBestMatch(b *testing.B) {
	candidates := make([]types.Place, 20)
	for i := range candidates {
		candidates[i] = types.Place{Name: fmt.Sprintf("Palazzo Numero %d", i), City: "Turin"}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		place.BestMatch("Palazzo Numero 7", candidates, 0.8)
	}
}

func BenchmarkPlan(b *testing.B) {
	for _, size := range []int{25, 100, 500} {
		b.Run(fmt.Sprintf("pool=%d", size), func(b *testing.B) {
			rng := rand.New(rand.NewSource(1))
			pool := make([]types.Place, size)
			for i := range pool {
				pool[i] = types.Place{
					Name:      fmt.Sprintf("poi-%d", i),
					City:      "Turin",
					Category:  types.CategoryAttraction,
					Latitude:  types.Coord(45 + rng.Float64()*0.1),
					Longitude: types.Coord(7.6 + rng.Float64()*0.1),
				}
			}
			in := itinerary.PlanInput{City: "Turin", Pool: pool, Start: types.GeoPoint{Lat: 45.05, Lng: 7.65}, MaxStops: 25}
			th := geo.Thresholds{WalkingMaxKm: 1, TransitMaxKm: 3}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				itinerary.Plan(in, th)
			}
		})
	}
}
