package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	appMiddleware "github.com/FACorreiaa/go-poi-resolver/app/middleware"
	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/batch"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/city"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/itinerary"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/provider"
	"github.com/FACorreiaa/go-poi-resolver/internal/api/resolver"
	"github.com/FACorreiaa/go-poi-resolver/internal/router"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// placeStore is an in-memory place store applying the same fill-empty merge as Postgres.
type placeStore struct {
	mu   sync.Mutex
	rows map[types.PlaceKey]types.Place
	keys []types.PlaceKey
}

func newPlaceStore() *placeStore {
	return &placeStore{rows: map[types.PlaceKey]types.Place{}}
}

func (s *placeStore) FindByIdentity(_ context.Context, key types.PlaceKey) (*types.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rows[key]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *placeStore) FindCandidates(context.Context, types.PlaceKey, int) ([]types.Place, error) {
	return nil, nil
}

func (s *placeStore) ListByCity(_ context.Context, cityName string) ([]types.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Place
	for _, k := range s.keys {
		if k.City == types.NormalizeIdentity(cityName) {
			p := s.rows[k]
			p.Confidence = 1
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *placeStore) Upsert(_ context.Context, p types.Place) (*types.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.Key()
	existing, ok := s.rows[key]
	if !ok {
		p.ID = uuid.New()
		s.rows[key] = p
		s.keys = append(s.keys, key)
		return &p, nil
	}
	existing.MergeMissing(p)
	s.rows[key] = existing
	return &existing, nil
}

type cacheStore struct {
	mu      sync.Mutex
	entries map[string]types.CacheEntry
}

func (c *cacheStore) Get(_ context.Context, key string) (*types.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return &e, nil
	}
	return nil, nil
}

func (c *cacheStore) Put(_ context.Context, e types.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Key] = e
	return nil
}

// stubProvider answers from a fixed table and counts every paid call.
type stubProvider struct {
	places map[string]provider.RawPlace
	calls  atomic.Int32
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(_ context.Context, query, _ string) (*provider.RawPlace, error) {
	p.calls.Add(1)
	raw, ok := p.places[types.NormalizeIdentity(query)]
	if !ok {
		return nil, types.ErrProviderEmpty
	}
	return &raw, nil
}

func (p *stubProvider) SearchCategory(_ context.Context, category types.Category, cityName string, limit int) ([]provider.RawPlace, error) {
	p.calls.Add(1)
	return []provider.RawPlace{{Name: cityName + " " + string(category), Latitude: types.Coord(45), Longitude: types.Coord(7.6)}}, nil
}

type cityCenters map[string]types.GeoPoint

func (c cityCenters) SaveCity(context.Context, types.City) (uuid.UUID, error) { return uuid.New(), nil }

func (c cityCenters) FindCityCenter(_ context.Context, name string) (*types.GeoPoint, error) {
	if g, ok := c[types.NormalizeIdentity(name)]; ok {
		return &g, nil
	}
	return nil, nil
}

func (c cityCenters) GetAllCities(context.Context) ([]types.City, error) {
	var out []types.City
	for name, g := range c {
		out = append(out, types.City{Name: name, Center: g})
	}
	return out, nil
}

var _ city.Repository = cityCenters(nil)

// E2ETestSuite drives the full HTTP stack over in-memory stores.
type E2ETestSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *http.Client
	places   *placeStore
	provider *stubProvider
	secret   []byte
}

func (s *E2ETestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.Noop()
	s.secret = []byte("e2e-secret")
	s.places = newPlaceStore()
	s.provider = &stubProvider{places: map[string]provider.RawPlace{
		"torre civica": {ExternalID: "stub-1", Name: "Torre Civica", Category: types.CategoryMonument,
			Latitude: types.Coord(45.07), Longitude: types.Coord(7.68)},
	}}
	cache := &cacheStore{entries: map[string]types.CacheEntry{}}

	batchCfg := config.BatchConfig{RadiusKm: 60, CostPerCallUSD: 0.03, MaxConcurrency: 2, PlacesPerTarget: 5}
	writer := resolver.NewWriter(s.places, cache, m, logger)
	res := resolver.NewService(s.places, nil, cache, s.provider, writer, m, resolver.Options{
		StructuredThreshold: 0.8,
		SemanticThreshold:   0.65,
		SemanticTopK:        5,
		FuzzyCandidates:     20,
		SynthesizeFallback:  true,
		CacheFreshFor:       time.Hour,
		ProviderTimeout:     time.Second,
	}, logger)
	itin := itinerary.NewService(s.places, res, m, config.ItineraryConfig{WalkingMaxKm: 1, TransitMaxKm: 3, MaxStopsLimit: 25}, logger)
	centers := cityCenters{"turin": {Lat: 45.07, Lng: 7.69}, "asti": {Lat: 44.90, Lng: 8.21}}
	planner := batch.NewPlanner(centers, batchCfg, logger)
	runner := batch.NewRunner(s.provider, writer, nil, m, batchCfg, logger)

	handler := newHTTPHandler(&router.Config{
		ResolverHandler:  resolver.NewHandler(res, logger),
		ItineraryHandler: itinerary.NewHandler(itin, logger),
		CityHandler:      city.NewCityHandler(centers, logger),
		BatchHandler:     batch.NewHandler(planner, runner, logger),
		AdminMiddleware:  appMiddleware.RequireAdmin(s.secret),
	}, logger, 5*time.Second)

	s.server = httptest.NewServer(handler)
	s.client = s.server.Client()
}

func (s *E2ETestSuite) TearDownTest() {
	s.server.Close()
}

func (s *E2ETestSuite) get(path string) (int, []byte) {
	resp, err := s.client.Get(s.server.URL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, body
}

func (s *E2ETestSuite) post(path, body, token string) (int, []byte) {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewBufferString(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, out
}

func (s *E2ETestSuite) token(role string) string {
	claims := appMiddleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	s.Require().NoError(err)
	return signed
}

func (s *E2ETestSuite) TestPing() {
	status, body := s.get("/ping")
	s.Equal(http.StatusOK, status)
	s.Equal("pong", string(body))
}

func (s *E2ETestSuite) TestResolveAmortizesProviderCost() {
	status, body := s.get("/api/v1/places/resolve?name=Torre+Civica&city=ExampleCity")
	s.Require().Equal(http.StatusOK, status)
	var first types.Place
	s.Require().NoError(json.Unmarshal(body, &first))
	s.Equal(types.ProvenanceProvider, first.Provenance)
	s.Require().NotNil(first.Latitude)
	s.InDelta(45.07, *first.Latitude, 1e-9)

	stored, _ := s.places.FindByIdentity(context.Background(), types.PlaceKey{Name: "torre civica", City: "examplecity"})
	s.Require().NotNil(stored)

	status, body = s.get("/api/v1/places/resolve?name=Torre+Civica&city=ExampleCity")
	s.Require().Equal(http.StatusOK, status)
	var second types.Place
	s.Require().NoError(json.Unmarshal(body, &second))
	s.Equal(types.ProvenanceStructured, second.Provenance)
	s.Equal(int32(1), s.provider.calls.Load())
}

func (s *E2ETestSuite) TestResolveValidationAndSynthesis() {
	status, _ := s.get("/api/v1/places/resolve?name=&city=ExampleCity")
	s.Equal(http.StatusBadRequest, status)

	status, body := s.get("/api/v1/places/resolve?name=Unknown+Spot&city=ExampleCity")
	s.Require().Equal(http.StatusOK, status)
	var p types.Place
	s.Require().NoError(json.Unmarshal(body, &p))
	s.Equal(types.ProvenanceSynthesized, p.Provenance)
	s.Nil(p.Latitude)
}

func (s *E2ETestSuite) TestBuildItinerary() {
	ctx := context.Background()
	for _, p := range []types.Place{
		{Name: "A", City: "Testville", Category: types.CategoryMuseum, Latitude: types.Coord(0), Longitude: types.Coord(0)},
		{Name: "B", City: "Testville", Category: types.CategoryMuseum, Latitude: types.Coord(0), Longitude: types.Coord(1)},
		{Name: "C", City: "Testville", Category: types.CategoryMuseum, Latitude: types.Coord(5), Longitude: types.Coord(5)},
		{Name: "D", City: "Testville", Category: types.CategoryMuseum, Latitude: types.Coord(0), Longitude: types.Coord(2)},
	} {
		_, err := s.places.Upsert(ctx, p)
		s.Require().NoError(err)
	}

	status, body := s.post("/api/v1/itineraries",
		`{"city":"Testville","start":{"lat":0,"lng":0},"interests":["culture"],"max_stops":3}`, "")
	s.Require().Equal(http.StatusOK, status, string(body))

	var it types.Itinerary
	s.Require().NoError(json.Unmarshal(body, &it))
	var got []string
	for _, stop := range it.ActivityStops() {
		got = append(got, stop.Place.Name)
	}
	s.Equal([]string{"A", "B", "D"}, got)
	for _, stop := range it.Stops {
		if stop.Kind == types.StopTransit {
			s.Nil(stop.Place)
		}
	}
	s.False(it.InsufficientData)

	status, _ = s.post("/api/v1/itineraries", `{"city":"Testville","start":{"lat":0,"lng":0},"max_stops":0}`, "")
	s.Equal(http.StatusBadRequest, status)
}

func (s *E2ETestSuite) TestAdminBatches() {
	body := `{"targets":[{"city":"Turin","category":"museum"},{"city":"Asti","category":"park"}]}`

	status, _ := s.post("/api/v1/admin/batches/plan", body, "")
	s.Equal(http.StatusUnauthorized, status)

	status, _ = s.post("/api/v1/admin/batches/plan", body, s.token("viewer"))
	s.Equal(http.StatusForbidden, status)

	status, out := s.post("/api/v1/admin/batches/plan", body, s.token(appMiddleware.RoleAdmin))
	s.Require().Equal(http.StatusOK, status)
	var plan types.BatchPlan
	s.Require().NoError(json.Unmarshal(out, &plan))
	s.Len(plan.Batches, 1)
	s.Equal(2, plan.TotalCalls)
	s.Zero(s.provider.calls.Load())

	status, out = s.post("/api/v1/admin/batches/run", body, s.token(appMiddleware.RoleAdmin))
	s.Require().Equal(http.StatusOK, status)
	var report types.BatchReport
	s.Require().NoError(json.Unmarshal(out, &report))
	s.Equal(2, report.ProviderCalls)
	s.Equal(2, report.PlacesWritten)

	warmed, _ := s.places.ListByCity(context.Background(), "Turin")
	s.Len(warmed, 1)
}

func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
