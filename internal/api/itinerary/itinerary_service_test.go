package itinerary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-poi-resolver/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

type MockPlaceRepository struct {
	mock.Mock
}

func (m *MockPlaceRepository) FindByIdentity(ctx context.Context, key types.PlaceKey) (*types.Place, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

func (m *MockPlaceRepository) FindCandidates(ctx context.Context, key types.PlaceKey, limit int) ([]types.Place, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) ListByCity(ctx context.Context, city string) ([]types.Place, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) Upsert(ctx context.Context, p types.Place) (*types.Place, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, req types.ResolutionRequest) (*types.Place, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

func (m *MockResolver) SemanticCandidates(ctx context.Context, city string, categories []types.Category, limit int) ([]types.Place, error) {
	args := m.Called(ctx, city, categories, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func setupServiceTest() (*ServiceImpl, *MockPlaceRepository, *MockResolver) {
	places := new(MockPlaceRepository)
	res := new(MockResolver)
	cfg := config.ItineraryConfig{WalkingMaxKm: 1, TransitMaxKm: 3, MaxStopsLimit: 25}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(places, res, metrics.Noop(), cfg, logger), places, res
}

func origin() types.Anchor {
	return types.Anchor{Lat: types.Coord(0), Lng: types.Coord(0)}
}

func TestService_Build(t *testing.T) {
	ctx := context.Background()
	pool := []types.Place{at("A", 0, 0), at("B", 0, 1), at("C", 5, 5), at("D", 0, 2)}

	t.Run("store pool is enough", func(t *testing.T) {
		svc, places, res := setupServiceTest()
		places.On("ListByCity", mock.Anything, "Testville").Return(pool, nil).Once()

		it, err := svc.Build(ctx, types.ItineraryRequest{City: "Testville", Start: origin(), MaxStops: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "D"}, names(it.Stops))
		res.AssertNotCalled(t, "SemanticCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("small pool is supplemented semantically", func(t *testing.T) {
		svc, places, res := setupServiceTest()
		museum := at("Museo", 0, 0.5)
		museum.Category = types.CategoryMuseum
		extra := at("Chiesa", 0, 0.7)
		extra.Category = types.CategoryChurch
		places.On("ListByCity", mock.Anything, "Testville").Return([]types.Place{museum}, nil).Once()
		res.On("SemanticCandidates", mock.Anything, "Testville",
			[]types.Category{types.CategoryChurch, types.CategoryMonument, types.CategoryMuseum}, 6).
			Return([]types.Place{extra, museum}, nil).Once()

		it, err := svc.Build(ctx, types.ItineraryRequest{
			City: "Testville", Start: origin(), Interests: []string{"culture"}, MaxStops: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Museo", "Chiesa"}, names(it.Stops))
		assert.True(t, it.InsufficientData)
		res.AssertExpectations(t)
	})

	t.Run("store failure degrades to semantic pool", func(t *testing.T) {
		svc, places, res := setupServiceTest()
		places.On("ListByCity", mock.Anything, "Testville").Return(nil, errors.New("db down")).Once()
		res.On("SemanticCandidates", mock.Anything, "Testville", mock.Anything, 2).
			Return([]types.Place{at("Only", 0, 0.1)}, nil).Once()

		it, err := svc.Build(ctx, types.ItineraryRequest{City: "Testville", Start: origin(), MaxStops: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"Only"}, names(it.Stops))
	})

	t.Run("named anchors are resolved", func(t *testing.T) {
		svc, places, res := setupServiceTest()
		start := at("Piazza", 0, 0)
		end := at("D", 0, 2)
		res.On("Resolve", mock.Anything, types.ResolutionRequest{Name: "Piazza", City: "Testville"}).Return(&start, nil).Once()
		res.On("Resolve", mock.Anything, types.ResolutionRequest{Name: "D", City: "Testville"}).Return(&end, nil).Once()
		places.On("ListByCity", mock.Anything, "Testville").Return(pool, nil).Once()

		it, err := svc.Build(ctx, types.ItineraryRequest{
			City: "Testville", Start: types.Anchor{Name: "Piazza"}, End: &types.Anchor{Name: "D"}, MaxStops: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "D"}, names(it.Stops))
	})

	t.Run("coordinate end anchor", func(t *testing.T) {
		svc, places, _ := setupServiceTest()
		places.On("ListByCity", mock.Anything, "Testville").Return(pool, nil).Once()

		it, err := svc.Build(ctx, types.ItineraryRequest{
			City: "Testville", Start: origin(), End: &types.Anchor{Lat: types.Coord(0), Lng: types.Coord(3)}, MaxStops: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "End"}, names(it.Stops))
	})

	t.Run("unroutable anchor", func(t *testing.T) {
		svc, _, res := setupServiceTest()
		res.On("Resolve", mock.Anything, mock.Anything).
			Return(&types.Place{Name: "Nowhere", Provenance: types.ProvenanceSynthesized}, nil).Once()

		_, err := svc.Build(ctx, types.ItineraryRequest{City: "Testville", Start: types.Anchor{Name: "Nowhere"}, MaxStops: 3})
		assert.ErrorIs(t, err, types.ErrAnchorNotRoutable)
	})
}

func TestService_BuildValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   types.ItineraryRequest
		field string
	}{
		{"no city", types.ItineraryRequest{Start: origin(), MaxStops: 3}, "city"},
		{"zero stops", types.ItineraryRequest{City: "x", Start: origin(), MaxStops: 0}, "max_stops"},
		{"too many stops", types.ItineraryRequest{City: "x", Start: origin(), MaxStops: 26}, "max_stops"},
		{"no start", types.ItineraryRequest{City: "x", MaxStops: 3}, "start"},
		{"empty end", types.ItineraryRequest{City: "x", Start: origin(), End: &types.Anchor{}, MaxStops: 3}, "end"},
		{"bad interest", types.ItineraryRequest{City: "x", Start: origin(), Interests: []string{"bungee"}, MaxStops: 3}, "interests"},
		{"start off the globe", types.ItineraryRequest{City: "x", Start: types.Anchor{Lat: types.Coord(91), Lng: types.Coord(0)}, MaxStops: 3}, "start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, places, _ := setupServiceTest()
			_, err := svc.Build(context.Background(), tt.req)

			var verr *types.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			places.AssertNotCalled(t, "ListByCity", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_BuildItinerary(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("ok", func(t *testing.T) {
		svc, places, _ := setupServiceTest()
		places.On("ListByCity", mock.Anything, "Testville").
			Return([]types.Place{at("A", 0, 0), at("B", 0, 1)}, nil).Once()
		h := NewHandler(svc, logger)

		body := `{"city":"Testville","start":{"lat":0,"lng":0},"interests":[],"max_stops":2}`
		rr := httptest.NewRecorder()
		h.BuildItinerary(rr, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusOK, rr.Code)
		var it types.Itinerary
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &it))
		assert.Equal(t, []string{"A", "B"}, names(it.Stops))
		assert.Nil(t, it.Stops[1].Place)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc, _, _ := setupServiceTest()
		h := NewHandler(svc, logger)

		rr := httptest.NewRecorder()
		h.BuildItinerary(rr, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", bytes.NewBufferString(`{"city":`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unroutable anchor is unprocessable", func(t *testing.T) {
		svc, _, res := setupServiceTest()
		res.On("Resolve", mock.Anything, mock.Anything).Return(&types.Place{Name: "Nowhere"}, nil).Once()
		h := NewHandler(svc, logger)

		body := `{"city":"Testville","start":{"name":"Nowhere"},"max_stops":2}`
		rr := httptest.NewRecorder()
		h.BuildItinerary(rr, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}
