package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

const torreCivicaResponse = `{
  "status": "OK",
  "results": [{
    "name": "Torre Civica",
    "place_id": "ChIJ-torre",
    "formatted_address": "Piazza Centrale 1, ExampleCity",
    "geometry": {"location": {"lat": 45.07, "lng": 7.68}},
    "photos": [{"photo_reference": "photo-ref-1"}],
    "types": ["tourist_attraction", "point_of_interest"]
  }]
}`

func newTestPlaces(t *testing.T, handler http.HandlerFunc) *GooglePlaces {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGooglePlaces(srv.Client(), srv.URL+"/", "test-key", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGooglePlaces_Search(t *testing.T) {
	t.Run("maps first result", func(t *testing.T) {
		var gotQuery, gotKey string
		g := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/textsearch/json", r.URL.Path)
			gotQuery = r.URL.Query().Get("query")
			gotKey = r.URL.Query().Get("key")
			_, _ = io.WriteString(w, torreCivicaResponse)
		})

		raw, err := g.Search(context.Background(), "Torre Civica", "ExampleCity")
		require.NoError(t, err)
		assert.Equal(t, "Torre Civica ExampleCity", gotQuery)
		assert.Equal(t, "test-key", gotKey)
		assert.Equal(t, "ChIJ-torre", raw.ExternalID)
		assert.Equal(t, types.CategoryAttraction, raw.Category)
		assert.Equal(t, "photo-ref-1", raw.ImageRef)
		assert.Equal(t, "Piazza Centrale 1, ExampleCity", raw.Address)
		require.NotNil(t, raw.Latitude)
		assert.InDelta(t, 45.07, *raw.Latitude, 1e-9)
		assert.InDelta(t, 7.68, *raw.Longitude, 1e-9)
	})

	t.Run("zero results is empty", func(t *testing.T) {
		g := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"ZERO_RESULTS","results":[]}`)
		})
		_, err := g.Search(context.Background(), "Nowhere", "ExampleCity")
		assert.ErrorIs(t, err, types.ErrProviderEmpty)
	})

	t.Run("denied status is a provider error", func(t *testing.T) {
		g := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
		})
		_, err := g.Search(context.Background(), "x", "y")
		var perr *types.ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, KindGooglePlaces, perr.Provider)
		assert.ErrorContains(t, err, "bad key")
	})

	t.Run("http failure status", func(t *testing.T) {
		g := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := g.Search(context.Background(), "x", "y")
		assert.ErrorContains(t, err, "unexpected status 502")
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		g := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := g.Search(ctx, "x", "y")
		assert.ErrorIs(t, err, types.ErrProviderTimeout)
	})
}

func TestGooglePlaces_SearchCategory(t *testing.T) {
	var gotType string
	g := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.URL.Query().Get("type")
		_, _ = io.WriteString(w, `{"status":"OK","results":[
			{"name":"Museo Egizio","place_id":"a","geometry":{"location":{"lat":45.068,"lng":7.684}},"types":["museum"]},
			{"name":"Pinacoteca","place_id":"b","geometry":{"location":{"lat":45.07,"lng":7.69}},"types":["establishment"]},
			{"name":"Third","place_id":"c","geometry":{"location":{"lat":45.0,"lng":7.6}},"types":["museum"]}
		]}`)
	})

	got, err := g.SearchCategory(context.Background(), types.CategoryMuseum, "Turin", 2)
	require.NoError(t, err)
	assert.Equal(t, "museum", gotType)
	require.Len(t, got, 2)
	assert.Equal(t, types.CategoryMuseum, got[0].Category)
	assert.Equal(t, types.CategoryMuseum, got[1].Category)
}

func TestRawPlace_Place(t *testing.T) {
	raw := RawPlace{Name: "Torre Civica", Latitude: types.Coord(45.07), Longitude: types.Coord(7.68)}
	p := raw.Place("ExampleCity", types.CategoryMonument)
	assert.Equal(t, types.ProvenanceProvider, p.Provenance)
	assert.Equal(t, types.CategoryMonument, p.Category)
	assert.True(t, p.Routable())

	bad := RawPlace{Name: "Broken", Latitude: types.Coord(123), Longitude: types.Coord(7)}
	assert.False(t, bad.Place("X", "").Routable())
	assert.Equal(t, types.CategoryOther, bad.Place("X", "").Category)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, types.CategoryMuseum, classify([]string{"art_gallery"}))
	assert.Equal(t, types.CategoryChurch, classify([]string{"place_of_worship", "church"}))
	assert.Equal(t, types.CategoryOther, classify([]string{"establishment"}))
	assert.Equal(t, types.CategoryOther, classify(nil))
}
