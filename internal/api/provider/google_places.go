package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

type googlePlacesResponse struct {
	Results      []googlePlaceResult `json:"results"`
	Status       string              `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

type googlePlaceResult struct {
	Name             string         `json:"name"`
	PlaceID          string         `json:"place_id"`
	FormattedAddress string         `json:"formatted_address"`
	Geometry         googleGeometry `json:"geometry"`
	Photos           []googlePhoto  `json:"photos,omitempty"`
	Types            []string       `json:"types"`
}

type googleGeometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type googlePhoto struct {
	PhotoReference string `json:"photo_reference"`
}

var (
	_ Provider         = (*GooglePlaces)(nil)
	_ CategorySearcher = (*GooglePlaces)(nil)
)

// GooglePlaces calls the Places text search endpoint.
type GooglePlaces struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

func NewGooglePlaces(client *http.Client, baseURL, apiKey string, logger *slog.Logger) *GooglePlaces {
	return &GooglePlaces{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

func (g *GooglePlaces) Name() string { return KindGooglePlaces }

func (g *GooglePlaces) Search(ctx context.Context, query, city string) (*RawPlace, error) {
	results, err := g.textSearch(ctx, query+" "+city, "")
	if err != nil {
		return nil, err
	}
	raw := results[0].raw()
	return &raw, nil
}

func (g *GooglePlaces) SearchCategory(ctx context.Context, category types.Category, city string, limit int) ([]RawPlace, error) {
	results, err := g.textSearch(ctx, string(category)+" in "+city, googleType(category))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]RawPlace, 0, len(results))
	for _, r := range results {
		raw := r.raw()
		if raw.Category == types.CategoryOther {
			raw.Category = category
		}
		out = append(out, raw)
	}
	return out, nil
}

func (g *GooglePlaces) textSearch(ctx context.Context, query, placeType string) ([]googlePlaceResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", g.apiKey)
	if placeType != "" {
		params.Set("type", placeType)
	}

	g.logger.DebugContext(ctx, "Places text search", slog.String("query", query), slog.String("type", placeType))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/textsearch/json?"+params.Encode(), nil)
	if err != nil {
		return nil, wrap(g.Name(), err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, wrap(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, wrap(g.Name(), fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body))
	}

	var decoded googlePlacesResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, wrap(g.Name(), fmt.Errorf("failed to decode response: %w", err))
	}

	switch decoded.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, types.ErrProviderEmpty
	default:
		return nil, wrap(g.Name(), fmt.Errorf("status %s: %s", decoded.Status, decoded.ErrorMessage))
	}
	if len(decoded.Results) == 0 {
		return nil, types.ErrProviderEmpty
	}
	return decoded.Results, nil
}

func (r googlePlaceResult) raw() RawPlace {
	raw := RawPlace{
		ExternalID: r.PlaceID,
		Name:       r.Name,
		Category:   classify(r.Types),
		Address:    r.FormattedAddress,
		Latitude:   types.Coord(r.Geometry.Location.Lat),
		Longitude:  types.Coord(r.Geometry.Location.Lng),
	}
	if len(r.Photos) > 0 {
		raw.ImageRef = r.Photos[0].PhotoReference
	}
	return raw
}

// googleType maps a category onto the Places "type" filter, empty when there is none.
func googleType(c types.Category) string {
	switch c {
	case types.CategoryMuseum, types.CategoryRestaurant, types.CategoryCafe,
		types.CategoryLodging, types.CategoryChurch, types.CategoryPark:
		return string(c)
	case types.CategoryNightlife:
		return "night_club"
	case types.CategoryShopping:
		return "shopping_mall"
	case types.CategoryAttraction:
		return "tourist_attraction"
	default:
		return ""
	}
}
