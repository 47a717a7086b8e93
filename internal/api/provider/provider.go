package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-poi-resolver/config"
	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

const (
	KindGooglePlaces = "google_places"
	KindGemini       = "gemini"
	KindNone         = "none"
)

// RawPlace is a provider result before it is normalized into a Place.
type RawPlace struct {
	ExternalID  string
	Name        string
	Category    types.Category
	Description string
	Address     string
	Latitude    *float64
	Longitude   *float64
	ImageRef    string
}

// Place converts the raw result into a provider-provenance place of city.
// The hint fills the category when the provider could not classify the result.
func (r RawPlace) Place(city string, hint types.Category) types.Place {
	category := r.Category
	if (category == "" || category == types.CategoryOther) && hint != "" {
		category = hint
	}
	if category == "" {
		category = types.CategoryOther
	}
	p := types.Place{
		ExternalID:  r.ExternalID,
		Name:        r.Name,
		City:        city,
		Category:    category,
		Description: r.Description,
		ImageRef:    r.ImageRef,
		Provenance:  types.ProvenanceProvider,
		Confidence:  0.9,
	}
	if r.Latitude != nil && r.Longitude != nil {
		g := types.GeoPoint{Lat: *r.Latitude, Lng: *r.Longitude}
		if g.Valid() {
			p.Latitude, p.Longitude = types.Coord(g.Lat), types.Coord(g.Lng)
		}
	}
	return p
}

// Provider is a paid live lookup. Every call costs money.
type Provider interface {
	Name() string
	// Search returns the best match for query in city, or ErrProviderEmpty.
	Search(ctx context.Context, query, city string) (*RawPlace, error)
}

// CategorySearcher lists places of one category in a city; used by batch pre-warming.
type CategorySearcher interface {
	SearchCategory(ctx context.Context, category types.Category, city string, limit int) ([]RawPlace, error)
}

// New builds the configured provider. It returns nil, nil for kind none.
func New(ctx context.Context, cfg config.ProviderConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindGooglePlaces:
		client := &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		}
		return NewGooglePlaces(client, cfg.BaseURL, cfg.APIKey, logger), nil
	case KindGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		return NewGemini(client.Models, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider.kind %q", cfg.Kind)
	}
}

// classify maps provider type tags onto our categories, first match wins.
func classify(tags []string) types.Category {
	for _, t := range tags {
		switch strings.ToLower(t) {
		case "museum", "art_gallery":
			return types.CategoryMuseum
		case "church", "place_of_worship", "mosque", "synagogue", "hindu_temple":
			return types.CategoryChurch
		case "park", "natural_feature", "campground", "zoo", "aquarium":
			return types.CategoryPark
		case "restaurant", "meal_takeaway", "meal_delivery", "food":
			return types.CategoryRestaurant
		case "cafe", "bakery":
			return types.CategoryCafe
		case "lodging", "hotel":
			return types.CategoryLodging
		case "bar", "night_club", "casino":
			return types.CategoryNightlife
		case "shopping_mall", "store", "clothing_store", "book_store", "department_store":
			return types.CategoryShopping
		case "monument", "historical_landmark", "city_hall", "town_square":
			return types.CategoryMonument
		case "viewpoint", "observation_deck":
			return types.CategoryViewpoint
		case "tourist_attraction", "point_of_interest", "amusement_park", "stadium":
			return types.CategoryAttraction
		}
	}
	return types.CategoryOther
}

// wrap normalizes provider failures. Deadline errors become ErrProviderTimeout.
func wrap(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", types.ErrProviderTimeout, err)
	}
	return &types.ProviderError{Provider: name, Err: err}
}
