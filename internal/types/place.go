package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is the enumerated kind of a place.
type Category string

const (
	CategoryAttraction Category = "attraction"
	CategoryRestaurant Category = "restaurant"
	CategoryCafe       Category = "cafe"
	CategoryLodging    Category = "lodging"
	CategoryMuseum     Category = "museum"
	CategoryMonument   Category = "monument"
	CategoryChurch     Category = "church"
	CategoryPark       Category = "park"
	CategoryViewpoint  Category = "viewpoint"
	CategoryNightlife  Category = "nightlife"
	CategoryShopping   Category = "shopping"
	CategoryOther      Category = "other"
)

// AllCategories lists every known category in a stable order.
var AllCategories = []Category{
	CategoryAttraction, CategoryRestaurant, CategoryCafe, CategoryLodging, CategoryMuseum,
	CategoryMonument, CategoryChurch, CategoryPark, CategoryViewpoint, CategoryNightlife,
	CategoryShopping, CategoryOther,
}

// ParseCategory normalizes s and maps it onto a known category.
// An empty string parses to the empty category without error.
func ParseCategory(s string) (Category, error) {
	n := NormalizeIdentity(s)
	if n == "" {
		return "", nil
	}
	for _, c := range AllCategories {
		if string(c) == n {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Provenance records which tier produced a resolved place.
type Provenance string

const (
	ProvenanceStructured  Provenance = "structured"
	ProvenanceSemantic    Provenance = "semantic"
	ProvenanceCache       Provenance = "cache"
	ProvenanceProvider    Provenance = "provider"
	ProvenanceSynthesized Provenance = "synthesized"
)

// Place is a real-world point of interest as known to the resolution tiers.
type Place struct {
	ID          uuid.UUID  `json:"id,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	Name        string     `json:"name"`
	City        string     `json:"city"`
	Category    Category   `json:"category"`
	Description string     `json:"description"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	ImageRef    string     `json:"image_ref,omitempty"`
	Provenance  Provenance `json:"provenance"`
	Confidence  float64    `json:"confidence"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

func (p Place) Key() PlaceKey {
	return NewPlaceKey(p.Name, p.City)
}

// Routable reports whether the place carries both coordinates.
func (p Place) Routable() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Point returns the coordinates of a routable place.
func (p Place) Point() GeoPoint {
	if !p.Routable() {
		return GeoPoint{}
	}
	return GeoPoint{Lat: *p.Latitude, Lng: *p.Longitude}
}

// MergeMissing fills fields of p that are empty with the values from src.
// Identity fields and anything already set are left untouched.
func (p *Place) MergeMissing(src Place) {
	if p.Description == "" {
		p.Description = src.Description
	}
	if p.ImageRef == "" {
		p.ImageRef = src.ImageRef
	}
	if p.ExternalID == "" {
		p.ExternalID = src.ExternalID
	}
	if (p.Category == "" || p.Category == CategoryOther) && src.Category != "" {
		p.Category = src.Category
	}
	if p.Latitude == nil && p.Longitude == nil && src.Routable() {
		lat, lng := *src.Latitude, *src.Longitude
		p.Latitude, p.Longitude = &lat, &lng
	}
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (g GeoPoint) Valid() bool {
	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180
}

// Coord returns a pointer to v; used to populate optional coordinates.
func Coord(v float64) *float64 {
	return &v
}

// ResolutionRequest is an ephemeral resolution query.
type ResolutionRequest struct {
	Name         string `json:"place_name"`
	City         string `json:"city"`
	CategoryHint string `json:"category_hint,omitempty"`
	Refresh      bool   `json:"refresh,omitempty"`
	// Attempt is assigned by the resolver and only used in logs.
	Attempt uint64 `json:"-"`
}
