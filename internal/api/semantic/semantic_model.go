package semantic

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// Metadata keys attached to every match.
const (
	MetaCity       = "city"
	MetaName       = "name"
	MetaCategory   = "category"
	MetaLatitude   = "latitude"
	MetaLongitude  = "longitude"
	MetaImageRef   = "image_ref"
	MetaExternalID = "external_id"
	MetaSource     = "source"
)

// Match is one semantic search hit. Score is cosine similarity in [0, 1].
type Match struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// InCity reports whether the match is unscoped or scoped to city.
func (m Match) InCity(city string) bool {
	c := m.Metadata[MetaCity]
	return c == "" || c == types.NormalizeIdentity(city)
}

// Place converts the match into a place of the given city.
func (m Match) Place(city string) types.Place {
	p := types.Place{
		Name:        m.Metadata[MetaName],
		City:        city,
		Category:    types.Category(m.Metadata[MetaCategory]),
		Description: m.Text,
		ImageRef:    m.Metadata[MetaImageRef],
		ExternalID:  m.Metadata[MetaExternalID],
		Provenance:  types.ProvenanceSemantic,
		Confidence:  m.Score,
	}
	lat, errLat := strconv.ParseFloat(m.Metadata[MetaLatitude], 64)
	lng, errLng := strconv.ParseFloat(m.Metadata[MetaLongitude], 64)
	if errLat == nil && errLng == nil {
		p.Latitude, p.Longitude = types.Coord(lat), types.Coord(lng)
	}
	return p
}

// Document is one row of the semantic corpus.
type Document struct {
	ID         uuid.UUID
	Title      string
	Body       string
	City       string
	PlaceName  string
	Category   types.Category
	Latitude   *float64
	Longitude  *float64
	ImageRef   string
	ExternalID string
	Source     string
	Embedding  []float32
	CreatedAt  time.Time
}

const (
	SourceGuide = "guide"
	SourcePlace = "place"
)

// DocumentFromPlace builds the corpus row that makes a stored place findable by meaning.
func DocumentFromPlace(p types.Place) Document {
	body := p.Description
	if body == "" {
		body = p.Name + ", " + string(p.Category) + " in " + p.City
	}
	return Document{
		Title:      p.Name,
		Body:       body,
		City:       p.City,
		PlaceName:  p.Name,
		Category:   p.Category,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		ImageRef:   p.ImageRef,
		ExternalID: p.ExternalID,
		Source:     SourcePlace,
	}
}

// EmbeddingText is what gets embedded for a document.
func (d Document) EmbeddingText() string {
	return d.Title + " " + d.City + ". " + d.Body
}

func (d Document) match(score float64) Match {
	meta := map[string]string{
		MetaCity:       types.NormalizeIdentity(d.City),
		MetaName:       d.PlaceName,
		MetaCategory:   string(d.Category),
		MetaImageRef:   d.ImageRef,
		MetaExternalID: d.ExternalID,
		MetaSource:     d.Source,
	}
	if meta[MetaName] == "" {
		meta[MetaName] = d.Title
	}
	if d.Latitude != nil && d.Longitude != nil {
		meta[MetaLatitude] = strconv.FormatFloat(*d.Latitude, 'f', -1, 64)
		meta[MetaLongitude] = strconv.FormatFloat(*d.Longitude, 'f', -1, 64)
	}
	return Match{Text: d.Body, Score: score, Metadata: meta}
}
