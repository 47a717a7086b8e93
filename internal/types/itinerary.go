package types

// StopKind distinguishes visited places from the legs between them.
type StopKind string

const (
	StopActivity StopKind = "activity"
	StopTransit  StopKind = "transit"
)

// TransportMode is chosen per leg from the leg distance.
type TransportMode string

const (
	TransportWalking TransportMode = "walking"
	TransportTransit TransportMode = "transit"
	TransportDriving TransportMode = "driving"
)

// Anchor is a start or end point, either coordinates or a place name.
type Anchor struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
	Name string   `json:"name,omitempty"`
}

func (a Anchor) HasCoordinates() bool {
	return a.Lat != nil && a.Lng != nil
}

func (a Anchor) IsZero() bool {
	return !a.HasCoordinates() && NormalizeIdentity(a.Name) == ""
}

type ItineraryRequest struct {
	City      string   `json:"city"`
	Start     Anchor   `json:"start"`
	End       *Anchor  `json:"end,omitempty"`
	Interests []string `json:"interests"`
	MaxStops  int      `json:"max_stops"`
}

// ItineraryStop is one element of a produced route. Transit stops never carry a Place.
type ItineraryStop struct {
	Ordinal       int           `json:"ordinal"`
	Kind          StopKind      `json:"kind"`
	Place         *Place        `json:"place"`
	TransportMode TransportMode `json:"transport_mode,omitempty"`
	DistanceKm    float64       `json:"distance_km"`
	CumulativeKm  float64       `json:"cumulative_km"`
}

type Itinerary struct {
	City             string          `json:"city"`
	Stops            []ItineraryStop `json:"stops"`
	TotalDistanceKm  float64         `json:"total_distance_km"`
	InsufficientData bool            `json:"insufficient_data"`
}

// ActivityStops returns only the activity stops in order.
func (it Itinerary) ActivityStops() []ItineraryStop {
	var out []ItineraryStop
	for _, s := range it.Stops {
		if s.Kind == StopActivity {
			out = append(out, s)
		}
	}
	return out
}
