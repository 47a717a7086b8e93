package types

import "time"

// BatchTarget is one (city, category) pair to pre-warm.
type BatchTarget struct {
	City     string   `json:"city"`
	Category Category `json:"category"`
}

type BatchPlanRequest struct {
	Targets []BatchTarget `json:"targets"`
	// Centers optionally supplies city centers keyed by city name; missing ones are looked up.
	Centers map[string]GeoPoint `json:"centers,omitempty"`
}

// Batch groups nearby cities so one provider session covers all of their targets.
type Batch struct {
	Index             int           `json:"index"`
	Cities            []string      `json:"cities"`
	Centroid          *GeoPoint     `json:"centroid,omitempty"`
	Targets           []BatchTarget `json:"targets"`
	EstimatedCalls    int           `json:"estimated_calls"`
	EstimatedCostUSD  float64       `json:"estimated_cost_usd"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Unlocated         bool          `json:"unlocated,omitempty"`
}

type BatchPlan struct {
	Batches           []Batch       `json:"batches"`
	TotalCalls        int           `json:"total_calls"`
	EstimatedCostUSD  float64       `json:"estimated_cost_usd"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// BatchReport summarizes an executed plan.
type BatchReport struct {
	BatchesRun     int      `json:"batches_run"`
	ProviderCalls  int      `json:"provider_calls"`
	// PlacesWritten counts places persisted to the Place Store.
	PlacesWritten  int      `json:"places_written"`
	FailedTargets  []string `json:"failed_targets,omitempty"`
	PersistErrors  int      `json:"persist_errors"`
	DurationMillis int64    `json:"duration_ms"`
}
