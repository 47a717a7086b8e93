package types

import "github.com/google/uuid"

// City is a row of the cities table; its center seeds batch clustering.
type City struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Country string    `json:"country"`
	Center  GeoPoint  `json:"center"`
}
