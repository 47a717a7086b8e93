package types

import "time"

// CacheEntry is a previously computed lookup result stored under a signature.
type CacheEntry struct {
	Key       string    `json:"key"`
	Places    []Place   `json:"places"`
	FetchedAt time.Time `json:"fetched_at"`
}

// IsFresh reports whether the entry is younger than maxAge at now.
func (e CacheEntry) IsFresh(maxAge time.Duration, now time.Time) bool {
	return now.Sub(e.FetchedAt) <= maxAge
}

// First returns the first cached place, if any.
func (e CacheEntry) First() (Place, bool) {
	if len(e.Places) == 0 {
		return Place{}, false
	}
	return e.Places[0], true
}

// WriteBackResult is the outcome of persisting provider results. Served holds every place
// as it should be returned; Persisted counts the places that reached the Place Store.
type WriteBackResult struct {
	Served    []Place
	Persisted int
	Failures  int
}
