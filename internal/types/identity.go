package types

import (
	"strings"
	"unicode"
)

// NormalizeIdentity is the one normalization applied to place names, city names and
// categories at every tier boundary: store keys, cache signatures, index filters and
// batch targets all go through it.
func NormalizeIdentity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '(' && r != ')'
	})
}

// PlaceKey is the normalized (name, city) identity of a place.
type PlaceKey struct {
	Name string `json:"name"`
	City string `json:"city"`
}

func NewPlaceKey(name, city string) PlaceKey {
	return PlaceKey{Name: NormalizeIdentity(name), City: NormalizeIdentity(city)}
}

func (k PlaceKey) String() string {
	return k.Name + "|" + k.City
}

// IsZero reports whether either half of the identity is empty.
func (k PlaceKey) IsZero() bool {
	return k.Name == "" || k.City == ""
}

// PlaceSignature is the generic cache key for a single place lookup.
func PlaceSignature(city, name string) string {
	return "place:" + NormalizeIdentity(city) + ":" + NormalizeIdentity(name)
}

// CategorySignature is the generic cache key for a (city, category) listing.
func CategorySignature(city string, category Category) string {
	return "category:" + NormalizeIdentity(city) + ":" + string(category)
}
