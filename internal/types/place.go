package types

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate carries a usable position.
// Generated plans occasionally come back with zeroed locations; those
// must never reach the routing providers.
func (c LatLng) Valid() bool {
	return c.Lat != 0 || c.Lng != 0
}

// Place is a real-world place candidate resolved from the search provider
// or loaded back from the place store. ID is the provider-assigned place ID
// and is the deduplication key across search results.
type Place struct {
	ID              string   `json:"placeId"`
	Title           string   `json:"title"`
	Address         string   `json:"address"`
	Location        LatLng   `json:"location"`
	Rating          *float64 `json:"rating,omitempty"`
	UserRatingCount *int     `json:"userRatingCount,omitempty"`
	Category        *string  `json:"category,omitempty"`
	PhotoURL        *string  `json:"photoUrl,omitempty"`
	OpenNow         *bool    `json:"openNow,omitempty"`
	OpeningHours    []string `json:"openingHours,omitempty"`
	Website         *string  `json:"website,omitempty"`
}
