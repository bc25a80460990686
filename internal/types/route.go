package types

// RouteInfo is the uniform routing result shared by every provider:
// total distance in meters, total duration in seconds and the decoded
// route geometry as an ordered coordinate sequence.
type RouteInfo struct {
	DistanceMeters  float64  `json:"distance"`
	DurationSeconds int      `json:"duration"`
	Path            []LatLng `json:"path"`
}
