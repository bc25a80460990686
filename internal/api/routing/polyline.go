package routing

import "github.com/daisydate/go-date-course-planner/internal/types"

// decodePolyline decodes a Google-encoded polyline string (precision 1e5)
// into a coordinate sequence. Providers that return encoded geometry decode
// it into the uniform representation before handing routes back.
func decodePolyline(encoded string) []types.LatLng {
	var poly []types.LatLng
	index, length := 0, len(encoded)
	lat, lng := 0, 0

	for index < length {
		var b, shift, result int
		for {
			b = int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}
		dLat := result >> 1
		if result&1 != 0 {
			dLat = ^dLat
		}
		lat += dLat

		shift, result = 0, 0
		for {
			b = int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}
		dLng := result >> 1
		if result&1 != 0 {
			dLng = ^dLng
		}
		lng += dLng

		poly = append(poly, types.LatLng{
			Lat: float64(lat) / 1e5,
			Lng: float64(lng) / 1e5,
		})
	}
	return poly
}
