package query

import "github.com/golang/geo/s2"

// Bounds is the geographic envelope of a view's coordinates, for renderer
// viewport fitting.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`

	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
}

// MapBounds computes the bounding box and center of the view's usable
// coordinates. ok is false when no record carries a coordinate pair.
func MapBounds(view View) (Bounds, bool) {
	rect := s2.EmptyRect()
	for _, rec := range view {
		if !rec.HasCoordinates() {
			continue
		}
		rect = rect.AddPoint(s2.LatLngFromDegrees(*rec.Latitude, *rec.Longitude))
	}
	if rect.IsEmpty() {
		return Bounds{}, false
	}

	lo, hi, center := rect.Lo(), rect.Hi(), rect.Center()
	return Bounds{
		MinLat:    lo.Lat.Degrees(),
		MinLng:    lo.Lng.Degrees(),
		MaxLat:    hi.Lat.Degrees(),
		MaxLng:    hi.Lng.Degrees(),
		CenterLat: center.Lat.Degrees(),
		CenterLng: center.Lng.Degrees(),
	}, true
}
