package geo

import (
	"math"

	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

const earthRadiusM = 6371000.0

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b types.Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// EstimateDurationSeconds converts a distance into a travel time at the given
// mean speed. Zero or negative speed falls back to a walking-ish 1.4 m/s so
// the estimate is never infinite.
func EstimateDurationSeconds(distanceM, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = 1.4
	}
	return distanceM / speedMps
}

// BoundingBox is a lat/lng rectangle used as a cheap SQL prefilter before the
// exact spherical distance check.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround returns a bounding box containing every point within radiusM of
// the center. Near the poles the longitude span degenerates; the box is then
// widened to the full range, which only costs extra candidates.
func BoxAround(center types.Coordinates, radiusM float64) BoundingBox {
	latDelta := radiusM / earthRadiusM * 180 / math.Pi

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	var lngDelta float64
	if cosLat < 1e-6 {
		lngDelta = 180
	} else {
		lngDelta = latDelta / cosLat
	}

	return BoundingBox{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MinLng: math.Max(center.Lng-lngDelta, -180),
		MaxLng: math.Min(center.Lng+lngDelta, 180),
	}
}
