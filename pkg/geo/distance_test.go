package geo

import (
	"testing"

	"github.com/parceldrop/parceldrop-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceZero(t *testing.T) {
	p := types.Coordinates{Lng: -74.006, Lat: 40.7128}
	require.Equal(t, 0.0, Distance(p, p))
}

func TestDistanceKnownPair(t *testing.T) {
	// Times Square to Grand Central is roughly 1.1 km.
	a := types.Coordinates{Lng: -73.9855, Lat: 40.758}
	b := types.Coordinates{Lng: -73.9772, Lat: 40.7527}
	d := Distance(a, b)
	assert.InDelta(t, 915, d, 100)
}

func TestDistanceSymmetry(t *testing.T) {
	a := types.Coordinates{Lng: 2.3522, Lat: 48.8566}
	b := types.Coordinates{Lng: -0.1276, Lat: 51.5072}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestEstimateDurationSeconds(t *testing.T) {
	assert.InDelta(t, 100, EstimateDurationSeconds(830, 8.3), 1e-9)
	// zero speed must not divide by zero
	assert.Greater(t, EstimateDurationSeconds(1000, 0), 0.0)
}

func TestBoxAroundContainsRadius(t *testing.T) {
	center := types.Coordinates{Lng: -74.006, Lat: 40.7128}
	box := BoxAround(center, 5000)

	require.Less(t, box.MinLat, center.Lat)
	require.Greater(t, box.MaxLat, center.Lat)
	require.Less(t, box.MinLng, center.Lng)
	require.Greater(t, box.MaxLng, center.Lng)

	// a point 4.9km due north stays inside the box
	north := types.Coordinates{Lng: center.Lng, Lat: center.Lat + 4900.0/111_000}
	assert.LessOrEqual(t, north.Lat, box.MaxLat)
}
