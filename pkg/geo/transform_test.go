package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMSLToHAE(t *testing.T) {
	t.Run("lat lon pass through", func(t *testing.T) {
		lat, lon, _ := MSLToHAE(45.2, -121.5, 1500)
		assert.InDelta(t, 45.2, lat, 1e-12)
		assert.InDelta(t, -121.5, lon, 1e-12)
	})

	t.Run("hae differs by geoid separation", func(t *testing.T) {
		lat, lon := 45.2, -121.5
		_, _, hae := MSLToHAE(lat, lon, 1500)
		assert.InDelta(t, 1500+GeoidSeparation(lat, lon), hae, 1e-9)
	})

	t.Run("deterministic", func(t *testing.T) {
		_, _, hae1 := MSLToHAE(10, 20, 300)
		_, _, hae2 := MSLToHAE(10, 20, 300)
		assert.Equal(t, hae1, hae2)
	})

	t.Run("finite everywhere", func(t *testing.T) {
		for lat := -90.0; lat <= 90; lat += 15 {
			for lon := -180.0; lon <= 180; lon += 15 {
				_, _, hae := MSLToHAE(lat, lon, 100)
				assert.False(t, math.IsNaN(hae) || math.IsInf(hae, 0), "lat=%v lon=%v", lat, lon)
			}
		}
	})
}

func TestGeoidSeparation(t *testing.T) {
	t.Run("exact grid nodes", func(t *testing.T) {
		// equator, prime meridian sits on a node
		assert.InDelta(t, -25, GeoidSeparation(0, 0), 1e-9)
		// south pole row is uniform
		assert.InDelta(t, -30, GeoidSeparation(-90, 77), 1e-9)
		// north pole row is uniform
		assert.InDelta(t, 15, GeoidSeparation(90, -33), 1e-9)
	})

	t.Run("interpolated values bounded by neighbours", func(t *testing.T) {
		// between nodes the result stays within the grid's overall range
		for lat := -89.0; lat <= 89; lat += 7 {
			for lon := -179.0; lon <= 179; lon += 11 {
				n := GeoidSeparation(lat, lon)
				assert.GreaterOrEqual(t, n, -100.0)
				assert.LessOrEqual(t, n, 70.0)
			}
		}
	})

	t.Run("longitude wraps", func(t *testing.T) {
		assert.InDelta(t, GeoidSeparation(42, -180), GeoidSeparation(42, 180), 1e-9)
		assert.InDelta(t, GeoidSeparation(42, 10), GeoidSeparation(42, 370), 1e-9)
	})

	t.Run("latitude clamped at poles", func(t *testing.T) {
		assert.InDelta(t, GeoidSeparation(90, 0), GeoidSeparation(95, 0), 1e-9)
		assert.InDelta(t, GeoidSeparation(-90, 0), GeoidSeparation(-95, 0), 1e-9)
	})
}
