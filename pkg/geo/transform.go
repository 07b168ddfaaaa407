// Package geo converts MSL-referenced positions into WGS84 ellipsoidal
// coordinates. The transform is pure and deterministic: latitude and longitude
// pass through unchanged and the height above ellipsoid is the MSL altitude
// plus the local geoid separation.
package geo

import "math"

// Grid spacing of the embedded geoid-separation model, degrees.
const gridStepDeg = 30.0

// geoidGrid holds the geoid separation N (metres, ellipsoid minus geoid) on a
// coarse 30-degree grid derived from EGM96. Rows run latitude -90..90, columns
// longitude -180..150. Values between nodes are bilinearly interpolated, which
// is plenty for CoT consumers given the 9999999.0 error bounds on the reports.
var geoidGrid = [7][12]float64{
	// lat -90
	{-30, -30, -30, -30, -30, -30, -30, -30, -30, -30, -30, -30},
	// lat -60
	{-15, -20, -25, -30, -35, -20, -10, -20, -40, -45, -35, -25},
	// lat -30
	{-5, -10, -20, -35, -5, -5, -20, -35, -50, -60, -40, -10},
	// lat 0
	{5, -5, -30, -40, -20, -10, -25, -30, -80, -100, -50, 40},
	// lat 30
	{0, -10, -40, -40, -30, -10, 30, 10, -40, -60, -10, 20},
	// lat 60
	{5, 0, -20, -20, 0, 40, 45, 20, 0, -10, 0, 5},
	// lat 90
	{15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15},
}

// GeoidSeparation returns the interpolated geoid separation N at the given
// position, in metres. HAE = MSL altitude + N.
func GeoidSeparation(lat, lon float64) float64 {
	lat = clamp(lat, -90, 90)
	lon = wrapLon(lon)

	// fractional grid coordinates
	fi := (lat + 90) / gridStepDeg
	fj := (lon + 180) / gridStepDeg

	i := int(math.Floor(fi))
	j := int(math.Floor(fj))
	if i >= len(geoidGrid)-1 {
		i = len(geoidGrid) - 2
	}
	di := fi - float64(i)
	dj := fj - float64(j)

	cols := len(geoidGrid[0])
	j0 := j % cols
	j1 := (j + 1) % cols // longitude wraps around the antimeridian

	n00 := geoidGrid[i][j0]
	n01 := geoidGrid[i][j1]
	n10 := geoidGrid[i+1][j0]
	n11 := geoidGrid[i+1][j1]

	return n00*(1-di)*(1-dj) + n01*(1-di)*dj + n10*di*(1-dj) + n11*di*dj
}

// MSLToHAE transforms an MSL-referenced position into WGS84 ellipsoidal
// coordinates. The argument and result order is latitude, longitude, height,
// matching the axis order of the underlying reference systems.
func MSLToHAE(lat, lon, altMSL float64) (latOut, lonOut, hae float64) {
	return lat, lon, altMSL + GeoidSeparation(lat, lon)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// wrapLon normalises a longitude into [-180, 180).
func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
