// Package geo holds the geometric primitives of the simulator: linear
// position interpolation within a timed segment and directional slicing
// of route polylines. All distance math is planar in degree space, an
// accepted approximation at urban scale.
package geo

import (
	"math"

	"tram-simulator/internal/timeutil"
)

// Point is a geographic coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PlanarDistance is the Euclidean distance between two points in degree
// space. Not geodesic; used only to rank nearby polyline vertices.
func PlanarDistance(a, b Point) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon)
}

// Interpolate returns the position reached at minute m while travelling
// linearly from start to end between startMin and endMin. A zero-duration
// segment returns start unchanged; otherwise progress is clamped to [0,1]
// and each coordinate is interpolated independently.
func Interpolate(start, end Point, startMin, endMin, m timeutil.Minutes) Point {
	if endMin == startMin {
		return start
	}
	progress := float64(m-startMin) / float64(endMin-startMin)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return Point{
		Lat: start.Lat + (end.Lat-start.Lat)*progress,
		Lon: start.Lon + (end.Lon-start.Lon)*progress,
	}
}

// ExtractSegment carves out the sub-path of polyline actually travelled
// between the vertices nearest to start and end. Forward slices are
// inclusive on both ends. Reverse slices run from the start vertex down to,
// but not including, the end vertex; consumers of the rendered output
// depend on that boundary, so it is kept as-is.
func ExtractSegment(start, end Point, polyline []Point) []Point {
	if len(polyline) == 0 {
		return nil
	}
	si := nearestIndex(start, polyline)
	ei := nearestIndex(end, polyline)
	if si <= ei {
		out := make([]Point, ei-si+1)
		copy(out, polyline[si:ei+1])
		return out
	}
	out := make([]Point, 0, si-ei)
	for i := si; i > ei; i-- {
		out = append(out, polyline[i])
	}
	return out
}

func nearestIndex(p Point, polyline []Point) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, v := range polyline {
		if d := PlanarDistance(p, v); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// Haversine is the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	const R = 6371000.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	y := math.Sin((b.Lon-a.Lon)*math.Pi/180.0) * math.Cos(b.Lat*math.Pi/180.0)
	x := math.Cos(a.Lat*math.Pi/180.0)*math.Sin(b.Lat*math.Pi/180.0) -
		math.Sin(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*math.Cos((b.Lon-a.Lon)*math.Pi/180.0)
	brng := math.Atan2(y, x) * 180.0 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}
