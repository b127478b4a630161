// Package geo provides the small amount of spherical and planar geometry the
// analysis pipeline needs: great-circle distance between fixes, a local
// equirectangular projection, cumulative path distance, and the strict
// 2D segment-crossing test used for lap detection.
package geo

import "math"

// EarthRadiusM is the mean Earth radius in meters.
const EarthRadiusM = 6371000.0

// Point is a WGS 84 position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// XY is a position on the local tangent plane, in meters east (X) and
// north (Y) of the projection origin.
type XY struct {
	X float64
	Y float64
}

// DistanceM returns the great-circle distance between two fixes in meters
// (haversine formula).
func DistanceM(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BearingDeg returns the initial bearing from a to b in degrees [0,360).
func BearingDeg(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Centroid returns the arithmetic mean position of the given fixes.
// Adequate for the sub-10 km extents of a race track.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var lat, lon float64
	for _, p := range pts {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(pts))
	return Point{Lat: lat / n, Lon: lon / n}
}

// Projector maps fixes onto a local tangent plane with an equirectangular
// approximation centered on its origin. Only distances between points
// projected by the same Projector are meaningful.
type Projector struct {
	origin Point
	cosLat float64
}

// NewProjector returns a projector centered on the given origin.
func NewProjector(origin Point) *Projector {
	return &Projector{
		origin: origin,
		cosLat: math.Cos(origin.Lat * math.Pi / 180),
	}
}

// Project maps a fix to plane coordinates in meters relative to the origin.
func (p *Projector) Project(pt Point) XY {
	return XY{
		X: (pt.Lon - p.origin.Lon) * math.Pi / 180 * p.cosLat * EarthRadiusM,
		Y: (pt.Lat - p.origin.Lat) * math.Pi / 180 * EarthRadiusM,
	}
}

// CumulativeDistance returns the running path length along the projected
// points: out[0] = 0 and out[i] = out[i-1] + |pts[i]-pts[i-1]|. The result is
// non-decreasing by construction.
func CumulativeDistance(pts []XY) []float64 {
	out := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		dx := pts[i].X - pts[i-1].X
		dy := pts[i].Y - pts[i-1].Y
		out[i] = out[i-1] + math.Hypot(dx, dy)
	}
	return out
}

// orient returns the signed area of the triangle a,b,c: positive when c lies
// left of a→b, negative when right, zero when collinear.
func orient(a, b, c XY) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// SegmentsCross reports whether segment p1→p2 strictly crosses segment q1→q2.
// On a crossing it also returns the parameter t in (0,1) locating the
// intersection along p1→p2, which callers use to interpolate a crossing time
// between samples. Collinear touches and shared endpoints are rejected: both
// orientation pairs must strictly disagree in sign.
func SegmentsCross(p1, p2, q1, q2 XY) (float64, bool) {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		// d1 and d2 are proportional to the signed distances of p1 and p2
		// from the q line, so the crossing divides p1→p2 at d1/(d1-d2).
		return d1 / (d1 - d2), true
	}
	return 0, false
}
