// pkg/core/coordinate.go
package core

import "math"

// Coordinate is a geographic WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Position3D represents a position in the local scene frame without GIS dependencies.
type Position3D struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // elevation
	Z float64 `json:"z"` // northing
}

// Distance returns the straight-line distance to another local position.
func (p Position3D) Distance(other Position3D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DistanceXZ returns the horizontal (ground-plane) distance to another local position.
func (p Position3D) DistanceXZ(other Position3D) float64 {
	dx := p.X - other.X
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Region is a rectangular geographic query region.
type Region struct {
	South float64 `json:"swlat"`
	West  float64 `json:"swlng"`
	North float64 `json:"nelat"`
	East  float64 `json:"nelng"`
}

// Valid reports whether the region's corners are ordered and within WGS84 bounds.
func (r Region) Valid() bool {
	if r.South > r.North || r.West > r.East {
		return false
	}
	if r.South < -90 || r.North > 90 {
		return false
	}
	return r.West >= -180 && r.East <= 180
}
