package geo

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/ecoscope/geosync/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// The local scene frame is an anchored Web Mercator (EPSG:3857) plane:
// X grows east, Z grows north, Y is elevation. The anchor follows the map
// view, so the frame is NOT inertial — a fixed geographic point lands on a
// different local position after the anchor moves. Consumers that care about
// staying glued to a geographic point must re-derive every frame.

// ErrInvalidCoordinates is returned when coordinates cannot be parsed.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrNoView is returned when the oracle has no map view configured yet.
var ErrNoView = errors.New("no map view configured")

// Oracle converts between geographic coordinates and the local scene frame.
type Oracle interface {
	// ToLocal projects a geographic coordinate into the local frame.
	// When withTerrain is true the Y component carries terrain height;
	// terrain being unavailable degrades to Y=0, never an error.
	ToLocal(c core.Coordinate, withTerrain bool) (core.Position3D, error)

	// ToGeo inverts ToLocal for the current view (terrain ignored).
	ToGeo(p core.Position3D) (core.Coordinate, error)

	// Center returns the geographic center of the current view.
	Center() core.Coordinate

	// Zoom returns the current view zoom level.
	Zoom() float64
}

// HeightProvider supplies terrain elevation for a geographic coordinate.
// ok is false when no height is known there.
type HeightProvider interface {
	HeightAt(c core.Coordinate) (height float64, ok bool)
}

// MercatorOracle is an Oracle over an anchored EPSG:3857 plane.
// SetView moves the anchor, shifting the whole local frame.
type MercatorOracle struct {
	mu      sync.RWMutex
	center  core.Coordinate
	zoom    float64
	anchorX float64
	anchorY float64
	hasView bool
	heights HeightProvider
}

// NewMercatorOracle creates an oracle with no view configured.
// heights may be nil, in which case all terrain queries degrade to 0.
func NewMercatorOracle(heights HeightProvider) *MercatorOracle {
	return &MercatorOracle{heights: heights}
}

// SetView moves the local frame anchor to a new map center and zoom.
func (o *MercatorOracle) SetView(center core.Coordinate, zoom float64) {
	x, y := project3857(center)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.center = center
	o.zoom = zoom
	o.anchorX = x
	o.anchorY = y
	o.hasView = true
}

// ToLocal projects a geographic coordinate into the local frame.
func (o *MercatorOracle) ToLocal(c core.Coordinate, withTerrain bool) (core.Position3D, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.hasView {
		return core.Position3D{}, ErrNoView
	}
	x, y := project3857(c)
	pos := core.Position3D{X: x - o.anchorX, Z: y - o.anchorY}
	if withTerrain && o.heights != nil {
		if h, ok := o.heights.HeightAt(c); ok {
			pos.Y = h
		}
	}
	return pos, nil
}

// ToGeo inverts ToLocal for the current view.
func (o *MercatorOracle) ToGeo(p core.Position3D) (core.Coordinate, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.hasView {
		return core.Coordinate{}, ErrNoView
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	lng, lat, _ := f(p.X+o.anchorX, p.Z+o.anchorY, 0)
	return core.Coordinate{Lat: lat, Lng: lng}, nil
}

// Center returns the geographic center of the current view.
func (o *MercatorOracle) Center() core.Coordinate {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.center
}

// Zoom returns the current view zoom level.
func (o *MercatorOracle) Zoom() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.zoom
}

// project3857 converts a WGS84 coordinate to Web Mercator meters.
func project3857(c core.Coordinate) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(c.Lng, c.Lat, 0)
	return x, y
}

// Point3857 creates a Web Mercator point geometry from a geographic coordinate.
func Point3857(c core.Coordinate) geom.Point {
	x, y := project3857(c)
	return geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
}

// ParseLatLng parses the remote API's "lat,lng" location string.
func ParseLatLng(location string) (core.Coordinate, error) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	return core.Coordinate{Lat: lat, Lng: lng}, nil
}

// RegionAround builds the rectangular geographic query region covering
// radiusMeters around center. The expansion happens on the 3857 plane and
// the corners are projected back, then clamped to WGS84 bounds.
func RegionAround(center core.Coordinate, radiusMeters float64) (core.Region, error) {
	if radiusMeters <= 0 {
		return core.Region{}, ErrInvalidCoordinates
	}
	cp := Point3857(center)
	coords, ok := cp.Coordinates()
	if !ok {
		return core.Region{}, ErrInvalidCoordinates
	}
	inv := wgs84.EPSG().Transform(3857, 4326)
	west, south, _ := inv(coords.X-radiusMeters, coords.Y-radiusMeters, 0)
	east, north, _ := inv(coords.X+radiusMeters, coords.Y+radiusMeters, 0)
	r := core.Region{
		South: clamp(south, -90, 90),
		West:  clamp(west, -180, 180),
		North: clamp(north, -90, 90),
		East:  clamp(east, -180, 180),
	}
	if !r.Valid() {
		return core.Region{}, ErrInvalidCoordinates
	}
	return r, nil
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
