package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/ecoscope/geosync/pkg/core"
)

func TestParseLatLng_Valid(t *testing.T) {
	c, err := ParseLatLng("51.5074,-0.1278")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 51.5074 {
		t.Errorf("expected Lat=51.5074, got %f", c.Lat)
	}
	if c.Lng != -0.1278 {
		t.Errorf("expected Lng=-0.1278, got %f", c.Lng)
	}
}

func TestParseLatLng_WithSpaces(t *testing.T) {
	c, err := ParseLatLng("51.5, -0.12")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 51.5 || c.Lng != -0.12 {
		t.Errorf("unexpected coordinate: %+v", c)
	}
}

func TestParseLatLng_Empty(t *testing.T) {
	_, err := ParseLatLng("")

	if err == nil {
		t.Fatal("expected error for empty string")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestParseLatLng_TooFewComponents(t *testing.T) {
	_, err := ParseLatLng("51.5")

	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestParseLatLng_NonNumeric(t *testing.T) {
	_, err := ParseLatLng("abc,def")

	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestParseLatLng_OutOfRange(t *testing.T) {
	_, err := ParseLatLng("91.0,0.0")

	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for lat>90, got %v", err)
	}

	_, err = ParseLatLng("0.0,181.0")
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for lng>180, got %v", err)
	}
}

func TestMercatorOracle_NoView(t *testing.T) {
	o := NewMercatorOracle(nil)

	_, err := o.ToLocal(core.Coordinate{Lat: 51.5, Lng: -0.1}, false)
	if !errors.Is(err, ErrNoView) {
		t.Errorf("expected ErrNoView, got %v", err)
	}

	_, err = o.ToGeo(core.Position3D{})
	if !errors.Is(err, ErrNoView) {
		t.Errorf("expected ErrNoView, got %v", err)
	}
}

func TestMercatorOracle_CenterIsOrigin(t *testing.T) {
	o := NewMercatorOracle(nil)
	center := core.Coordinate{Lat: 51.5074, Lng: -0.1278}
	o.SetView(center, 16)

	pos, err := o.ToLocal(center, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(pos.X) > 1e-6 || math.Abs(pos.Z) > 1e-6 {
		t.Errorf("expected center at origin, got %+v", pos)
	}
}

func TestMercatorOracle_RoundTrip(t *testing.T) {
	o := NewMercatorOracle(nil)
	o.SetView(core.Coordinate{Lat: 51.5, Lng: -0.1}, 16)

	in := core.Coordinate{Lat: 51.5081, Lng: -0.0759}
	pos, err := o.ToLocal(in, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := o.ToGeo(pos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(out.Lat-in.Lat) > 1e-6 {
		t.Errorf("latitude round trip drifted: in=%f out=%f", in.Lat, out.Lat)
	}
	if math.Abs(out.Lng-in.Lng) > 1e-6 {
		t.Errorf("longitude round trip drifted: in=%f out=%f", in.Lng, out.Lng)
	}
}

func TestMercatorOracle_EastIsPositiveX(t *testing.T) {
	o := NewMercatorOracle(nil)
	o.SetView(core.Coordinate{Lat: 51.5, Lng: -0.1}, 16)

	pos, err := o.ToLocal(core.Coordinate{Lat: 51.5, Lng: -0.05}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.X <= 0 {
		t.Errorf("expected positive X for a point to the east, got %f", pos.X)
	}
	if math.Abs(pos.Z) > 1 {
		t.Errorf("expected near-zero Z at same latitude, got %f", pos.Z)
	}
}

func TestMercatorOracle_FrameShiftsWithView(t *testing.T) {
	o := NewMercatorOracle(nil)
	fixed := core.Coordinate{Lat: 51.5081, Lng: -0.0759}

	o.SetView(core.Coordinate{Lat: 51.5, Lng: -0.1}, 16)
	before, err := o.ToLocal(fixed, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o.SetView(core.Coordinate{Lat: 51.52, Lng: -0.08}, 16)
	after, err := o.ToLocal(fixed, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if before.X == after.X && before.Z == after.Z {
		t.Error("expected local position of a fixed coordinate to change when the view anchor moves")
	}
}

type fixedHeights struct {
	h float64
}

func (f fixedHeights) HeightAt(core.Coordinate) (float64, bool) {
	return f.h, true
}

func TestMercatorOracle_TerrainHeight(t *testing.T) {
	o := NewMercatorOracle(fixedHeights{h: 12.5})
	o.SetView(core.Coordinate{Lat: 51.5, Lng: -0.1}, 16)

	pos, err := o.ToLocal(core.Coordinate{Lat: 51.5, Lng: -0.1}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Y != 12.5 {
		t.Errorf("expected Y=12.5 from height provider, got %f", pos.Y)
	}

	flat, err := o.ToLocal(core.Coordinate{Lat: 51.5, Lng: -0.1}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flat.Y != 0 {
		t.Errorf("expected Y=0 without terrain, got %f", flat.Y)
	}
}

func TestMercatorOracle_NoHeightProviderDegradesToZero(t *testing.T) {
	o := NewMercatorOracle(nil)
	o.SetView(core.Coordinate{Lat: 51.5, Lng: -0.1}, 16)

	pos, err := o.ToLocal(core.Coordinate{Lat: 51.5, Lng: -0.1}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Y != 0 {
		t.Errorf("expected Y=0 with no height provider, got %f", pos.Y)
	}
}

func TestPoint3857_Origin(t *testing.T) {
	point := Point3857(core.Coordinate{Lat: 0, Lng: 0})

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != 0 {
		t.Errorf("expected X=0 at origin, got %f", coords.X)
	}
	if coords.Y != 0 {
		t.Errorf("expected Y=0 at origin, got %f", coords.Y)
	}
}

func TestRegionAround_ContainsCenter(t *testing.T) {
	center := core.Coordinate{Lat: 51.5, Lng: -0.1}
	r, err := RegionAround(center, 1000)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Valid() {
		t.Fatalf("expected valid region, got %+v", r)
	}
	if center.Lat <= r.South || center.Lat >= r.North {
		t.Errorf("center latitude outside region: %+v", r)
	}
	if center.Lng <= r.West || center.Lng >= r.East {
		t.Errorf("center longitude outside region: %+v", r)
	}
}

func TestRegionAround_LargerRadiusGrowsRegion(t *testing.T) {
	center := core.Coordinate{Lat: 51.5, Lng: -0.1}

	small, err := RegionAround(center, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	large, err := RegionAround(center, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if large.North-large.South <= small.North-small.South {
		t.Error("expected larger radius to span more latitude")
	}
	if large.East-large.West <= small.East-small.West {
		t.Error("expected larger radius to span more longitude")
	}
}

func TestRegionAround_ZeroRadius(t *testing.T) {
	_, err := RegionAround(core.Coordinate{Lat: 51.5, Lng: -0.1}, 0)

	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}
