package tracker

import (
	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/pkg/core"
)

// SurfaceProber refines an entity's height by probing downward from well
// above the nominal position to the nearest solid surface. ok is false when
// nothing was hit.
type SurfaceProber interface {
	Probe(pos core.Position3D) (height float64, ok bool)
}

// Tracker re-derives one entity's local position from its fixed geographic
// coordinate. The local frame shifts whenever the map view anchor moves, so
// a cached local position goes stale; Update must run every frame.
type Tracker struct {
	coord          core.Coordinate
	verticalOffset float64
	oracle         geo.Oracle
	prober         SurfaceProber

	lastKnown    core.Position3D
	hasLastKnown bool
}

// New creates a tracker for a fixed geographic coordinate. prober may be
// nil to disable surface refinement.
func New(coord core.Coordinate, verticalOffset float64, oracle geo.Oracle, prober SurfaceProber) *Tracker {
	return &Tracker{
		coord:          coord,
		verticalOffset: verticalOffset,
		oracle:         oracle,
		prober:         prober,
	}
}

// Coordinate returns the invariant geographic coordinate being tracked.
func (t *Tracker) Coordinate() core.Coordinate {
	return t.coord
}

// Update recomputes the entity's local position for the current frame.
// When the oracle cannot convert (no view yet, view torn down) the last
// known position is returned; an entity is never lost to a conversion gap.
func (t *Tracker) Update() core.Position3D {
	pos, err := t.oracle.ToLocal(t.coord, true)
	if err != nil {
		return t.lastKnown
	}

	if t.prober != nil {
		if h, ok := t.prober.Probe(pos); ok {
			pos.Y = h
		}
		// Probe miss falls through to the oracle-reported height.
	}
	pos.Y += t.verticalOffset

	t.lastKnown = pos
	t.hasLastKnown = true
	return pos
}

// LastKnown returns the most recent successfully derived position.
func (t *Tracker) LastKnown() (core.Position3D, bool) {
	return t.lastKnown, t.hasLastKnown
}
