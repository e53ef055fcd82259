package viewport

import (
	"sync"
	"time"

	"github.com/ecoscope/geosync/pkg/core"
)

// State holds the shared synchronization anchor: where the last successful
// fetch was issued from, and the live observer/map view fed in by the host.
// It is an explicit dependency passed to the monitor and worker, not a
// process-wide singleton. All access is mutex-guarded.
type State struct {
	mu sync.RWMutex

	// anchor of the last successful fetch
	lastQueryCenter   core.Coordinate
	lastQueryZoom     float64
	lastObserverPos   core.Position3D
	lastFetchTime     time.Time
	hasFetched        bool

	// live inputs from the host
	observerPos    core.Position3D
	hasObserver    bool
	mapCenter      core.Coordinate
	mapZoom        float64
	hasMapView     bool

	loading bool
}

// New creates an empty viewport state.
func New() *State {
	return &State{}
}

// SetObserver records the observer's current local position.
func (s *State) SetObserver(pos core.Position3D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observerPos = pos
	s.hasObserver = true
}

// Observer returns the observer's last reported local position.
// ok is false when no observer has ever been reported; callers fall back
// to map-center-anchored queries.
func (s *State) Observer() (pos core.Position3D, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observerPos, s.hasObserver
}

// SetMapView records the current map center and zoom.
func (s *State) SetMapView(center core.Coordinate, zoom float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapCenter = center
	s.mapZoom = zoom
	s.hasMapView = true
}

// MapView returns the current map center and zoom. ok is false until the
// host reports a view.
func (s *State) MapView() (center core.Coordinate, zoom float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapCenter, s.mapZoom, s.hasMapView
}

// LastQuery returns the anchor of the last successful fetch. ok is false
// before the first fetch completes.
func (s *State) LastQuery() (center core.Coordinate, zoom float64, observerPos core.Position3D, at time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQueryCenter, s.lastQueryZoom, s.lastObserverPos, s.lastFetchTime, s.hasFetched
}

// RecordFetch stores the anchor of a successful fetch.
func (s *State) RecordFetch(center core.Coordinate, zoom float64, observerPos core.Position3D, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQueryCenter = center
	s.lastQueryZoom = zoom
	s.lastObserverPos = observerPos
	s.lastFetchTime = at
	s.hasFetched = true
}

// MarkCooldown stamps a trigger time without recording a successful fetch,
// so failed attempts still honor the cooldown interval.
func (s *State) MarkCooldown(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetchTime = at
}

// LastTrigger returns the time of the most recent trigger, successful or not.
func (s *State) LastTrigger() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetchTime
}

// SetLoading marks whether a fetch is in flight. Returns false when the
// requested transition to loading was already held, which callers use as
// the single-in-flight gate.
func (s *State) SetLoading(loading bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loading && s.loading {
		return false
	}
	s.loading = loading
	return true
}

// Loading reports whether a fetch is currently in flight.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Reset clears fetch history and loading state. Live observer and map view
// inputs are retained.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQueryCenter = core.Coordinate{}
	s.lastQueryZoom = 0
	s.lastObserverPos = core.Position3D{}
	s.lastFetchTime = time.Time{}
	s.hasFetched = false
	s.loading = false
}
