package proximity

import (
	"sync"

	"github.com/ecoscope/geosync/pkg/core"
)

// Source describes the capabilities of whatever reported an observer
// transform. Any single capability qualifies it as the observer; reports
// failing all three are ignored.
type Source struct {
	PlayerTagged     bool
	MotionController bool
	RigidBody        bool
}

// Qualifies reports whether the source counts as the observer.
func (s Source) Qualifies() bool {
	return s.PlayerTagged || s.MotionController || s.RigidBody
}

// Events receives proximity transitions. Implementations show or hide the
// entity's info surface; they must not call back into the Monitor.
type Events interface {
	NearEntered(id int64)
	NearExited(id int64)
}

// Monitor owns one Trigger per registered entity and steps them against
// observer movement. Candidate entities come from a spatial grid query, so
// a movement report costs O(entities near the observer) rather than a scan
// of the whole set. Entities already Near are stepped even when they fall
// outside the queried neighbourhood, otherwise a fast observer could leave
// a surface showing forever.
type Monitor struct {
	mu      sync.Mutex
	grid    *Grid
	events  Events
	entries map[int64]*entry
	near    map[int64]struct{}
	capture float64
	hide    float64
}

type entry struct {
	pos     core.Position3D
	trigger *Trigger
}

// NewMonitor creates a monitor with the given interaction radii. The grid
// cell size equals the hide radius so the 3x3 neighbourhood query covers
// every entity within interaction range.
func NewMonitor(captureRadius, hideRadius float64, events Events) *Monitor {
	t := NewTrigger(captureRadius, hideRadius)
	return &Monitor{
		grid:    NewGrid(t.hideRadius),
		events:  events,
		entries: make(map[int64]*entry),
		near:    make(map[int64]struct{}),
		capture: t.captureRadius,
		hide:    t.hideRadius,
	}
}

// Track registers a freshly spawned entity at pos with a new Idle trigger.
func (m *Monitor) Track(id int64, pos core.Position3D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; ok {
		return
	}
	m.entries[id] = &entry{pos: pos, trigger: NewTrigger(m.capture, m.hide)}
	m.grid.Insert(id, pos)
}

// Forget drops a destroyed entity. A Near state in flight is discarded
// without a closing transition; the backing surface is gone anyway.
func (m *Monitor) Forget(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return
	}
	m.grid.Remove(id, e.pos)
	delete(m.entries, id)
	delete(m.near, id)
}

// UpdatePosition moves an entity within the index after a frame update.
func (m *Monitor) UpdatePosition(id int64, pos core.Position3D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return
	}
	m.grid.Move(id, e.pos, pos)
	e.pos = pos
}

// State reports an entity's current proximity state.
func (m *Monitor) State(id int64) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return StateIdle, false
	}
	return e.trigger.State(), true
}

// Len reports the number of tracked entities.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ObserverMoved steps nearby triggers against a new observer position.
// Distances are measured on the XZ plane; elevation does not gate the
// info surface.
func (m *Monitor) ObserverMoved(src Source, pos core.Position3D) {
	if !src.Qualifies() {
		return
	}

	m.mu.Lock()
	var entered, exited []int64

	visited := make(map[int64]struct{})
	for _, id := range m.grid.Nearby(pos) {
		visited[id] = struct{}{}
		e := m.entries[id]
		switch e.trigger.Step(pos.DistanceXZ(e.pos)) {
		case TransitionEntered:
			m.near[id] = struct{}{}
			entered = append(entered, id)
		case TransitionExited:
			delete(m.near, id)
			exited = append(exited, id)
		}
	}

	// Near entities outside the neighbourhood are by construction past the
	// hide radius; step them so they exit.
	for id := range m.near {
		if _, ok := visited[id]; ok {
			continue
		}
		e := m.entries[id]
		if e.trigger.Step(pos.DistanceXZ(e.pos)) == TransitionExited {
			delete(m.near, id)
			exited = append(exited, id)
		}
	}
	m.mu.Unlock()

	if m.events == nil {
		return
	}
	for _, id := range entered {
		m.events.NearEntered(id)
	}
	for _, id := range exited {
		m.events.NearExited(id)
	}
}
