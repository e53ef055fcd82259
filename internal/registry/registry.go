package registry

import (
	"log/slog"
	"sync"

	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/internal/proximity"
	"github.com/ecoscope/geosync/internal/scene"
	"github.com/ecoscope/geosync/internal/tracker"
	"github.com/ecoscope/geosync/pkg/core"
)

// Registry owns the spawned-entity set. It is the only component that
// spawns or destroys entities; trackers and proximity triggers reference
// their own entity's state and never mutate the set.
type Registry struct {
	mu       sync.Mutex
	oracle   geo.Oracle
	scene    scene.Scene
	prober   tracker.SurfaceProber
	log      *slog.Logger
	prox     *proximity.Monitor
	template string
	offset   float64
	entities map[int64]*entity
}

type entity struct {
	handle  scene.Handle
	obs     core.Observation
	tracker *tracker.Tracker
	lastPos core.Position3D
}

// Dependencies carries the registry's collaborators.
type Dependencies struct {
	Oracle geo.Oracle
	Scene  scene.Scene
	// Prober refines spawn heights against scene geometry; may be nil.
	Prober tracker.SurfaceProber
	Logger *slog.Logger
}

// Options carries tunables; zero values select defaults.
type Options struct {
	Template       string
	VerticalOffset float64
	CaptureRadius  float64
	HideRadius     float64
}

// DefaultTemplate is the scene template used when none is configured.
const DefaultTemplate = "observation_marker"

// New creates an empty registry.
func New(deps Dependencies, opts Options) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	r := &Registry{
		oracle:   deps.Oracle,
		scene:    deps.Scene,
		prober:   deps.Prober,
		log:      deps.Logger,
		template: opts.Template,
		offset:   opts.VerticalOffset,
		entities: make(map[int64]*entity),
	}
	r.prox = proximity.NewMonitor(opts.CaptureRadius, opts.HideRadius, r)
	return r
}

// Result reports what a reconcile changed.
type Result struct {
	Spawned   []int64
	Destroyed []int64
	Retained  int
}

// Reconcile diffs a fetched batch against the current entity set. Records
// already spawned keep their entity untouched, records gone from the batch
// are destroyed, new records are spawned. Reconciling the same batch twice
// is a no-op.
func (r *Registry) Reconcile(batch []core.Observation) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := make(map[int64]core.Observation, len(batch))
	for _, obs := range batch {
		if !obs.Spawnable() {
			r.log.Debug("skipping unspawnable record", "id", obs.ID)
			continue
		}
		incoming[obs.ID] = obs
	}

	var res Result
	for id := range r.entities {
		if _, keep := incoming[id]; !keep {
			r.destroyLocked(id)
			res.Destroyed = append(res.Destroyed, id)
		}
	}
	for id, obs := range incoming {
		if _, exists := r.entities[id]; exists {
			res.Retained++
			continue
		}
		if r.spawnLocked(obs) {
			res.Spawned = append(res.Spawned, id)
		}
	}
	return res
}

func (r *Registry) spawnLocked(obs core.Observation) bool {
	tr := tracker.New(obs.Coordinate, r.offset, r.oracle, r.prober)
	pos := tr.Update()
	handle, err := r.scene.Spawn(r.template, pos, obs)
	if err != nil {
		r.log.Error("failed to spawn entity", "id", obs.ID, "error", err)
		return false
	}
	r.entities[obs.ID] = &entity{
		handle:  handle,
		obs:     obs,
		tracker: tr,
		lastPos: pos,
	}
	r.prox.Track(obs.ID, pos)
	return true
}

func (r *Registry) destroyLocked(id int64) {
	e := r.entities[id]
	r.prox.Forget(id)
	if err := r.scene.Destroy(e.handle); err != nil {
		r.log.Error("failed to destroy entity", "id", id, "error", err)
	}
	delete(r.entities, id)
}

// BulkClearer is an optional interface scene backends can implement to
// drop every entity in one instruction instead of per-entity destroys.
type BulkClearer interface {
	Clear() error
}

// Clear destroys every spawned entity.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bc, ok := r.scene.(BulkClearer); ok {
		for id := range r.entities {
			r.prox.Forget(id)
			delete(r.entities, id)
		}
		if err := bc.Clear(); err != nil {
			r.log.Error("failed to clear scene", "error", err)
		}
		return
	}
	for id := range r.entities {
		r.destroyLocked(id)
	}
}

// UpdatePositions re-derives every entity's local position from its
// geographic coordinate and moves the scene entity when it changed. Runs
// every frame; the local frame is not inertial, so cached positions go
// stale whenever the view anchor moves.
func (r *Registry) UpdatePositions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entities {
		pos := e.tracker.Update()
		if pos == e.lastPos {
			continue
		}
		if err := r.scene.Move(e.handle, pos); err != nil {
			r.log.Error("failed to move entity", "id", id, "error", err)
			continue
		}
		r.prox.UpdatePosition(id, pos)
		e.lastPos = pos
	}
}

// ObserverMoved forwards an observer transform report to the proximity
// monitor. Unqualified sources are dropped there.
func (r *Registry) ObserverMoved(src proximity.Source, pos core.Position3D) {
	r.prox.ObserverMoved(src, pos)
}

// NearEntered shows the entity's info surface from its cached record.
func (r *Registry) NearEntered(id int64) {
	r.mu.Lock()
	e, ok := r.entities[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := r.scene.ShowInfo(e.handle, e.obs); err != nil {
		r.log.Error("failed to show info surface", "id", id, "error", err)
	}
}

// NearExited hides the entity's info surface.
func (r *Registry) NearExited(id int64) {
	r.mu.Lock()
	e, ok := r.entities[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := r.scene.HideInfo(e.handle); err != nil {
		r.log.Error("failed to hide info surface", "id", id, "error", err)
	}
}

// ProximityState reports an entity's proximity state.
func (r *Registry) ProximityState(id int64) (proximity.State, bool) {
	return r.prox.State(id)
}

// Count reports the number of spawned entities.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}

// Handle looks up the scene handle for an entity id.
func (r *Registry) Handle(id int64) (scene.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return 0, false
	}
	return e.handle, true
}
