package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/internal/logging"
	"github.com/ecoscope/geosync/internal/registry"
	"github.com/ecoscope/geosync/internal/viewport"
	"github.com/ecoscope/geosync/pkg/core"
)

// Fetcher retrieves observation records covering a geographic region.
type Fetcher interface {
	Fetch(ctx context.Context, region core.Region) ([]core.Observation, error)
}

// Reconciler applies a fetched batch to the spawned-entity set.
type Reconciler interface {
	Reconcile(batch []core.Observation) registry.Result
	Count() int
}

// Recorder receives sync-cycle measurements. Implementations must not block.
type Recorder interface {
	RecordSyncCycle(fetchDuration time.Duration, batchSize, spawned, destroyed, entityCount int)
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Oracle     geo.Oracle
	Fetcher    Fetcher
	Registry   Reconciler
	Viewport   *viewport.State
	LogManager *logging.SlogManager
	// Metrics may be nil.
	Metrics Recorder
}

// Options carries the refetch tunables; zero values select defaults.
type Options struct {
	Cooldown          time.Duration
	TickInterval      time.Duration
	MovementThreshold float64
	CenterThreshold   float64
	ZoomThreshold     float64
	ReferenceZoom     float64
	BaseRadius        float64
	MinRadius         float64
	MaxRadius         float64
	FetchTimeout      time.Duration
}

// Defaults for the refetch policy.
const (
	DefaultCooldown          = time.Second
	DefaultTickInterval      = 250 * time.Millisecond
	DefaultMovementThreshold = 500
	DefaultCenterThreshold   = 250
	DefaultZoomThreshold     = 0.5
	DefaultReferenceZoom     = 16
	DefaultBaseRadius        = 2000
	DefaultMinRadius         = 200
	DefaultMaxRadius         = 20000
	DefaultFetchTimeout      = 30 * time.Second
)

func (o *Options) applyDefaults() {
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.MovementThreshold <= 0 {
		o.MovementThreshold = DefaultMovementThreshold
	}
	if o.CenterThreshold <= 0 {
		o.CenterThreshold = DefaultCenterThreshold
	}
	if o.ZoomThreshold <= 0 {
		o.ZoomThreshold = DefaultZoomThreshold
	}
	if o.ReferenceZoom <= 0 {
		o.ReferenceZoom = DefaultReferenceZoom
	}
	if o.BaseRadius <= 0 {
		o.BaseRadius = DefaultBaseRadius
	}
	if o.MinRadius <= 0 {
		o.MinRadius = DefaultMinRadius
	}
	if o.MaxRadius <= 0 {
		o.MaxRadius = DefaultMaxRadius
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
}

// Service watches map-state deltas and observer displacement and decides
// when a refetch is warranted. One goroutine evaluates on a fixed tick;
// fetch results are applied from that same goroutine, so the registry sees
// a single writer for fetch-driven mutations.
type Service struct {
	deps      Dependencies
	opts      Options
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		deps:     deps,
		opts:     opts,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the monitor loop is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting sync monitor goroutine", "function", "startSyncMonitor")

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(s.opts.TickInterval)
				s.Evaluate(context.Background(), time.Now())
			}
		}
	}()

	return nil
}

// Stop stops the monitor loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}

// Evaluate runs one decision cycle: check the refetch conditions and, when
// they hold, fetch and reconcile synchronously. Returns true when a fetch
// was applied.
func (s *Service) Evaluate(ctx context.Context, now time.Time) bool {
	vp := s.deps.Viewport
	logger := s.deps.LogManager.Logger()

	center, zoom, ok := vp.MapView()
	if !ok {
		return false
	}
	if !s.shouldFetch(center, zoom, now) {
		return false
	}
	if !vp.SetLoading(true) {
		// a fetch is already in flight
		return false
	}
	defer vp.SetLoading(false)

	// Failed attempts still stamp the cooldown so errors cannot hot-loop.
	vp.MarkCooldown(now)

	observerPos, hasObserver := vp.Observer()
	anchor := s.queryAnchor(center, observerPos, hasObserver)
	radius := s.searchRadius(zoom)

	region, err := geo.RegionAround(anchor, radius)
	if err != nil {
		logger.Error("Failed to build query region", "anchor", anchor, "radius", radius, "error", err)
		return false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	started := time.Now()
	batch, err := s.deps.Fetcher.Fetch(fetchCtx, region)
	fetchDuration := time.Since(started)
	if err != nil {
		logger.Error("Fetch failed, keeping current entity set", "error", err)
		return false
	}

	res := s.deps.Registry.Reconcile(batch)
	vp.RecordFetch(center, zoom, observerPos, now)

	logger.Info("Sync cycle applied",
		"records", len(batch),
		"spawned", len(res.Spawned),
		"destroyed", len(res.Destroyed),
		"retained", res.Retained,
		"radius", radius,
		"fetchMs", fetchDuration.Milliseconds(),
	)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSyncCycle(fetchDuration, len(batch), len(res.Spawned), len(res.Destroyed), s.deps.Registry.Count())
	}
	return true
}

// shouldFetch applies the delta thresholds and the cooldown.
func (s *Service) shouldFetch(center core.Coordinate, zoom float64, now time.Time) bool {
	vp := s.deps.Viewport

	if last := vp.LastTrigger(); !last.IsZero() && now.Sub(last) < s.opts.Cooldown {
		return false
	}

	lastCenter, lastZoom, lastObserverPos, _, fetched := vp.LastQuery()
	if !fetched {
		// initial populate
		return true
	}

	if s.centerDelta(center, lastCenter) > s.opts.CenterThreshold {
		return true
	}
	if abs(zoom-lastZoom) > s.opts.ZoomThreshold {
		return true
	}
	if pos, ok := vp.Observer(); ok {
		if pos.Distance(lastObserverPos) > s.opts.MovementThreshold {
			return true
		}
	}
	return false
}

// centerDelta measures map-center displacement in local units. Both centers
// are projected with the same anchor, so the delta is anchor-independent.
func (s *Service) centerDelta(current, last core.Coordinate) float64 {
	a, err := s.deps.Oracle.ToLocal(current, false)
	if err != nil {
		return 0
	}
	b, err := s.deps.Oracle.ToLocal(last, false)
	if err != nil {
		return 0
	}
	return a.DistanceXZ(b)
}

// queryAnchor prefers the observer's geographic position over the nominal
// map center. The observer, not the map widget, is what should stay
// populated with nearby data.
func (s *Service) queryAnchor(center core.Coordinate, observerPos core.Position3D, hasObserver bool) core.Coordinate {
	if !hasObserver {
		return center
	}
	c, err := s.deps.Oracle.ToGeo(observerPos)
	if err != nil {
		return center
	}
	return c
}

// searchRadius halves the base radius per zoom level above the reference,
// clamped so extreme zooms cannot request near-zero or unbounded areas.
func (s *Service) searchRadius(zoom float64) float64 {
	r := s.opts.BaseRadius / pow2(zoom-s.opts.ReferenceZoom)
	if r < s.opts.MinRadius {
		return s.opts.MinRadius
	}
	if r > s.opts.MaxRadius {
		return s.opts.MaxRadius
	}
	return r
}

func pow2(exp float64) float64 {
	return math.Pow(2, exp)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
