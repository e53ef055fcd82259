package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ecoscope/geosync/internal/dispatcher"
	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/internal/logging"
	"github.com/ecoscope/geosync/internal/monitor"
	"github.com/ecoscope/geosync/internal/registry"
	"github.com/ecoscope/geosync/internal/scene/memory"
	"github.com/ecoscope/geosync/internal/viewport"
	"github.com/ecoscope/geosync/pkg/core"
)

type fixture struct {
	manager    *Manager
	dispatcher *dispatcher.Dispatcher
	oracle     *geo.MercatorOracle
	registry   *registry.Registry
	viewport   *viewport.State
	scene      *memory.Scene
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lm := logging.NewSlogManager()
	oracle := geo.NewMercatorOracle(nil)
	vp := viewport.New()
	sc := memory.New()
	reg := registry.New(registry.Dependencies{Oracle: oracle, Scene: sc}, registry.Options{})
	m := NewManager(Dependencies{Oracle: oracle, Registry: reg, Viewport: vp, LogManager: lm})

	d, err := dispatcher.New(logging.NewDispatcherLogger(lm.Logger()))
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	m.RegisterHandlers(d)
	return &fixture{manager: m, dispatcher: d, oracle: oracle, registry: reg, viewport: vp, scene: sc}
}

func (f *fixture) dispatch(t *testing.T, command string, args ...string) {
	t.Helper()
	if _, err := f.dispatcher.Dispatch(dispatcher.Event{Command: command, Args: args, Timestamp: time.Now()}); err != nil {
		t.Fatalf("dispatch %s: %v", command, err)
	}
}

// waitFor polls until cond holds; buffered handlers apply asynchronously.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHandleMapView(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")

	center, zoom, ok := f.viewport.MapView()
	if !ok {
		t.Fatal("expected map view recorded")
	}
	if center.Lat != 51.5 || center.Lng != -0.1 || zoom != 16 {
		t.Errorf("unexpected view %v zoom %v", center, zoom)
	}
	if f.oracle.Center() != center {
		t.Error("expected oracle anchored on the new center")
	}
}

func TestHandleMapView_BadArgs(t *testing.T) {
	f := newFixture(t)

	if _, err := f.dispatcher.Dispatch(dispatcher.Event{Command: ":MAP:VIEW:", Args: []string{"51.5,-0.1"}}); err == nil {
		t.Error("expected error for missing zoom")
	}
	if _, err := f.dispatcher.Dispatch(dispatcher.Event{Command: ":MAP:VIEW:", Args: []string{"not-a-coord", "16"}}); err == nil {
		t.Error("expected error for bad center")
	}
}

func TestHandleObserverMove_FeedsViewportAndProximity(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")
	f.registry.Reconcile([]core.Observation{{
		ID:         1,
		Coordinate: core.Coordinate{Lat: 51.5, Lng: -0.1},
		Taxon:      core.Taxon{CommonName: "Tawny Owl"},
	}})

	f.dispatch(t, ":OBSERVER:MOVE:", `"1,0,0"`, "player")

	waitFor(t, func() bool {
		pos, ok := f.viewport.Observer()
		return ok && pos.X == 1
	})
	waitFor(t, func() bool {
		h, _ := f.registry.Handle(1)
		e, ok := f.scene.Get(h)
		return ok && e.InfoVisible
	})
}

func TestHandleObserverMove_UnqualifiedIgnored(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")

	f.dispatch(t, ":OBSERVER:MOVE:", `"1,0,0"`, "drone")

	time.Sleep(50 * time.Millisecond)
	if _, ok := f.viewport.Observer(); ok {
		t.Error("report without observer capabilities must be ignored")
	}
}

func TestHandleFrame_MovesEntities(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")
	f.registry.Reconcile([]core.Observation{{
		ID:         1,
		Coordinate: core.Coordinate{Lat: 51.5, Lng: -0.1},
		Taxon:      core.Taxon{CommonName: "Tawny Owl"},
	}})
	h, _ := f.registry.Handle(1)
	before, _ := f.scene.Get(h)

	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.09"`, "16")
	f.dispatch(t, ":FRAME:")

	waitFor(t, func() bool {
		after, ok := f.scene.Get(h)
		return ok && after.Position != before.Position
	})
}

func TestHandleReset(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")
	f.registry.Reconcile([]core.Observation{{
		ID:         1,
		Coordinate: core.Coordinate{Lat: 51.5, Lng: -0.1},
		Taxon:      core.Taxon{CommonName: "Tawny Owl"},
	}})

	f.dispatch(t, ":RESET:")

	if f.registry.Count() != 0 || f.scene.Len() != 0 {
		t.Errorf("expected empty registry and scene after reset")
	}
	if _, _, _, _, fetched := f.viewport.LastQuery(); fetched {
		t.Error("expected fetch history cleared")
	}
	if _, _, ok := f.viewport.MapView(); !ok {
		t.Error("expected live map view retained across reset")
	}
}

// End-to-end: a reset followed by a monitor evaluation repopulates.
func TestReset_ThenMonitorRepopulates(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")

	fetcher := &stubFetcher{batch: []core.Observation{{
		ID:         2,
		Coordinate: core.Coordinate{Lat: 51.5, Lng: -0.1},
		Taxon:      core.Taxon{CommonName: "Red Deer"},
	}}}
	svc := monitor.NewService(monitor.Dependencies{
		Oracle:     f.oracle,
		Fetcher:    fetcher,
		Registry:   f.registry,
		Viewport:   f.viewport,
		LogManager: logging.NewSlogManager(),
	}, monitor.Options{})

	svc.Evaluate(context.Background(), time.Now())
	if f.registry.Count() != 1 {
		t.Fatalf("expected 1 entity, got %d", f.registry.Count())
	}

	f.dispatch(t, ":RESET:")
	svc.Evaluate(context.Background(), time.Now().Add(2*time.Second))
	if f.registry.Count() != 1 {
		t.Errorf("expected repopulation after reset, got %d", f.registry.Count())
	}
}

type sessionScene struct {
	*memory.Scene
	failures int
	sessions []string
}

func (s *sessionScene) StartSession(id string, _ core.Coordinate, _ float64) error {
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("renderer unavailable")
	}
	s.sessions = append(s.sessions, id)
	return nil
}

func TestHandleMapView_AnnouncesSessionOnce(t *testing.T) {
	f := newFixture(t)
	sc := &sessionScene{Scene: memory.New()}
	f.manager.deps.Scene = sc
	f.manager.deps.SessionID = "session-1"

	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")
	f.dispatch(t, ":MAP:VIEW:", `"51.6,-0.1"`, "16")

	if len(sc.sessions) != 1 || sc.sessions[0] != "session-1" {
		t.Errorf("expected one session announcement, got %v", sc.sessions)
	}
}

// A failed announcement must not be treated as started: the next view
// update retries it.
func TestHandleMapView_RetriesFailedAnnouncement(t *testing.T) {
	f := newFixture(t)
	sc := &sessionScene{Scene: memory.New(), failures: 1}
	f.manager.deps.Scene = sc
	f.manager.deps.SessionID = "session-1"

	f.dispatch(t, ":MAP:VIEW:", `"51.5,-0.1"`, "16")
	if len(sc.sessions) != 0 {
		t.Fatalf("expected no session after failed announcement, got %v", sc.sessions)
	}

	f.dispatch(t, ":MAP:VIEW:", `"51.6,-0.1"`, "16")
	if len(sc.sessions) != 1 || sc.sessions[0] != "session-1" {
		t.Errorf("expected retry to announce the session, got %v", sc.sessions)
	}
}

type stubFetcher struct {
	batch []core.Observation
}

func (s *stubFetcher) Fetch(context.Context, core.Region) ([]core.Observation, error) {
	return s.batch, nil
}
