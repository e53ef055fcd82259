package worker

import (
	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/internal/influx"
	"github.com/ecoscope/geosync/internal/logging"
	"github.com/ecoscope/geosync/internal/registry"
	"github.com/ecoscope/geosync/internal/scene"
	"github.com/ecoscope/geosync/internal/viewport"
	"github.com/ecoscope/geosync/pkg/core"
)

// SessionStarter is an optional interface scene backends implement when a
// remote renderer needs to be told which view a session is serving.
type SessionStarter interface {
	StartSession(sessionID string, center core.Coordinate, zoom float64) error
}

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	Oracle     *geo.MercatorOracle
	Registry   *registry.Registry
	Viewport   *viewport.State
	LogManager *logging.SlogManager
	// Scene may be nil; it is only consulted for session announcements.
	Scene scene.Scene
	// SessionID names this sync session toward the renderer.
	SessionID string
	// Influx may be nil when metrics are disabled.
	Influx *influx.Manager
}

// Manager owns the host-command handlers. Each handler parses its raw
// arguments and forwards to the sync core; the dispatcher provides the
// buffering and serialization.
type Manager struct {
	deps           Dependencies
	sessionStarted bool
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies) *Manager {
	return &Manager{deps: deps}
}
