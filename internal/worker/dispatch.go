package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecoscope/geosync/internal/dispatcher"
	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/internal/influx"
	"github.com/ecoscope/geosync/internal/proximity"
	"github.com/ecoscope/geosync/internal/util"
	"github.com/ecoscope/geosync/pkg/core"
)

// RegisterHandlers registers all host-command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Map view changes re-anchor the local frame - sync so the next frame
	// update already sees the new anchor.
	d.Register(":MAP:VIEW:", m.handleMapView, dispatcher.Logged())

	// High-volume per-tick updates - buffered
	d.Register(":OBSERVER:MOVE:", m.handleObserverMove, dispatcher.Buffered(5000), dispatcher.Logged())
	d.Register(":FRAME:", m.handleFrame, dispatcher.Buffered(100), dispatcher.Logged())

	d.Register(":RESET:", m.handleReset, dispatcher.Logged())

	// Host-reported metrics - buffered
	d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
}

// handleMapView expects args: ["lat,lng", zoom].
func (m *Manager) handleMapView(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("map view expects 2 args, got %d", len(e.Args))
	}
	center, err := geo.ParseLatLng(util.TrimQuotes(e.Args[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse map center: %w", err)
	}
	zoom, err := util.ParseFloat(e.Args[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse zoom: %w", err)
	}

	m.deps.Oracle.SetView(center, zoom)
	m.deps.Viewport.SetMapView(center, zoom)

	// First view announces the session to a remote renderer. A failed
	// announcement is retried on the next view update.
	if !m.sessionStarted {
		if ss, ok := m.deps.Scene.(SessionStarter); ok {
			if err := ss.StartSession(m.deps.SessionID, center, zoom); err != nil {
				m.deps.LogManager.Logger().Error("Failed to start renderer session", "error", err)
			} else {
				m.sessionStarted = true
			}
		} else {
			m.sessionStarted = true
		}
	}
	return nil, nil
}

// handleObserverMove expects args: ["x,y,z", capability tokens...].
// A report whose source matches none of the observer capabilities is
// ignored without error.
func (m *Manager) handleObserverMove(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("observer move expects at least 1 arg")
	}
	src := parseSource(e.Args[1:])
	if !src.Qualifies() {
		return nil, nil
	}
	x, y, z, err := util.ParseVector3(e.Args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse observer position: %w", err)
	}
	pos := core.Position3D{X: x, Y: y, Z: z}

	m.deps.Viewport.SetObserver(pos)
	m.deps.Registry.ObserverMoved(src, pos)
	return nil, nil
}

// handleFrame re-derives every entity's local position for the new frame.
func (m *Manager) handleFrame(dispatcher.Event) (any, error) {
	m.deps.Registry.UpdatePositions()
	return nil, nil
}

// handleReset tears down all spawned entities and clears fetch history.
// Live observer and map view inputs survive so sync can resume immediately.
func (m *Manager) handleReset(dispatcher.Event) (any, error) {
	m.deps.Registry.Clear()
	m.deps.Viewport.Reset()
	m.deps.LogManager.Logger().Info("Sync state reset")
	return nil, nil
}

// handleMetric forwards a host-reported measurement to InfluxDB.
func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	if m.deps.Influx == nil {
		return nil, nil
	}
	bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric data: %w", err)
	}
	return nil, m.deps.Influx.WritePoint(context.Background(), bucket, point)
}

func parseSource(tokens []string) proximity.Source {
	var src proximity.Source
	for _, t := range tokens {
		switch strings.ToLower(strings.TrimSpace(util.TrimQuotes(t))) {
		case "player":
			src.PlayerTagged = true
		case "motion":
			src.MotionController = true
		case "rigidbody":
			src.RigidBody = true
		}
	}
	return src
}
