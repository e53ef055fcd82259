package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ecoscope/geosync/pkg/core"
	"github.com/ecoscope/geosync/pkg/streaming"
)

// Config holds WebSocket scene backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Scene streams spawn/despawn/move/show/hide instructions over WebSocket
// to an out-of-process renderer.
type Scene struct {
	conn       *connection
	cfg        Config
	nextHandle atomic.Uint64
	handles    map[uint64]int64
}

// New creates a new WebSocket scene backend.
func New(cfg Config) *Scene {
	return &Scene{
		conn:    newConnection(slog.Default()),
		cfg:     cfg,
		handles: make(map[uint64]int64),
	}
}

// Init connects to the renderer.
func (s *Scene) Init() error {
	return s.conn.dial(s.cfg.URL, s.cfg.Secret)
}

// Close announces the end of the session and disconnects.
func (s *Scene) Close() error {
	final, _ := marshalEnvelope(streaming.TypeEndSession, struct{}{})
	return s.conn.close(final)
}

// Clear instructs the renderer to drop every spawned entity at once.
func (s *Scene) Clear() error {
	s.conn.mu.Lock()
	s.handles = make(map[uint64]int64)
	s.conn.mu.Unlock()
	return s.sendEnvelope(streaming.TypeClear, struct{}{})
}

// StartSession announces a new sync session and waits for the renderer ack.
// The message is cached for replay after a reconnect.
func (s *Scene) StartSession(sessionID string, center core.Coordinate, zoom float64) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{
		SessionID: sessionID,
		Center:    center,
		Zoom:      zoom,
	})
	if err != nil {
		return err
	}
	s.conn.mu.Lock()
	s.conn.cachedStartMsg = data
	s.conn.mu.Unlock()
	return s.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// Spawn instructs the renderer to create an entity.
func (s *Scene) Spawn(template string, pos core.Position3D, obs core.Observation) (uint64, error) {
	h := s.nextHandle.Add(1)
	err := s.sendEnvelope(streaming.TypeSpawn, streaming.SpawnPayload{
		EntityID:    obs.ID,
		Template:    template,
		Position:    pos,
		Observation: obs,
	})
	if err != nil {
		return 0, err
	}
	s.rememberEntity(h, obs.ID)
	return h, nil
}

// Destroy instructs the renderer to release an entity.
func (s *Scene) Destroy(h uint64) error {
	id, ok := s.entityID(h)
	if !ok {
		return fmt.Errorf("destroy handle %d: not found", h)
	}
	s.forgetEntity(h)
	return s.sendEnvelope(streaming.TypeDespawn, streaming.DespawnPayload{EntityID: id})
}

// Move repositions an entity in the local frame.
func (s *Scene) Move(h uint64, pos core.Position3D) error {
	id, ok := s.entityID(h)
	if !ok {
		return fmt.Errorf("move handle %d: not found", h)
	}
	return s.sendEnvelope(streaming.TypeMove, streaming.MovePayload{EntityID: id, Position: pos})
}

// ShowInfo reveals an entity's info surface.
func (s *Scene) ShowInfo(h uint64, obs core.Observation) error {
	id, ok := s.entityID(h)
	if !ok {
		return fmt.Errorf("show info handle %d: not found", h)
	}
	return s.sendEnvelope(streaming.TypeShowInfo, streaming.ShowInfoPayload{EntityID: id, Observation: obs})
}

// HideInfo conceals an entity's info surface.
func (s *Scene) HideInfo(h uint64) error {
	id, ok := s.entityID(h)
	if !ok {
		return fmt.Errorf("hide info handle %d: not found", h)
	}
	return s.sendEnvelope(streaming.TypeHideInfo, streaming.HideInfoPayload{EntityID: id})
}

// handle → entity id bookkeeping. Writes come from the single sync
// goroutine; a plain map behind the connection mutex is sufficient.
func (s *Scene) rememberEntity(h uint64, id int64) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[uint64]int64)
	}
	s.handles[h] = id
}

func (s *Scene) entityID(h uint64) (int64, bool) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	id, ok := s.handles[h]
	return id, ok
}

func (s *Scene) forgetEntity(h uint64) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	delete(s.handles, h)
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it to the
// write loop (fire-and-forget).
func (s *Scene) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	s.conn.send(data)
	return nil
}
