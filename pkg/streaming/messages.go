package streaming

import (
	"encoding/json"

	"github.com/ecoscope/geosync/pkg/core"
)

// Message type constants matching the scene streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeSpawn        = "spawn"
	TypeDespawn      = "despawn"
	TypeMove         = "move"
	TypeShowInfo     = "show_info"
	TypeHideInfo     = "hide_info"
	TypeClear        = "clear"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the renderer's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a new sync session to the renderer.
type StartSessionPayload struct {
	SessionID string          `json:"sessionId"`
	Center    core.Coordinate `json:"center"`
	Zoom      float64         `json:"zoom"`
}

// SpawnPayload instructs the renderer to create an entity.
type SpawnPayload struct {
	EntityID    int64            `json:"entityId"`
	Template    string           `json:"template"`
	Position    core.Position3D  `json:"position"`
	Observation core.Observation `json:"observation"`
}

// DespawnPayload instructs the renderer to destroy an entity.
type DespawnPayload struct {
	EntityID int64 `json:"entityId"`
}

// MovePayload repositions an existing entity in the local frame.
type MovePayload struct {
	EntityID int64           `json:"entityId"`
	Position core.Position3D `json:"position"`
}

// ShowInfoPayload makes an entity's info surface visible, populated
// from the observation held since spawn time.
type ShowInfoPayload struct {
	EntityID    int64            `json:"entityId"`
	Observation core.Observation `json:"observation"`
}

// HideInfoPayload hides an entity's info surface.
type HideInfoPayload struct {
	EntityID int64 `json:"entityId"`
}
