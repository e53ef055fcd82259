// internal/scene/factory.go
package scene

import (
	"fmt"

	"github.com/ecoscope/geosync/internal/config"
	"github.com/ecoscope/geosync/internal/scene/memory"
	scenews "github.com/ecoscope/geosync/internal/scene/websocket"
)

// NewBackend creates a scene backend based on configuration.
func NewBackend(cfg config.SceneConfig) (Scene, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "websocket":
		return scenews.New(scenews.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}), nil
	default:
		return nil, fmt.Errorf("unknown scene backend: %s", cfg.Backend)
	}
}
