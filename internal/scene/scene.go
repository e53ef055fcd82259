// internal/scene/scene.go
package scene

import (
	"errors"

	"github.com/ecoscope/geosync/pkg/core"
)

// ErrUnknownHandle is returned for operations on a handle the scene does
// not hold.
var ErrUnknownHandle = errors.New("unknown scene handle")

// Handle identifies a spawned entity within a scene backend. It is an
// alias so backend packages can implement Scene without importing this one.
type Handle = uint64

// Scene is the interface the sync core produces to the rendering layer.
// Implementations must be safe for use from the single sync goroutine;
// they are never called concurrently.
type Scene interface {
	// Lifecycle
	Init() error
	Close() error

	// Spawn creates an entity from a template at a local position. The
	// observation travels with the spawn so the renderer can populate the
	// info surface later without another lookup.
	Spawn(template string, pos core.Position3D, obs core.Observation) (Handle, error)

	// Destroy releases an entity and its attached surfaces.
	Destroy(h Handle) error

	// Move repositions an entity in the local frame.
	Move(h Handle, pos core.Position3D) error

	// ShowInfo reveals the entity's info surface, populated from the
	// observation held since spawn time.
	ShowInfo(h Handle, obs core.Observation) error

	// HideInfo conceals the entity's info surface. Data is retained.
	HideInfo(h Handle) error
}
