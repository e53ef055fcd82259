// internal/scene/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/ecoscope/geosync/pkg/core"
)

// Entity is a spawned entity held by the in-memory scene.
type Entity struct {
	Template    string
	Position    core.Position3D
	Observation core.Observation
	InfoVisible bool
}

// Scene keeps spawned entities in memory. It backs tests and in-process
// embedding where the host consumes entity state directly.
type Scene struct {
	mu         sync.RWMutex
	entities   map[uint64]*Entity
	nextHandle uint64
}

// New creates an empty in-memory scene.
func New() *Scene {
	return &Scene{entities: make(map[uint64]*Entity)}
}

// Init initializes the backend.
func (s *Scene) Init() error {
	return nil
}

// Close cleans up resources.
func (s *Scene) Close() error {
	return nil
}

// Spawn creates an entity and returns its handle.
func (s *Scene) Spawn(template string, pos core.Position3D, obs core.Observation) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	h := s.nextHandle
	s.entities[h] = &Entity{
		Template:    template,
		Position:    pos,
		Observation: obs,
	}
	return h, nil
}

// Destroy releases an entity.
func (s *Scene) Destroy(h uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[h]; !ok {
		return fmt.Errorf("destroy handle %d: not found", h)
	}
	delete(s.entities, h)
	return nil
}

// Move repositions an entity.
func (s *Scene) Move(h uint64, pos core.Position3D) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[h]
	if !ok {
		return fmt.Errorf("move handle %d: not found", h)
	}
	e.Position = pos
	return nil
}

// ShowInfo reveals an entity's info surface.
func (s *Scene) ShowInfo(h uint64, obs core.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[h]
	if !ok {
		return fmt.Errorf("show info handle %d: not found", h)
	}
	e.Observation = obs
	e.InfoVisible = true
	return nil
}

// HideInfo conceals an entity's info surface.
func (s *Scene) HideInfo(h uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[h]
	if !ok {
		return fmt.Errorf("hide info handle %d: not found", h)
	}
	e.InfoVisible = false
	return nil
}

// Get returns a copy of the entity for a handle.
func (s *Scene) Get(h uint64) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[h]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Len returns the number of live entities.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}
