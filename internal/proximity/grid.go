package proximity

import (
	"math"

	"github.com/ecoscope/geosync/pkg/core"
)

// Grid is a cell-based spatial index over the local XZ plane. Cell size
// equals the hide radius so that a 3x3 neighbourhood of cells fully covers
// every entity an observer could interact with. Callers do fine-grained
// distance filtering on the returned ids.
type Grid struct {
	cellSize float64
	cells    map[cellKey]map[int64]struct{}
}

type cellKey struct {
	cx int32
	cz int32
}

// NewGrid creates an empty index. cellSize must be positive.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[int64]struct{}),
	}
}

func (g *Grid) key(pos core.Position3D) cellKey {
	return cellKey{
		cx: int32(math.Floor(pos.X / g.cellSize)),
		cz: int32(math.Floor(pos.Z / g.cellSize)),
	}
}

// Insert places an entity into the grid at pos.
func (g *Grid) Insert(id int64, pos core.Position3D) {
	k := g.key(pos)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[int64]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an entity out of the grid. pos must be the position it was
// last inserted or moved to.
func (g *Grid) Remove(id int64, pos core.Position3D) {
	k := g.key(pos)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *Grid) Move(id int64, oldPos, newPos core.Position3D) {
	oldK := g.key(oldPos)
	newK := g.key(newPos)
	if oldK == newK {
		return
	}
	g.Remove(id, oldPos)
	g.Insert(id, newPos)
}

// Nearby returns all entity ids in the 3x3 cell neighbourhood around pos.
func (g *Grid) Nearby(pos core.Position3D) []int64 {
	center := g.key(pos)
	var result []int64
	for dx := int32(-1); dx <= 1; dx++ {
		for dz := int32(-1); dz <= 1; dz++ {
			k := cellKey{cx: center.cx + dx, cz: center.cz + dz}
			for id := range g.cells[k] {
				result = append(result, id)
			}
		}
	}
	return result
}

// Len reports the number of indexed entities.
func (g *Grid) Len() int {
	n := 0
	for _, cell := range g.cells {
		n += len(cell)
	}
	return n
}
