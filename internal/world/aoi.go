package world

import "math"

// aoiGrid buckets online players by world and ground cell (x, z).
// The cell edge is the visibility radius, so the 3x3 block of cells around a
// position holds every player that can be visible from it. Callers still do
// the exact distance check. Guarded by State.mu.
type aoiGrid struct {
	size  float64
	cells map[cellKey]map[string]*PlayerEntry
}

type cellKey struct {
	worldID int
	cx      int
	cz      int
}

func newAOIGrid(radius float64) *aoiGrid {
	return &aoiGrid{
		size:  math.Max(radius, 1),
		cells: make(map[cellKey]map[string]*PlayerEntry),
	}
}

func (g *aoiGrid) key(worldID int, pos Position) cellKey {
	return cellKey{
		worldID: worldID,
		cx:      int(math.Floor(pos.X / g.size)),
		cz:      int(math.Floor(pos.Z / g.size)),
	}
}

func (g *aoiGrid) add(e *PlayerEntry, snap PlayerSnapshot) {
	k := g.key(snap.WorldID, snap.Position)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[string]*PlayerEntry)
		g.cells[k] = cell
	}
	cell[snap.Name] = e
}

func (g *aoiGrid) remove(snap PlayerSnapshot) {
	k := g.key(snap.WorldID, snap.Position)
	cell := g.cells[k]
	if cell == nil {
		return
	}
	delete(cell, snap.Name)
	if len(cell) == 0 {
		delete(g.cells, k)
	}
}

// move re-buckets a player whose snapshot changed from old to cur.
func (g *aoiGrid) move(e *PlayerEntry, old, cur PlayerSnapshot) {
	if g.key(old.WorldID, old.Position) == g.key(cur.WorldID, cur.Position) {
		return
	}
	g.remove(old)
	g.add(e, cur)
}

// nearby adds every entry in the 3x3 block around pos to out.
func (g *aoiGrid) nearby(worldID int, pos Position, out map[string]*PlayerEntry) {
	center := g.key(worldID, pos)
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			k := cellKey{worldID: worldID, cx: center.cx + dx, cz: center.cz + dz}
			for name, e := range g.cells[k] {
				out[name] = e
			}
		}
	}
}

func (g *aoiGrid) len() int {
	n := 0
	for _, cell := range g.cells {
		n += len(cell)
	}
	return n
}
