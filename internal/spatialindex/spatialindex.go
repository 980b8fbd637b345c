// Package spatialindex maintains a per-room bounding-box index over stroke
// operations so large rooms can be queried by viewport instead of shipping
// the entire operation log, supplementing spec §4.B. Grounded on the
// teacher's spatial.go, adapted from a single process-wide tree keyed by
// roomID into one tree per room (so a room's reap can drop its index in
// one call instead of a filtered scan).
package spatialindex

import (
	"fmt"
	"sync"

	"github.com/tidwall/rtree"
)

// BoundingBox is an axis-aligned rectangle in canvas coordinates.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

func (b BoundingBox) valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Entry is one indexed stroke: enough to answer a viewport query without
// round-tripping to the operation log.
type Entry struct {
	OperationID string
	UserID      string
	Color       string
	BBox        BoundingBox
	Active      bool
}

// Index is one room's spatial index over stroke operations.
type Index struct {
	mu   sync.RWMutex
	tree *rtree.RTree
}

// New creates an empty index.
func New() *Index {
	return &Index{tree: &rtree.RTree{}}
}

// Insert adds a stroke's bounding box to the index.
func (idx *Index) Insert(e Entry) error {
	if !e.BBox.valid() {
		return fmt.Errorf("invalid bounding box for operation %s: %+v", e.OperationID, e.BBox)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	min := [2]float64{e.BBox.X1, e.BBox.Y1}
	max := [2]float64{e.BBox.X2, e.BBox.Y2}
	idx.tree.Insert(min, max, &e)
	return nil
}

// SetActive flips the active flag of the indexed entry for operationID,
// used when undo/redo/clear changes an operation's tombstone state without
// changing its geometry. The scan stops at the first matching entry, so at
// most one entry per operation is updated.
func (idx *Index) SetActive(operationID string, active bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.Scan(func(min, max [2]float64, item interface{}) bool {
		e := item.(*Entry)
		if e.OperationID == operationID {
			e.Active = active
			return false
		}
		return true
	})
}

// Query returns every active entry whose bounding box intersects viewport.
func (idx *Index) Query(viewport BoundingBox) ([]Entry, error) {
	if !viewport.valid() {
		return nil, fmt.Errorf("invalid viewport bounds: %+v", viewport)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []Entry
	min := [2]float64{viewport.X1, viewport.Y1}
	max := [2]float64{viewport.X2, viewport.Y2}
	idx.tree.Search(min, max, func(min, max [2]float64, item interface{}) bool {
		e := item.(*Entry)
		if e.Active {
			out = append(out, *e)
		}
		return true
	})
	return out, nil
}

// Len reports the total number of entries, active or not.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	count := 0
	idx.tree.Scan(func(min, max [2]float64, item interface{}) bool {
		count++
		return true
	})
	return count
}
