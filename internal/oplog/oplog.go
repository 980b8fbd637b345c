// Package oplog implements the per-room operation log: an append-only,
// tombstoned event store with undo/redo, vector-clock causal merge, and
// snapshot/import hooks for a future persistent store. See spec §4.B.
package oplog

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"canvasroom/server/internal/vclock"
)

// State is the only mutable field on an Operation after append.
type State string

const (
	StateActive State = "active"
	StateUndone State = "undone"
)

// Type distinguishes the two wire-visible operation kinds, per spec §3.
const (
	TypeStroke = "stroke"
	TypeClear  = "clear"
)

// Point is a single canvas-local sample, per spec §3.
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
}

// Tool names a drawing tool.
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// Stroke is the payload of a `stroke` operation.
type Stroke struct {
	Points     []Point `json:"points"`
	Color      string  `json:"color"`
	Width      int     `json:"width"`
	Tool       Tool    `json:"tool"`
	IsComplete bool    `json:"isComplete"`
}

// ClearData is the small metadata record a `clear` operation carries.
type ClearData struct {
	ClearedCount int `json:"clearedCount"`
}

// Operation is an immutable-except-for-state event in a room's log.
type Operation struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Data        interface{} `json:"data"`
	UserID      string      `json:"userId"`
	State       State       `json:"state"`
	VectorClock vclock.Clock `json:"vectorClock"`
	Timestamp   int64       `json:"timestamp"`

	UndoneBy  string     `json:"undoneBy,omitempty"`
	UndoneAt  *time.Time `json:"undoneAt,omitempty"`
	RedoneBy  string     `json:"redoneBy,omitempty"`
	RedoneAt  *time.Time `json:"redoneAt,omitempty"`
}

// timestamped adapts *Operation to vclock.Timestamped so the log can reuse
// vclock.SortEvents directly for causal resorting on merge (§4.A/§4.B)
// without exporting a confusingly-named method on Operation itself
// (Timestamp is already a field).
type timestamped struct{ op *Operation }

func (t timestamped) Clock() vclock.Clock { return t.op.VectorClock }
func (t timestamped) Timestamp() int64    { return t.op.Timestamp }

var (
	// ErrNotFound is returned by Undo/Redo when the operation id is unknown
	// in this room's log.
	ErrNotFound = errors.New("operation_not_found")
	// ErrWrongState is returned by Undo/Redo when the operation exists but
	// is not in the state the transition requires.
	ErrWrongState = errors.New("wrong_state")
	// ErrRoomMismatch is returned by Import when the snapshot's RoomID does
	// not match the log being restored into.
	ErrRoomMismatch = errors.New("room_id_mismatch")
)

// DefaultMaxOperations is the default cap on log size, per spec §3/§6.
const DefaultMaxOperations = 1000

// Log is the append-only, tombstoned operation log for one room. Not safe
// for concurrent use by itself — callers (internal/room) serialize access
// through the room's single-writer discipline, per spec §5; the internal
// mutex here only guards against accidental reentrant misuse and cheap
// concurrent reads from the HTTP side channels (§6 /api/viewport, /stats).
type Log struct {
	mu            sync.RWMutex
	roomID        string
	clock         vclock.Clock
	ops           []*Operation
	index         map[string]int // operation id -> index into ops
	maxOperations int
	createdAt     time.Time
}

// New creates an empty log for roomID.
func New(roomID string, maxOperations int) *Log {
	if maxOperations <= 0 {
		maxOperations = DefaultMaxOperations
	}
	return &Log{
		roomID:        roomID,
		clock:         vclock.Clock{},
		index:         make(map[string]int),
		maxOperations: maxOperations,
		createdAt:     time.Now(),
	}
}

// nextID mints an id of the form userId_timestampMillis_nonce, per §3. The
// nonce is opaque; nothing in this package (or the dispatcher) ever parses
// an id's structure, per §9.
func nextID(userID string, millis int64) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%d_%s", userID, millis, hex.EncodeToString(b))
}

// Append increments the room's vector clock for userID, stamps the new op
// with that snapshot and the current wall time, appends it, and trims the
// log to maxOperations from the front. Append never fails except on
// malformed inputs, per §7.
func (l *Log) Append(userID, opType string, data interface{}) *Operation {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	snap := l.clock.Increment(userID)
	op := &Operation{
		ID:          nextID(userID, now.UnixMilli()),
		Type:        opType,
		Data:        data,
		UserID:      userID,
		State:       StateActive,
		VectorClock: snap,
		Timestamp:   now.UnixMilli(),
	}
	l.appendUnlocked(op)
	l.trimUnlocked()
	return op
}

func (l *Log) appendUnlocked(op *Operation) {
	l.ops = append(l.ops, op)
	l.index[op.ID] = len(l.ops) - 1
}

// trimUnlocked drops from the front until len(ops) <= maxOperations. This
// can remove still-undone ops, rendering them unredoable — a documented
// contract rather than an attempt to preserve undone ops specially, per §9.
func (l *Log) trimUnlocked() {
	if len(l.ops) <= l.maxOperations {
		return
	}
	drop := len(l.ops) - l.maxOperations
	for _, op := range l.ops[:drop] {
		delete(l.index, op.ID)
	}
	l.ops = l.ops[drop:]
	for i, op := range l.ops {
		l.index[op.ID] = i
	}
}

// Undo flips operationID from active to undone. Fails with ErrNotFound or
// ErrWrongState(already undone); both are silent no-ops to the dispatcher
// per §7 — concurrent duplicate undos must be idempotent.
func (l *Log) Undo(operationID, actingUserID string) (*Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.index[operationID]
	if !ok {
		return nil, ErrNotFound
	}
	op := l.ops[idx]
	if op.State != StateActive {
		return nil, ErrWrongState
	}
	now := time.Now()
	op.State = StateUndone
	op.UndoneBy = actingUserID
	op.UndoneAt = &now
	return op, nil
}

// Redo is the symmetric transition, undone -> active.
func (l *Log) Redo(operationID, actingUserID string) (*Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.index[operationID]
	if !ok {
		return nil, ErrNotFound
	}
	op := l.ops[idx]
	if op.State != StateUndone {
		return nil, ErrWrongState
	}
	now := time.Now()
	op.State = StateActive
	op.RedoneBy = actingUserID
	op.RedoneAt = &now
	return op, nil
}

// Clear appends a new `clear` op, then flips every previously-active op to
// undone (all attributed to actingUserID). Clears are themselves
// undoable/redoable in the same scheme; redoing a clear does NOT restore
// the ops it flipped — that asymmetry is intentional, per §9.
func (l *Log) Clear(actingUserID string) *Operation {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	snap := l.clock.Increment(actingUserID)
	clearOp := &Operation{
		ID:          nextID(actingUserID, now.UnixMilli()),
		Type:        TypeClear,
		Data:        ClearData{},
		UserID:      actingUserID,
		State:       StateActive,
		VectorClock: snap,
		Timestamp:   now.UnixMilli(),
	}
	l.appendUnlocked(clearOp)

	cleared := 0
	for _, op := range l.ops {
		if op == clearOp {
			continue
		}
		if op.State == StateActive {
			op.State = StateUndone
			op.UndoneBy = actingUserID
			op.UndoneAt = &now
			cleared++
		}
	}
	if cd, ok := clearOp.Data.(ClearData); ok {
		cd.ClearedCount = cleared
		clearOp.Data = cd
	}

	l.trimUnlocked()
	return clearOp
}

// LastActive scans backward and returns the newest active op, used when a
// client sends undo without an explicit id. This resolves globally (any
// author), not per-user — a deliberate design choice, per §9.
func (l *Log) LastActive() *Operation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.ops) - 1; i >= 0; i-- {
		if l.ops[i].State == StateActive {
			return l.ops[i]
		}
	}
	return nil
}

// LastUndone scans backward and returns the newest undone op.
func (l *Log) LastUndone() *Operation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.ops) - 1; i >= 0; i-- {
		if l.ops[i].State == StateUndone {
			return l.ops[i]
		}
	}
	return nil
}

// Merge deduplicates externalOps by id; for genuinely new ops it merges
// their vector clocks into the room clock and appends them, then resorts
// the entire log by causal order (vclock.SortEvents), trimming to cap.
// Idempotent by id, per §4.B/§8.
func (l *Log) Merge(externalOps []*Operation) (mergedCount, totalCount int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, op := range externalOps {
		if _, exists := l.index[op.ID]; exists {
			continue
		}
		l.clock.Merge(op.VectorClock)
		l.ops = append(l.ops, op)
		mergedCount++
	}

	if mergedCount > 0 {
		wrapped := make([]timestamped, len(l.ops))
		for i, op := range l.ops {
			wrapped[i] = timestamped{op: op}
		}
		vclock.SortEvents(wrapped)
		for i, w := range wrapped {
			l.ops[i] = w.op
		}
		l.index = make(map[string]int, len(l.ops))
		for i, op := range l.ops {
			l.index[op.ID] = i
		}
		l.trimUnlocked()
	}

	return mergedCount, len(l.ops)
}

// Snapshot is the ordered operation list and vector clock sent to a
// newly-joining client (sync_state) or exported for a future store.
type Snapshot struct {
	RoomID      string       `json:"roomId"`
	Operations  []*Operation `json:"operations"`
	VectorClock vclock.Clock `json:"vectorClock"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Snapshot returns the ordered operation list and vector clock.
func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ops := make([]*Operation, len(l.ops))
	copy(ops, l.ops)
	return Snapshot{
		RoomID:      l.roomID,
		Operations:  ops,
		VectorClock: l.clock.Snapshot(),
		CreatedAt:   l.createdAt,
	}
}

// Len reports the number of operations currently retained (post-trim).
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ops)
}

// Import restores a log from an exported Snapshot, asserting that the
// snapshot's RoomID matches. Used by internal/roommanager to rehydrate a
// lazily-created room from its optional Store (internal/persistence's
// Postgres-backed store).
func (l *Log) Import(s Snapshot) error {
	if s.RoomID != l.roomID {
		return ErrRoomMismatch
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ops = make([]*Operation, len(s.Operations))
	copy(l.ops, s.Operations)
	l.index = make(map[string]int, len(l.ops))
	for i, op := range l.ops {
		l.index[op.ID] = i
	}
	l.clock = s.VectorClock.Snapshot()
	if l.createdAt.IsZero() || s.CreatedAt.Before(l.createdAt) {
		l.createdAt = s.CreatedAt
	}
	l.trimUnlocked()
	return nil
}
