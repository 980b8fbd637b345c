// Package roommanager is the process-wide directory of rooms and
// sessions: admission, color/user-id assignment, activity routing, and
// idle-room reaping (spec §4.D).
package roommanager

import (
	"log"
	"sync"
	"time"

	"canvasroom/server/internal/oplog"
	"canvasroom/server/internal/room"
	"canvasroom/server/internal/session"
	"canvasroom/server/internal/userid"
)

// FailureReason enumerates admission failures surfaced over the join_room
// ack, per spec §6.
type FailureReason string

const (
	ReasonRoomFull      FailureReason = "room_full"
	ReasonAlreadyJoined FailureReason = "already_joined"
)

// JoinResult is the outcome of Join.
type JoinResult struct {
	OK           bool
	Reason       FailureReason
	UserID       string
	User         *session.Session
	RoomSnapshot oplog.Snapshot
}

// Store is the optional hook a future persistent backend satisfies so a
// lazily-created room can be rehydrated instead of starting empty. A nil
// Store (the default) keeps the manager purely in-memory, per spec §3.
type Store interface {
	Load(roomID string) (oplog.Snapshot, bool)
	Save(roomID string, snap oplog.Snapshot)
}

// Config bundles the admission/reaping constants from spec §6.
type Config struct {
	MaxUsersPerRoom int
	MaxOperations   int
	// EmptyRoomGrace is the post-leave grace period (60s) before a
	// just-emptied room's deletion is rechecked.
	EmptyRoomGrace time.Duration
	// EmptyRoomReap is the periodic reaper's stricter empty-room
	// threshold (5m, per §4.D).
	EmptyRoomReap  time.Duration
	IdleRoomReap   time.Duration
	ReaperInterval time.Duration
}

// DefaultConfig matches spec §6's defaults.
func DefaultConfig() Config {
	return Config{
		MaxUsersPerRoom: room.DefaultMaxUsers,
		MaxOperations:   oplog.DefaultMaxOperations,
		EmptyRoomGrace:  60 * time.Second,
		EmptyRoomReap:   5 * time.Minute,
		IdleRoomReap:    time.Hour,
		ReaperInterval:  5 * time.Minute,
	}
}

// Manager is the {rooms, sessions} directory of spec §3 (the color palette
// lives in internal/session and is applied per room), with the invariant that every session referenced in a room's membership is also
// in sessions and vice-versa.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	rooms    map[string]*room.Room
	sessions map[session.ConnHandle]*session.Session
	store    Store

	stopCh chan struct{}
}

// New creates a Manager. store may be nil.
func New(cfg Config, store Store) *Manager {
	return &Manager{
		cfg:      cfg,
		rooms:    make(map[string]*room.Room),
		sessions: make(map[session.ConnHandle]*session.Session),
		store:    store,
		stopCh:   make(chan struct{}),
	}
}

// getOrCreateRoomLocked returns the room, creating (and, if a Store is
// configured, rehydrating) it lazily on first join. Caller holds m.mu.
func (m *Manager) getOrCreateRoomLocked(roomID string) *room.Room {
	if r, ok := m.rooms[roomID]; ok {
		return r
	}
	r := room.New(roomID, m.cfg.MaxOperations, m.cfg.MaxUsersPerRoom)
	if m.store != nil {
		if snap, ok := m.store.Load(roomID); ok {
			if err := r.Log.Import(snap); err != nil {
				log.Printf("⚠️  failed to rehydrate room %s from store: %v", roomID, err)
			} else {
				log.Printf("📦 Rehydrated room %s from store (%d operations)", roomID, len(snap.Operations))
			}
		}
	}
	m.rooms[roomID] = r
	log.Printf("📝 Created new room: %s", roomID)
	return r
}

// Join admits conn (the per-connection identity, also stored as the
// session's Sender) into roomID, lazily creating the room, assigning a
// userId and (if absent) a whimsical display name, per spec §4.D.
func (m *Manager) Join(conn session.ConnHandle, roomID, displayName string) *JoinResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, already := m.sessions[conn]; already {
		return &JoinResult{OK: false, Reason: ReasonAlreadyJoined}
	}

	r := m.getOrCreateRoomLocked(roomID)

	if displayName == "" {
		displayName = userid.DisplayName()
	}
	sess := &session.Session{
		ID:          userid.Generate(),
		Conn:        conn,
		DisplayName: displayName,
		RoomID:      roomID,
		JoinedAt:    time.Now(),
	}
	sess.Touch(sess.JoinedAt)

	if err := r.AddMember(sess); err != nil {
		return &JoinResult{OK: false, Reason: ReasonRoomFull}
	}

	m.sessions[conn] = sess
	log.Printf("👋 User %s joined room %s", sess.ID, roomID)

	return &JoinResult{
		OK:           true,
		UserID:       sess.ID,
		User:         sess,
		RoomSnapshot: r.Log.Snapshot(),
	}
}

// Leave removes connHandle from both indices. If the room becomes empty,
// a deletion check is scheduled after the configured grace period; it
// deletes the room only if, at fire time, membership is still empty and
// activity age exceeds the grace period — so a new join before the timer
// fires simply makes the recheck fail, which is behaviorally equivalent to
// "cancelling" the pending delete without tracking a cancel token, per §3.
func (m *Manager) Leave(connHandle session.ConnHandle) (*session.Session, *room.Room) {
	m.mu.Lock()
	sess, ok := m.sessions[connHandle]
	if !ok {
		m.mu.Unlock()
		return nil, nil
	}
	delete(m.sessions, connHandle)
	r := m.rooms[sess.RoomID]
	m.mu.Unlock()

	if r == nil {
		return sess, nil
	}
	r.RemoveMember(sess.ID)
	log.Printf("👋 User %s left room %s", sess.ID, sess.RoomID)

	if r.IsEmpty() {
		roomID := sess.RoomID
		grace := m.cfg.EmptyRoomGrace
		time.AfterFunc(grace, func() {
			m.maybeDeleteEmptyRoom(roomID, grace)
		})
	}

	return sess, r
}

func (m *Manager) maybeDeleteEmptyRoom(roomID string, grace time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return
	}
	if !r.IsEmpty() {
		return
	}
	if r.IdleSince() < grace {
		return
	}
	m.persistLocked(r)
	delete(m.rooms, roomID)
	log.Printf("🗑️  Removed empty room: %s", roomID)
}

// Touch bumps both the session's and its room's activity timestamps.
func (m *Manager) Touch(connHandle session.ConnHandle) {
	m.mu.Lock()
	sess, ok := m.sessions[connHandle]
	var r *room.Room
	if ok {
		r = m.rooms[sess.RoomID]
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	sess.Touch(time.Now())
	if r != nil {
		r.Touch()
	}
}

// Session looks up the session bound to connHandle, if any.
func (m *Manager) Session(connHandle session.ConnHandle) *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[connHandle]
}

// Room looks up a room by id, if it currently exists.
func (m *Manager) Room(roomID string) *room.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[roomID]
}

// BroadcastToRoom fans payload out to roomID's membership, if it exists.
// A straggling broadcast against an already-reaped room is a silent
// no-op, per §4.D's invariant.
func (m *Manager) BroadcastToRoom(roomID string, payload []byte, excludeUserID string, critical bool) {
	r := m.Room(roomID)
	if r == nil {
		log.Printf("❌ Attempted to broadcast to non-existent room: %s", roomID)
		return
	}
	r.Broadcast(payload, excludeUserID, critical)
}

// BroadcastToAll fans payload out to every room's membership.
func (m *Manager) BroadcastToAll(payload []byte, critical bool) {
	m.mu.Lock()
	rooms := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	for _, r := range rooms {
		r.Broadcast(payload, "", critical)
	}
}

// Stats reports process-wide counts, surfaced at GET /stats (§6).
func (m *Manager) Stats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	rooms := make(map[string]interface{}, len(m.rooms))
	for id, r := range m.rooms {
		rooms[id] = map[string]interface{}{
			"members":       r.MemberCount(),
			"operations":    r.Log.Len(),
			"idleSeconds":   r.IdleSince().Seconds(),
		}
	}
	return map[string]interface{}{
		"roomCount":    len(m.rooms),
		"sessionCount": len(m.sessions),
		"rooms":        rooms,
	}
}

// persistLocked saves the room's snapshot to the store, if configured.
// Caller holds m.mu.
func (m *Manager) persistLocked(r *room.Room) {
	if m.store == nil {
		return
	}
	m.store.Save(r.ID, r.Log.Snapshot())
}

// StartReaper launches the periodic sweep of §4.D: every ReaperInterval,
// delete any room empty for >= EmptyRoomReap (the 5-minute empty-room
// rule) or idle (by LastActivity) for >= IdleRoomReap, regardless of
// membership. Runs until Stop is called.
func (m *Manager) StartReaper() {
	ticker := time.NewTicker(m.cfg.ReaperInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.rooms {
		idle := r.IdleSince()
		switch {
		case r.IsEmpty() && idle >= m.cfg.EmptyRoomReap:
			m.persistLocked(r)
			delete(m.rooms, id)
			log.Printf("🗑️  Reaped empty room: %s", id)
		case idle >= m.cfg.IdleRoomReap:
			// Stale-session sweep: even an inhabited room is reaped if it
			// has seen no activity for the idle threshold, per §4.D.
			m.persistLocked(r)
			for _, mem := range r.MemberSnapshot() {
				delete(m.sessions, mem.Conn)
			}
			delete(m.rooms, id)
			log.Printf("🗑️  Reaped stale room: %s", id)
		}
	}
}

// Stop halts the reaper goroutine.
func (m *Manager) Stop() {
	close(m.stopCh)
}
