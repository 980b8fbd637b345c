// Package room implements the thin container binding one operation log to
// a membership, color assignment, and activity tracking (spec §4.C).
package room

import (
	"errors"
	"sort"
	"sync"
	"time"

	"canvasroom/server/internal/oplog"
	"canvasroom/server/internal/session"
	"canvasroom/server/internal/spatialindex"
)

// ErrRoomFull is returned by AddMember when membership is already at cap.
var ErrRoomFull = errors.New("room_full")

// DefaultMaxUsers is the default membership cap, per spec §3/§6.
const DefaultMaxUsers = 20

// Room owns one operation log plus its membership, color pool, and
// activity clock, per spec §3.
type Room struct {
	mu sync.Mutex

	ID           string
	Log          *oplog.Log
	Spatial      *spatialindex.Index
	CreatedAt    time.Time
	LastActivity time.Time

	maxUsers     int
	members      map[string]*session.Session // userID -> Session
	joinOrder    []string                    // userIDs in join order, for host reassignment
	hostUserID   string
	rotatingSeed int
}

// New creates an empty room with maxOperations on its log and maxUsers
// (pass 0 for the spec default) as its membership cap.
func New(id string, maxOperations, maxUsers int) *Room {
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	now := time.Now()
	return &Room{
		ID:           id,
		Log:          oplog.New(id, maxOperations),
		Spatial:      spatialindex.New(),
		CreatedAt:    now,
		LastActivity: now,
		maxUsers:     maxUsers,
		members:      make(map[string]*session.Session),
	}
}

// AddMember admits sess into the room, assigning it a color from the
// current membership's available palette (§4.C, §9: colors are derived
// from membership, never a separate free-list). Fails with ErrRoomFull at
// capacity.
func (r *Room) AddMember(sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= r.maxUsers {
		return ErrRoomFull
	}

	used := make(map[string]bool, len(r.members))
	for _, m := range r.members {
		used[m.Color] = true
	}
	r.rotatingSeed++
	sess.Color = session.AssignColor(used, r.rotatingSeed)
	sess.RoomID = r.ID

	r.members[sess.ID] = sess
	r.joinOrder = append(r.joinOrder, sess.ID)

	if r.hostUserID == "" {
		r.hostUserID = sess.ID
		sess.IsHost = true
	}

	r.LastActivity = time.Now()
	return nil
}

// RemoveMember evicts userID. Its color is implicitly returned to the
// available pool (derived fresh from membership on the next AddMember).
// If the departing member was host, the earliest-remaining joiner is
// promoted — a display-only reassignment, adapted from the teacher's
// AutoAssignAdmin/TransferAdmin pattern (services/admin_service.go) with
// no wire-level privilege attached, per SPEC_FULL §3.
func (r *Room) RemoveMember(userID string) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.members[userID]
	if !ok {
		return nil
	}
	delete(r.members, userID)
	for i, id := range r.joinOrder {
		if id == userID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}

	if r.hostUserID == userID {
		r.hostUserID = ""
		if len(r.joinOrder) > 0 {
			next := r.joinOrder[0]
			r.hostUserID = next
			if m, ok := r.members[next]; ok {
				m.IsHost = true
			}
		}
	}

	r.LastActivity = time.Now()
	return sess
}

// MemberSnapshot returns a stable-ordered copy of current members. Both
// Broadcast and the users_list wire payload iterate this snapshot so that
// concurrent join/leave during fan-out cannot invalidate the iteration,
// per §4.C.
func (r *Room) MemberSnapshot() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*session.Session, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

// MemberCount reports current membership size.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// IsEmpty reports whether the room currently has no members.
func (r *Room) IsEmpty() bool {
	return r.MemberCount() == 0
}

// Touch bumps LastActivity to now, called on any member-originated event.
func (r *Room) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LastActivity = time.Now()
}

// IdleSince reports how long the room has gone without a member-originated
// event, used by the reaper (§4.D).
func (r *Room) IdleSince() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.LastActivity)
}

// Sender is the capability a member's connection handle must provide to
// receive broadcasts: a non-blocking, categorized enqueue. critical
// messages are never dropped by the connection's send queue; non-critical
// ones may be dropped under backpressure (§5).
type Sender interface {
	Enqueue(payload []byte, critical bool) bool
}

// Broadcast fans payload out to a snapshot of members, skipping
// excludeUserID when non-empty. Send is via each member's Sender, which
// the dispatcher installs per connection so a slow peer never blocks the
// room's writer (§5).
func (r *Room) Broadcast(payload []byte, excludeUserID string, critical bool) {
	for _, m := range r.MemberSnapshot() {
		if m.ID == excludeUserID {
			continue
		}
		if sender, ok := m.Conn.(Sender); ok {
			sender.Enqueue(payload, critical)
		}
	}
}
