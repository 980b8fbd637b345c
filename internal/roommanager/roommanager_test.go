package roommanager

import (
	"testing"
	"time"
)

type fakeConn struct{ id int }

func (f *fakeConn) Enqueue(payload []byte, critical bool) bool { return true }

func newTestManager() *Manager {
	cfg := DefaultConfig()
	cfg.MaxUsersPerRoom = 20
	cfg.EmptyRoomGrace = 50 * time.Millisecond
	cfg.EmptyRoomReap = 50 * time.Millisecond
	cfg.ReaperInterval = 20 * time.Millisecond
	cfg.IdleRoomReap = time.Hour
	return New(cfg, nil)
}

func TestJoinCreatesRoomLazily(t *testing.T) {
	m := newTestManager()
	res := m.Join(&fakeConn{1}, "r1", "Alice")
	if !res.OK {
		t.Fatalf("expected join to succeed, got reason %s", res.Reason)
	}
	if m.Room("r1") == nil {
		t.Fatalf("expected room r1 to exist after first join")
	}
}

func TestJoinRoomFullAtCapacity(t *testing.T) {
	m := newTestManager()
	m.cfgMaxUsers(2)
	c1, c2, c3 := &fakeConn{1}, &fakeConn{2}, &fakeConn{3}

	if !m.Join(c1, "r1", "A").OK {
		t.Fatal("first join should succeed")
	}
	if !m.Join(c2, "r1", "B").OK {
		t.Fatal("second join should succeed")
	}
	res := m.Join(c3, "r1", "C")
	if res.OK || res.Reason != ReasonRoomFull {
		t.Fatalf("expected room_full, got %+v", res)
	}

	// leave restores admission
	m.Leave(c1)
	res2 := m.Join(c3, "r1", "C")
	if !res2.OK {
		t.Fatalf("expected join to succeed after a leave freed capacity: %+v", res2)
	}
}

// cfgMaxUsers is a tiny test helper to shrink capacity without exporting a
// setter on the public Config (the manager is already constructed).
func (m *Manager) cfgMaxUsers(n int) {
	m.cfg.MaxUsersPerRoom = n
}

func TestLeaveRemovesFromBothIndices(t *testing.T) {
	m := newTestManager()
	c1 := &fakeConn{1}
	m.Join(c1, "r1", "Alice")

	sess, _ := m.Leave(c1)
	if sess == nil {
		t.Fatal("expected a session back from leave")
	}
	if m.Session(c1) != nil {
		t.Fatal("session map must no longer reference the connection")
	}
	r := m.Room("r1")
	if r != nil {
		for _, mem := range r.MemberSnapshot() {
			if mem.ID == sess.ID {
				t.Fatal("room membership must no longer reference the departed user")
			}
		}
	}
}

func TestEmptyRoomReapedAfterGrace(t *testing.T) {
	m := newTestManager()
	c1 := &fakeConn{1}
	m.Join(c1, "r1", "Alice")
	m.Leave(c1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Room("r1") == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected empty room to be reaped after grace period")
}

func TestJoinRevivesRoomBeforeGraceExpires(t *testing.T) {
	m := newTestManager()
	c1, c2 := &fakeConn{1}, &fakeConn{2}
	m.Join(c1, "r1", "Alice")
	m.Leave(c1)

	// Rejoin immediately, before the grace-period recheck fires.
	res := m.Join(c2, "r1", "Bob")
	if !res.OK {
		t.Fatalf("expected rejoin to succeed: %+v", res)
	}

	time.Sleep(150 * time.Millisecond)
	if m.Room("r1") == nil {
		t.Fatal("room must survive because it was no longer empty when the grace check fired")
	}
}

func TestBroadcastToMissingRoomIsSilentNoOp(t *testing.T) {
	m := newTestManager()
	// Should not panic.
	m.BroadcastToRoom("ghost", []byte("{}"), "", true)
}

func TestStatsReportsRoomsAndSessions(t *testing.T) {
	m := newTestManager()
	m.Join(&fakeConn{1}, "r1", "Alice")
	stats := m.Stats()
	if stats["roomCount"].(int) != 1 {
		t.Fatalf("expected 1 room, got %v", stats["roomCount"])
	}
	if stats["sessionCount"].(int) != 1 {
		t.Fatalf("expected 1 session, got %v", stats["sessionCount"])
	}
}

func TestAlreadyJoinedReattempt(t *testing.T) {
	m := newTestManager()
	c1 := &fakeConn{1}
	m.Join(c1, "r1", "Alice")
	res := m.Join(c1, "r1", "Alice")
	if res.OK || res.Reason != ReasonAlreadyJoined {
		t.Fatalf("expected already_joined, got %+v", res)
	}
}
