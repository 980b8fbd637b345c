package room

import (
	"testing"

	"canvasroom/server/internal/session"
)

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) Enqueue(payload []byte, critical bool) bool {
	f.sent = append(f.sent, payload)
	return true
}

func newMember(id string) (*session.Session, *fakeSender) {
	fs := &fakeSender{}
	return &session.Session{ID: id, Conn: fs, DisplayName: id}, fs
}

func TestAddMemberAssignsDistinctColorsAndFirstJoinerIsHost(t *testing.T) {
	r := New("r1", 100, 0)
	a, _ := newMember("a")
	b, _ := newMember("b")

	if err := r.AddMember(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.AddMember(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Color == b.Color {
		t.Fatalf("expected distinct colors, both got %s", a.Color)
	}
	if !a.IsHost || b.IsHost {
		t.Fatalf("expected a to be host, got a.IsHost=%v b.IsHost=%v", a.IsHost, b.IsHost)
	}
}

func TestAddMemberRejectsOverCapacity(t *testing.T) {
	r := New("r1", 100, 1)
	a, _ := newMember("a")
	b, _ := newMember("b")

	if err := r.AddMember(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.AddMember(b); err != ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestRemoveMemberReassignsHostToEarliestRemainingJoiner(t *testing.T) {
	r := New("r1", 100, 0)
	a, _ := newMember("a")
	b, _ := newMember("b")
	c, _ := newMember("c")
	r.AddMember(a)
	r.AddMember(b)
	r.AddMember(c)

	r.RemoveMember("a")

	if !b.IsHost {
		t.Fatalf("expected b to become host after a left, b.IsHost=%v c.IsHost=%v", b.IsHost, c.IsHost)
	}
	if c.IsHost {
		t.Fatal("expected c not to be host")
	}
	if r.MemberCount() != 2 {
		t.Fatalf("expected 2 remaining members, got %d", r.MemberCount())
	}
}

func TestRemoveMemberOnUnknownUserIsNoOp(t *testing.T) {
	r := New("r1", 100, 0)
	if got := r.RemoveMember("ghost"); got != nil {
		t.Fatalf("expected nil for unknown member, got %+v", got)
	}
}

func TestBroadcastSkipsExcludedMemberAndReachesOthers(t *testing.T) {
	r := New("r1", 100, 0)
	a, aSend := newMember("a")
	b, bSend := newMember("b")
	r.AddMember(a)
	r.AddMember(b)

	r.Broadcast([]byte("hello"), "a", true)

	if len(aSend.sent) != 0 {
		t.Fatalf("expected excluded member to receive nothing, got %d messages", len(aSend.sent))
	}
	if len(bSend.sent) != 1 {
		t.Fatalf("expected the other member to receive 1 message, got %d", len(bSend.sent))
	}
}

func TestIsEmptyReflectsMembership(t *testing.T) {
	r := New("r1", 100, 0)
	if !r.IsEmpty() {
		t.Fatal("expected a fresh room to be empty")
	}
	a, _ := newMember("a")
	r.AddMember(a)
	if r.IsEmpty() {
		t.Fatal("expected room with a member to not be empty")
	}
	r.RemoveMember("a")
	if !r.IsEmpty() {
		t.Fatal("expected room to be empty again after member left")
	}
}
