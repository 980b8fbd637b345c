package persistence

import (
	"testing"

	"canvasroom/server/internal/oplog"
)

func TestOpenWithEmptyDSNDisablesPersistence(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatal("expected a nil store when dsn is empty")
	}
}

func TestNilStoreSaveAndLoadAreNoOps(t *testing.T) {
	var s *Store
	s.Save("room1", oplog.Snapshot{RoomID: "room1"})

	snap, ok := s.Load("room1")
	if ok {
		t.Fatalf("expected no snapshot from a nil store, got %+v", snap)
	}
}

func TestNilStoreCloseIsNoOp(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Fatalf("expected nil error from closing a nil store, got %v", err)
	}
}
