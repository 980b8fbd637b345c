package canvasstore

import (
	"testing"
	"time"

	"canvasroom/server/internal/oplog"
)

func TestOpenWithEmptyBucketDisablesArchival(t *testing.T) {
	s, err := Open("us-east-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatal("expected a nil store when bucket is empty")
	}
}

func TestNilStoreSaveIsNoOp(t *testing.T) {
	var s *Store
	key, err := s.Save("room1", oplog.Snapshot{RoomID: "room1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected an empty key from a nil store, got %q", key)
	}
}

func TestObjectKeyIsRoomScopedAndSortableByTime(t *testing.T) {
	t1 := time.UnixMilli(1000)
	t2 := time.UnixMilli(2000)
	k1 := objectKey("room1", t1)
	k2 := objectKey("room1", t2)
	if k1 == k2 {
		t.Fatal("expected distinct keys for distinct timestamps")
	}
	if k1 >= k2 {
		t.Fatalf("expected lexical ordering to match chronological ordering: %q vs %q", k1, k2)
	}
}
