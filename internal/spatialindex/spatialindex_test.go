package spatialindex

import "testing"

func TestInsertRejectsInvalidBBox(t *testing.T) {
	idx := New()
	err := idx.Insert(Entry{OperationID: "op1", BBox: BoundingBox{X1: 10, Y1: 0, X2: 0, Y2: 10}})
	if err == nil {
		t.Fatal("expected an error for an inverted bounding box")
	}
}

func TestQueryReturnsOnlyIntersectingActiveEntries(t *testing.T) {
	idx := New()
	mustInsert(t, idx, Entry{OperationID: "near", BBox: BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Active: true})
	mustInsert(t, idx, Entry{OperationID: "far", BBox: BoundingBox{X1: 1000, Y1: 1000, X2: 1010, Y2: 1010}, Active: true})
	mustInsert(t, idx, Entry{OperationID: "undone", BBox: BoundingBox{X1: 1, Y1: 1, X2: 5, Y2: 5}, Active: false})

	results, err := idx.Query(BoundingBox{X1: -5, Y1: -5, X2: 20, Y2: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].OperationID != "near" {
		t.Fatalf("expected only the active, intersecting entry, got %+v", results)
	}
}

func TestSetActiveTogglesVisibility(t *testing.T) {
	idx := New()
	mustInsert(t, idx, Entry{OperationID: "op1", BBox: BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Active: true})

	idx.SetActive("op1", false)
	results, _ := idx.Query(BoundingBox{X1: -5, Y1: -5, X2: 20, Y2: 20})
	if len(results) != 0 {
		t.Fatalf("expected the undone entry to be excluded, got %+v", results)
	}

	idx.SetActive("op1", true)
	results, _ = idx.Query(BoundingBox{X1: -5, Y1: -5, X2: 20, Y2: 20})
	if len(results) != 1 {
		t.Fatalf("expected the redone entry to reappear, got %+v", results)
	}
}

func TestQueryRejectsInvertedViewport(t *testing.T) {
	idx := New()
	_, err := idx.Query(BoundingBox{X1: 10, Y1: 10, X2: 0, Y2: 0})
	if err == nil {
		t.Fatal("expected an error for an inverted viewport")
	}
}

func mustInsert(t *testing.T, idx *Index, e Entry) {
	t.Helper()
	if err := idx.Insert(e); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
}
