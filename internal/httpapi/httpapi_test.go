package httpapi

import (
	"net/http/httptest"
	"testing"
)

func TestParseBoundingBoxRequiresAllFourCoords(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/viewport?room=r1&x1=0&y1=0&x2=10", nil)
	if _, err := parseBoundingBox(r); err == nil {
		t.Fatal("expected an error when y2 is missing")
	}
}

func TestParseBoundingBoxRejectsNonNumeric(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/viewport?room=r1&x1=a&y1=0&x2=10&y2=10", nil)
	if _, err := parseBoundingBox(r); err == nil {
		t.Fatal("expected an error for a non-numeric coordinate")
	}
}

func TestParseBoundingBoxParsesValidInput(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/viewport?room=r1&x1=1&y1=2&x2=3&y2=4", nil)
	box, err := parseBoundingBox(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if box.X1 != 1 || box.Y1 != 2 || box.X2 != 3 || box.Y2 != 4 {
		t.Fatalf("unexpected box: %+v", box)
	}
}
