// Package httpapi exposes the HTTP side-channel endpoints alongside the
// websocket upgrade: health, process-wide stats, viewport queries, invite
// creation, and on-demand canvas snapshot archival. Grounded on the
// teacher's handlers.go (viewport/spatial-stats/health) and
// api/room_handlers.go (invite creation), adapted from the teacher's Server
// struct methods into handlers closing over a RoomManager.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"canvasroom/server/internal/canvasstore"
	"canvasroom/server/internal/invite"
	"canvasroom/server/internal/roommanager"
	"canvasroom/server/internal/spatialindex"
)

// API bundles the dependencies the HTTP handlers close over.
type API struct {
	Manager *roommanager.Manager
	Invites *invite.Service
	Canvas  *canvasstore.Store
}

// RegisterRoutes wires every handler onto mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/stats", a.handleStats)
	mux.HandleFunc("/api/viewport", a.handleViewport)
	mux.HandleFunc("/api/rooms/invite", a.handleCreateInvite)
	mux.HandleFunc("/api/rooms/snapshot", a.handleSnapshotArchive)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.Manager.Stats())
}

// handleViewport answers GET /api/viewport?room=...&x1=...&y1=...&x2=...&y2=...
// with the active strokes intersecting the given bounding box, for large
// rooms where shipping the entire sync_state is wasteful.
func (a *API) handleViewport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	box, err := parseBoundingBox(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	room := a.Manager.Room(roomID)
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	start := time.Now()
	entries, err := room.Spatial.Query(box)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strokes":      entries,
		"resultCount":  len(entries),
		"queryTimeNs":  time.Since(start).Nanoseconds(),
		"viewport":     box,
	})
}

func parseBoundingBox(r *http.Request) (spatialindex.BoundingBox, error) {
	q := r.URL.Query()
	vals := make([]float64, 4)
	keys := []string{"x1", "y1", "x2", "y2"}
	for i, k := range keys {
		raw := q.Get(k)
		if raw == "" {
			return spatialindex.BoundingBox{}, fmt.Errorf("%s is required", k)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return spatialindex.BoundingBox{}, fmt.Errorf("invalid %s: %v", k, err)
		}
		vals[i] = v
	}
	return spatialindex.BoundingBox{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}, nil
}

type createInviteRequest struct {
	RoomID          string `json:"roomId"`
	ExpirationHours int    `json:"expirationHours"`
}

// handleCreateInvite answers POST /api/rooms/invite with a short-lived
// invite code aliasing the given roomId.
func (a *API) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RoomID == "" {
		http.Error(w, "roomId is required", http.StatusBadRequest)
		return
	}
	ttl := time.Duration(req.ExpirationHours) * time.Hour

	code, err := a.Invites.Create(r.Context(), req.RoomID, ttl)
	if err != nil {
		http.Error(w, "failed to create invite", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"inviteCode": code})
}

type snapshotArchiveRequest struct {
	RoomID string `json:"roomId"`
}

// handleSnapshotArchive answers POST /api/rooms/snapshot by gzip-archiving
// the room's current operation log to S3.
func (a *API) handleSnapshotArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req snapshotArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	room := a.Manager.Room(req.RoomID)
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	key, err := a.Canvas.Save(req.RoomID, room.Log.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"key": key})
}
