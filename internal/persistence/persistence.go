// Package persistence is the optional Postgres-backed export/import hook
// for a room's operation log (spec §3: "in-memory with explicit
// export/import hooks"). Grounded on the teacher's services/room_service.go
// and recovery.go, repurposed from that dual Postgres+Redis room-metadata
// cache into a single upsert-on-snapshot / load-on-create store that
// satisfies roommanager.Store. A nil/disabled Store keeps the server
// correct with zero external dependencies at runtime.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"canvasroom/server/internal/oplog"
)

// Store persists room snapshots to Postgres. The zero value is unusable;
// construct with Open.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres at dsn and ensures the backing table exists.
// An empty dsn disables persistence: Open returns (nil, nil), and callers
// should treat a nil *Store as "no store configured."
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS room_snapshots (
			id          UUID PRIMARY KEY,
			room_id     TEXT UNIQUE NOT NULL,
			snapshot    JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure room_snapshots schema: %w", err)
	}
	return nil
}

// Save upserts roomID's snapshot. Errors are logged, never returned,
// matching roommanager.Store's fire-and-forget contract — a failed save
// never blocks or corrupts in-memory state.
func (s *Store) Save(roomID string, snap oplog.Snapshot) {
	if s == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("⚠️  failed to marshal snapshot for room %s: %v", roomID, err)
		return
	}
	_, err = s.db.Exec(`
		INSERT INTO room_snapshots (id, room_id, snapshot, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = now()
	`, uuid.New(), roomID, payload, snap.CreatedAt)
	if err != nil {
		log.Printf("⚠️  failed to persist snapshot for room %s: %v", roomID, err)
	}
}

// Load retrieves roomID's last-saved snapshot, if any.
func (s *Store) Load(roomID string) (oplog.Snapshot, bool) {
	if s == nil {
		return oplog.Snapshot{}, false
	}
	var payload []byte
	err := s.db.QueryRow(`SELECT snapshot FROM room_snapshots WHERE room_id = $1`, roomID).Scan(&payload)
	if err == sql.ErrNoRows {
		return oplog.Snapshot{}, false
	}
	if err != nil {
		log.Printf("⚠️  failed to load snapshot for room %s: %v", roomID, err)
		return oplog.Snapshot{}, false
	}
	var snap oplog.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("⚠️  failed to unmarshal snapshot for room %s: %v", roomID, err)
		return oplog.Snapshot{}, false
	}
	return snap, true
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
