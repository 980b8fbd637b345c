package dispatcher

import "encoding/json"

// envelope is the tagged wire message both directions share, per spec §6:
// `{event, payload}`. Decoding returns either a variant or a decode error,
// per §9's "untyped envelopes" reframing — no string-keyed callback
// registry, just explicit handler methods on Client.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func encode(event string, payload interface{}) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Payload: p})
}

// --- incoming (client -> server) payloads ---

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	InviteCode string `json:"inviteCode,omitempty"`
	Username   string `json:"username,omitempty"`
}

type drawStartPayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
	Width     int     `json:"width"`
	Tool      string  `json:"tool"`
	Timestamp int64   `json:"timestamp"`
}

type wirePoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure,omitempty"`
}

type drawBatchPayload struct {
	Points    []wirePoint `json:"points"`
	Timestamp int64       `json:"timestamp"`
}

type wireStroke struct {
	Points     []wirePoint `json:"points"`
	Color      string      `json:"color"`
	Width      int         `json:"width"`
	Tool       string      `json:"tool"`
	IsComplete bool        `json:"isComplete"`
}

type drawEndPayload struct {
	Stroke    wireStroke `json:"stroke"`
	Timestamp int64      `json:"timestamp"`
}

type undoRedoPayload struct {
	OperationID string `json:"operationId,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

type cursorMovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// --- outgoing (server -> client) payloads ---

type wireUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	IsHost bool   `json:"isHost,omitempty"`
}

type joinRoomAck struct {
	Success bool      `json:"success"`
	UserID  string    `json:"userId,omitempty"`
	User    *wireUser `json:"user,omitempty"`
	Room    *roomInfo `json:"room,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type roomInfo struct {
	ID          string `json:"id"`
	MemberCount int    `json:"memberCount"`
}

type userJoinedPayload struct {
	User wireUser `json:"user"`
}

type userLeftPayload struct {
	User wireUser `json:"user"`
}

type usersListPayload struct {
	Users []wireUser `json:"users"`
}

type remoteDrawBatchPayload struct {
	UserID    string      `json:"userId"`
	Points    []wirePoint `json:"points"`
	Color     string      `json:"color,omitempty"`
	Width     int         `json:"width,omitempty"`
	Tool      string      `json:"tool,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type remoteDrawEndPayload struct {
	UserID      string     `json:"userId"`
	Stroke      wireStroke `json:"stroke"`
	OperationID string     `json:"operationId"`
	Timestamp   int64      `json:"timestamp"`
}

type remoteUndoRedoPayload struct {
	UserID      string `json:"userId"`
	OperationID string `json:"operationId"`
	Timestamp   int64  `json:"timestamp"`
}

type remoteClearPayload struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

type remoteCursorPayload struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type syncStatePayload struct {
	Operations []operationWire `json:"operations"`
	Timestamp  int64           `json:"timestamp"`
}

// operationWire is the wire shape of a logged operation: the JSON encoding
// of an oplog.Operation, whose tags already use spec §3's field names. It is
// an alias of json.RawMessage, not a distinct type, so sync_state carries
// each operation's own encoding without dispatcher depending on the
// vclock.Clock type in its wire structs.
type operationWire = json.RawMessage

type errorPayload struct {
	Message string `json:"message"`
}
