package dispatcher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"canvasroom/server/internal/oplog"
	"canvasroom/server/internal/session"
	"canvasroom/server/internal/spatialindex"
)

// strokeBounds computes a padded axis-aligned bounding box over a stroke's
// points for spatial indexing, grounded on the teacher's
// calculateStrokeBoundingBox (main.go), including its fixed 10-unit padding
// for stroke thickness.
func strokeBounds(points []oplog.Point) spatialindex.BoundingBox {
	const padding = 10.0
	if len(points) == 0 {
		return spatialindex.BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
	}
	box := spatialindex.BoundingBox{X1: points[0].X, Y1: points[0].Y, X2: points[0].X, Y2: points[0].Y}
	for _, p := range points[1:] {
		if p.X < box.X1 {
			box.X1 = p.X
		}
		if p.X > box.X2 {
			box.X2 = p.X
		}
		if p.Y < box.Y1 {
			box.Y1 = p.Y
		}
		if p.Y > box.Y2 {
			box.Y2 = p.Y
		}
	}
	box.X1 -= padding
	box.Y1 -= padding
	box.X2 += padding
	box.Y2 += padding
	return box
}

func toWireUser(s *session.Session) wireUser {
	return wireUser{ID: s.ID, Name: s.DisplayName, Color: s.Color, IsHost: s.IsHost}
}

func fromWirePoints(pts []wirePoint) []oplog.Point {
	out := make([]oplog.Point, len(pts))
	for i, p := range pts {
		out[i] = oplog.Point{X: p.X, Y: p.Y, Pressure: p.Pressure}
	}
	return out
}

// handleJoinRoom admits the connection into a room, identified either by
// roomId or (per the invite-code supplemented feature) inviteCode, then
// emits the three join-time messages in the order spec §4.E requires:
// user_joined to the rest of the room, users_list to the joiner only, then
// sync_state to the joiner.
func (c *Client) handleJoinRoom(raw json.RawMessage) {
	var p joinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.send("error", errorPayload{Message: "malformed join_room payload"}, true)
		return
	}

	roomID := p.RoomID
	if roomID == "" && p.InviteCode != "" {
		if c.invites == nil {
			c.send("join_room_ack", joinRoomAck{Success: false, Error: "invalid or expired invite code"}, true)
			return
		}
		resolved, err := c.invites.Resolve(context.Background(), p.InviteCode)
		if err != nil {
			c.send("join_room_ack", joinRoomAck{Success: false, Error: "invalid or expired invite code"}, true)
			return
		}
		roomID = resolved
	}
	if roomID == "" {
		c.send("error", errorPayload{Message: "roomId is required"}, true)
		return
	}

	res := c.manager.Join(c, roomID, p.Username)
	if !res.OK {
		c.send("join_room_ack", joinRoomAck{Success: false, Error: string(res.Reason)}, true)
		return
	}

	ackUser := toWireUser(res.User)
	c.send("join_room_ack", joinRoomAck{
		Success: true,
		UserID:  res.UserID,
		User:    &ackUser,
		Room:    &roomInfo{ID: roomID, MemberCount: c.roomMemberCount(roomID)},
	}, true)

	joined, err := encode("user_joined", userJoinedPayload{User: ackUser})
	if err != nil {
		log.Printf("error encoding user_joined: %v", err)
		return
	}
	c.manager.BroadcastToRoom(roomID, joined, res.UserID, true)

	c.sendUsersListTo(roomID)
	c.sendSyncState(res.RoomSnapshot)
}

func (c *Client) roomMemberCount(roomID string) int {
	r := c.manager.Room(roomID)
	if r == nil {
		return 0
	}
	return r.MemberCount()
}

func (c *Client) sendSyncState(snap oplog.Snapshot) {
	ops := make([]operationWire, len(snap.Operations))
	for i, op := range snap.Operations {
		raw, err := json.Marshal(op)
		if err != nil {
			log.Printf("error marshaling operation %s for sync_state: %v", op.ID, err)
			continue
		}
		ops[i] = raw
	}
	c.send("sync_state", syncStatePayload{Operations: ops, Timestamp: time.Now().UnixMilli()}, true)
}

// usersListPayloadFor builds the current roster payload for roomID, or nil
// if the room doesn't exist.
func (c *Client) usersListPayloadFor(roomID string) *usersListPayload {
	r := c.manager.Room(roomID)
	if r == nil {
		return nil
	}
	members := r.MemberSnapshot()
	users := make([]wireUser, len(members))
	for i, m := range members {
		users[i] = toWireUser(m)
	}
	return &usersListPayload{Users: users}
}

// sendUsersListTo sends the current roster to this connection only, per
// §4.E's "targeted" fan-out for the join path.
func (c *Client) sendUsersListTo(roomID string) {
	payload := c.usersListPayloadFor(roomID)
	if payload == nil {
		return
	}
	c.send("users_list", *payload, true)
}

// broadcastUsersList refreshes every member of roomID with the current
// roster, used on the disconnect path per §4.E's "fresh users_list to the
// remaining members" text.
func (c *Client) broadcastUsersList(roomID string) {
	r := c.manager.Room(roomID)
	if r == nil {
		return
	}
	payload := c.usersListPayloadFor(roomID)
	if payload == nil {
		return
	}
	msg, err := encode("users_list", *payload)
	if err != nil {
		log.Printf("error encoding users_list: %v", err)
		return
	}
	r.Broadcast(msg, "", true)
}

// handleDrawStart is a droppable, non-logged hint: it's only a live cursor
// preview, so it is fanned out as remote_draw_batch-shaped data without
// touching the operation log, per §4.E.
func (c *Client) handleDrawStart(sess *session.Session, raw json.RawMessage) {
	if sess == nil {
		return
	}
	var p drawStartPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	payload := remoteDrawBatchPayload{
		UserID:    sess.ID,
		Points:    []wirePoint{{X: p.X, Y: p.Y}},
		Color:     p.Color,
		Width:     p.Width,
		Tool:      p.Tool,
		Timestamp: p.Timestamp,
	}
	msg, err := encode("remote_draw_batch", payload)
	if err != nil {
		log.Printf("error encoding remote_draw_batch: %v", err)
		return
	}
	c.manager.BroadcastToRoom(sess.RoomID, msg, sess.ID, false)
}

// handleDrawBatch relays in-progress stroke samples. Droppable, per §5: a
// slow peer may miss intermediate batches without losing correctness,
// since draw_end always carries the complete stroke.
func (c *Client) handleDrawBatch(sess *session.Session, raw json.RawMessage) {
	if sess == nil {
		return
	}
	var p drawBatchPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	payload := remoteDrawBatchPayload{
		UserID:    sess.ID,
		Points:    p.Points,
		Timestamp: p.Timestamp,
	}
	msg, err := encode("remote_draw_batch", payload)
	if err != nil {
		log.Printf("error encoding remote_draw_batch: %v", err)
		return
	}
	c.manager.BroadcastToRoom(sess.RoomID, msg, sess.ID, false)
}

// handleDrawEnd commits the completed stroke to the operation log and
// fans out the durable remote_draw_end event, critical per §5.
func (c *Client) handleDrawEnd(sess *session.Session, raw json.RawMessage) {
	if sess == nil {
		return
	}
	var p drawEndPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.send("error", errorPayload{Message: "malformed draw_end payload"}, true)
		return
	}

	r := c.manager.Room(sess.RoomID)
	if r == nil {
		return
	}
	stroke := oplog.Stroke{
		Points:     fromWirePoints(p.Stroke.Points),
		Color:      p.Stroke.Color,
		Width:      p.Stroke.Width,
		Tool:       oplog.Tool(p.Stroke.Tool),
		IsComplete: true,
	}
	op := r.Log.Append(sess.ID, oplog.TypeStroke, stroke)

	if err := r.Spatial.Insert(spatialindex.Entry{
		OperationID: op.ID,
		UserID:      sess.ID,
		Color:       stroke.Color,
		BBox:        strokeBounds(stroke.Points),
		Active:      true,
	}); err != nil {
		log.Printf("⚠️  failed to index stroke %s for viewport queries: %v", op.ID, err)
	}

	payload := remoteDrawEndPayload{
		UserID:      sess.ID,
		Stroke:      p.Stroke,
		OperationID: op.ID,
		Timestamp:   op.Timestamp,
	}
	msg, err := encode("remote_draw_end", payload)
	if err != nil {
		log.Printf("error encoding remote_draw_end: %v", err)
		return
	}
	r.Broadcast(msg, sess.ID, true)
}

// handleUndo resolves the target operation (explicit id, or the room's
// LastActive if omitted) and applies the undo transition. Unresolvable or
// already-undone targets are silent no-ops, per §7.
func (c *Client) handleUndo(sess *session.Session, raw json.RawMessage) {
	if sess == nil {
		return
	}
	var p undoRedoPayload
	_ = json.Unmarshal(raw, &p)

	r := c.manager.Room(sess.RoomID)
	if r == nil {
		return
	}

	opID := p.OperationID
	if opID == "" {
		last := r.Log.LastActive()
		if last == nil {
			return
		}
		opID = last.ID
	}

	op, err := r.Log.Undo(opID, sess.ID)
	if err != nil {
		return
	}
	r.Spatial.SetActive(op.ID, false)

	payload := remoteUndoRedoPayload{UserID: sess.ID, OperationID: op.ID, Timestamp: time.Now().UnixMilli()}
	msg, err := encode("remote_undo", payload)
	if err != nil {
		log.Printf("error encoding remote_undo: %v", err)
		return
	}
	r.Broadcast(msg, "", true)
}

// handleRedo is the symmetric counterpart of handleUndo, resolving against
// LastUndone when no explicit id is given.
func (c *Client) handleRedo(sess *session.Session, raw json.RawMessage) {
	if sess == nil {
		return
	}
	var p undoRedoPayload
	_ = json.Unmarshal(raw, &p)

	r := c.manager.Room(sess.RoomID)
	if r == nil {
		return
	}

	opID := p.OperationID
	if opID == "" {
		last := r.Log.LastUndone()
		if last == nil {
			return
		}
		opID = last.ID
	}

	op, err := r.Log.Redo(opID, sess.ID)
	if err != nil {
		return
	}
	r.Spatial.SetActive(op.ID, true)

	payload := remoteUndoRedoPayload{UserID: sess.ID, OperationID: op.ID, Timestamp: time.Now().UnixMilli()}
	msg, err := encode("remote_redo", payload)
	if err != nil {
		log.Printf("error encoding remote_redo: %v", err)
		return
	}
	r.Broadcast(msg, "", true)
}

// handleClearCanvas appends a clear operation (tombstoning every active op)
// and broadcasts the critical remote_clear event, per §4.E.
func (c *Client) handleClearCanvas(sess *session.Session) {
	if sess == nil {
		return
	}
	r := c.manager.Room(sess.RoomID)
	if r == nil {
		return
	}
	clearOp := r.Log.Clear(sess.ID)
	for _, op := range r.Log.Snapshot().Operations {
		if op.Type == oplog.TypeStroke {
			r.Spatial.SetActive(op.ID, op.State == oplog.StateActive)
		}
	}

	payload := remoteClearPayload{UserID: sess.ID, Timestamp: clearOp.Timestamp}
	msg, err := encode("remote_clear", payload)
	if err != nil {
		log.Printf("error encoding remote_clear: %v", err)
		return
	}
	r.Broadcast(msg, "", true)
}

// handleCursorMove relays a live cursor position. Droppable, per §5.
func (c *Client) handleCursorMove(sess *session.Session, raw json.RawMessage) {
	if sess == nil {
		return
	}
	var p cursorMovePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	payload := remoteCursorPayload{UserID: sess.ID, X: p.X, Y: p.Y}
	msg, err := encode("remote_cursor", payload)
	if err != nil {
		return
	}
	c.manager.BroadcastToRoom(sess.RoomID, msg, sess.ID, false)
}

// handleDisconnect unwinds room membership on connection close and tells
// the rest of the room, per §4.D/§4.E.
func (c *Client) handleDisconnect() {
	sess, r := c.manager.Leave(c)
	if sess == nil || r == nil {
		return
	}

	left, err := encode("user_left", userLeftPayload{User: toWireUser(sess)})
	if err != nil {
		log.Printf("error encoding user_left: %v", err)
		return
	}
	r.Broadcast(left, sess.ID, true)
	c.broadcastUsersList(sess.RoomID)
}
