// Package dispatcher is the per-connection event loop: it decodes wire
// messages, looks up the connection's session, and translates each event
// into Room mutations and broadcasts via the RoomManager (spec §4.E).
package dispatcher

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"canvasroom/server/internal/invite"
	"canvasroom/server/internal/roommanager"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the time allowed to read the next pong from the peer;
	// exceeding it without traffic is treated as the heartbeat timeout of
	// §5 (~60s) and handled as a disconnect.
	pongWait = 60 * time.Second
	// pingPeriod must stay under pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is a single connection's handle: the transport, its send queue,
// and the room-manager it reports to. It implements room.Sender so the
// room's single writer can enqueue broadcasts without ever blocking on
// this peer.
type Client struct {
	conn    *websocket.Conn
	manager *roommanager.Manager
	invites *invite.Service
	queue   *sendQueue
}

// Enqueue implements room.Sender. critical messages grow the
// never-dropped backlog; non-critical ones are subject to drop-oldest
// backpressure, per §5.
func (c *Client) Enqueue(payload []byte, critical bool) bool {
	if critical {
		return c.queue.EnqueueCritical(payload)
	}
	return c.queue.EnqueueDroppable(payload)
}

// ServeWs upgrades r into a websocket connection and starts its read/write
// pumps, grounded on the teacher's websocket/client.go. invites may be nil,
// in which case join_room requests carrying only an inviteCode fail to
// resolve a room.
func ServeWs(manager *roommanager.Manager, invites *invite.Service, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &Client{
		conn:    conn,
		manager: manager,
		invites: invites,
		queue:   newSendQueue(),
	}

	go c.writePump()
	c.readPump() // blocks until the connection closes
}

// readPump is the connection's single reader. On exit (error, close) it
// unwinds any room membership via RoomManager.Leave and tells peers.
func (c *Client) readPump() {
	defer func() {
		c.handleDisconnect()
		c.queue.close()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read error: %v", err)
			}
			break
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("error unmarshaling envelope: %v", err)
			continue
		}

		// A single malformed or panicking handler kills only this
		// connection, never the process, per §7 (internal errors).
		c.dispatchSafely(env)
	}
}

func (c *Client) dispatchSafely(env envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("recovered from panic handling %q: %v", env.Event, rec)
			// Closing the transport makes readPump's next read fail, which
			// runs the normal disconnect path for this connection only.
			if c.conn != nil {
				c.conn.Close()
			}
		}
	}()

	sess := c.manager.Session(c)
	if env.Event != "join_room" {
		if sess == nil {
			// Resource error: unknown session on a non-join event. Silent
			// no-op per §7.
			return
		}
		c.manager.Touch(c)
	}

	switch env.Event {
	case "join_room":
		c.handleJoinRoom(env.Payload)
	case "draw_start":
		c.handleDrawStart(sess, env.Payload)
	case "draw_batch":
		c.handleDrawBatch(sess, env.Payload)
	case "draw_end":
		c.handleDrawEnd(sess, env.Payload)
	case "undo":
		c.handleUndo(sess, env.Payload)
	case "redo":
		c.handleRedo(sess, env.Payload)
	case "clear_canvas":
		c.handleClearCanvas(sess)
	case "cursor_move":
		c.handleCursorMove(sess, env.Payload)
	default:
		log.Printf("unknown message type: %s", env.Event)
	}
}

// writePump is the connection's single writer: it drains the send queue on
// every wakeup (draining critical messages before droppable ones) and
// coalesces everything pending into one websocket frame burst, and sends
// keepalive pings on pingPeriod. Grounded on the teacher's writePump
// draining multiple queued sends per wakeup (websocket/client.go).
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.queue.notify:
			if !c.flush() {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) flush() bool {
	for {
		crit, drop := c.queue.drain()
		if len(crit) == 0 && len(drop) == 0 {
			return true
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		for _, payload := range crit {
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return false
			}
		}
		for _, payload := range drop {
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return false
			}
		}
	}
}

func (c *Client) send(event string, payload interface{}, critical bool) {
	msg, err := encode(event, payload)
	if err != nil {
		log.Printf("error encoding %s: %v", event, err)
		return
	}
	c.Enqueue(msg, critical)
}
