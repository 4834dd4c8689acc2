package ws

import (
	"log"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/observability"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameSize  = 4096
	sendQueueSize = 256
)

// Client owns one websocket channel bound to a verified user identity. All
// outbound traffic goes through the buffered send queue so that a slow reader
// never blocks the goroutine that triggered the push.
type Client struct {
	UserID int
	Info   ConnInfo

	conn *websocket.Conn
	send chan []byte
}

func newClient(userID int, conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		UserID: userID,
		Info:   info,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
	}
}

// Enqueue queues a payload for the write pump without blocking the caller.
// Reports false when the queue is full and the frame was dropped.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		observability.IncWSDroppedFrame()
		log.Printf("ws send queue full, dropping frame user_id=%d conn_id=%s", c.UserID, c.Info.ConnID)
		return false
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. It exits when a write fails, which happens promptly after
// the read loop closes the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
