package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kuldeep921997/peerline/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP blobs with many
	// candidates fit comfortably in 64 KB.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection (one participant). The ID is
// connection-scoped and issued by the hub on registration.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	// ID is the opaque participant identifier, valid for the lifetime of
	// the connection.
	ID string

	// RoomID is the current room membership, empty until create/join.
	RoomID string

	// Send is the outbound queue. The hub writes to it, WritePump drains
	// it onto the socket.
	Send chan *protocol.Message
}

// inbound pairs a parsed message with the connection it arrived on so the
// hub loop knows the sender without trusting any wire field.
type inbound struct {
	msg  *protocol.Message
	from *Client
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// One ReadPump goroutine runs per connection, keeping at most one reader
// on the socket.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Debug("read error", "participant", c.ID, "err", err)
			}
			return
		}

		if err := msg.Validate(); err != nil {
			slog.Debug("dropping invalid message", "participant", c.ID, "err", err)
			continue
		}

		c.Hub.Inbound <- inbound{msg: &msg, from: c}
	}
}

// WritePump pumps messages from the hub to the websocket connection and
// keeps the connection alive with periodic pings.
//
// One WritePump goroutine runs per connection, keeping at most one writer
// on the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Debug("write error", "participant", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
