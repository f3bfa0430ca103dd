package live

import (
	"context"
	"time"

	"pulse/internal/observability"
	"pulse/internal/realtime"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send pongs.
	maxMessageSize = 1024

	sendBuffer = 16
)

// Client is one open live view: a websocket connection plus the relay subscription
// that tells it when to re-fetch.
type Client struct {
	Hub *Hub

	// The websocket connection. Nil in tests.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	UserID  string
	View    string
	Subject string

	sub     *realtime.Subscription
	refresh []byte
	done    chan struct{}
}

// forward turns relay signals into refresh messages until the subscription is released.
func (c *Client) forward() {
	for range c.sub.Signals() {
		c.TrySend(c.refresh)
	}
}

// ReadPump keeps the read side alive for pongs and unregisters the client when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c, "read closed")
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.LogError(context.Background(), c.UserID, c.View, err, "read")
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// TrySend queues a message without blocking. A refresh already queued makes another one
// redundant, so a full buffer simply drops the message.
func (c *Client) TrySend(message []byte) {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		return
	default:
	}

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	}
}
