// Package websocket broadcasts engine-tick snapshots to any number of
// connected browser clients. It is the bounded-channel-to-many-readers
// half of the Design Note under spec.md's REDESIGN FLAGS: the engine
// publishes snapshots onto stats.Publisher, and the Hub here drains one
// subscription from that publisher and fans it out over websocket
// connections. Grounded on the teacher's internal/websocket/hub.go
// (bounded client-broadcast hub), repointed from candle/PnL events to
// stats.Snapshot events.
package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"tradecore/internal/logger"
	"tradecore/internal/stats"
)

// Event is the envelope written to every connected client.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Snapshot  stats.Snapshot `json:"snapshot"`
}

// Hub subscribes to a stats.Publisher and re-broadcasts every snapshot
// to its connected clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	Register   chan *Client
	unregister chan *Client
	log        logger.Logger
}

// NewHub creates a Hub ready to Run.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		Register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run drains client (de)registration and the broadcast channel. It
// runs for the lifetime of the process; Watch feeds it from a
// stats.Publisher subscription.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.log.Debug("ui client connected", "total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.log.Debug("ui client disconnected", "total", len(h.clients))

		case event := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Watch drains snap and re-broadcasts until the channel is closed by
// the publisher, typically on process shutdown via pub.Unsubscribe.
func (h *Hub) Watch(snap <-chan stats.Snapshot) {
	for s := range snap {
		h.broadcast <- Event{Type: "snapshot", Timestamp: time.Now(), Snapshot: s}
	}
}

// Client is one connected websocket reader.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

// NewClient wraps an upgraded connection for registration with hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan Event, 32)}
}

// ReadPump discards inbound messages, keeping the read deadline alive
// for pong handling; the protocol here is push-only.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// WritePump serializes queued events to the connection and keeps it
// alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
