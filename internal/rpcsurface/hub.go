package rpcsurface

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/types"
)

var log = obslog.New("rpcsurface")

// websocketBufferSize is the per-client send channel's capacity, letting
// a burst of broadcasts queue up before a slow client is dropped.
const websocketBufferSize = 256

// client is one connected websocket reader (a dashboard or operator tool
// subscribed to workspace_home/review_inbox/run_monitor updates).
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out WSMessage broadcasts to every connected client. One Hub
// serves the whole read-only snapshot surface; it carries no workspace
// state of its own.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

// NewHub builds an unstarted Hub; call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, websocketBufferSize),
	}
}

// Run is the hub's event loop. It blocks; callers run it in a goroutine
// for the surface's lifetime.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastJSON marshals v and fans it out to every connected client.
// Marshal failures are logged and dropped — a broadcast never blocks or
// fails the caller's write path.
func (h *Hub) BroadcastJSON(msgType string, v interface{}) {
	data, err := json.Marshal(types.WSMessage{Type: msgType, Data: v})
	if err != nil {
		log.Errorf("marshal broadcast %s: %v", msgType, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warnf("broadcast channel full, dropping %s message", msgType)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// The surface is read-only: inbound frames are drained, not acted on.
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
