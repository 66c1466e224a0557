package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"go_signals_project/models"

	"github.com/gorilla/websocket"
)

// Hub limits and timeouts
const (
	MaxFeedClients    = 100
	feedWriteTimeout  = 10 * time.Second
	feedPongTimeout   = 60 * time.Second
	feedPingInterval  = 30 * time.Second
	feedSendBuffer    = 64
	feedBroadcastSize = 256
)

// feedClient is one connected live-feed subscriber
type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub broadcasts signal lifecycle events to connected websocket
// clients. Slow clients are dropped rather than blocking the dispatcher.
type EventHub struct {
	mu         sync.Mutex
	clients    map[*feedClient]bool
	broadcast  chan models.SignalEvent
	register   chan *feedClient
	unregister chan *feedClient
	shutdown   chan struct{}
	upgrader   websocket.Upgrader
}

// NewEventHub creates the hub; call Run in a goroutine to start it
func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan models.SignalEvent, feedBroadcastSize),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Publish queues an event for broadcast. Never blocks the caller; events are
// dropped when the broadcast buffer is full.
func (h *EventHub) Publish(event models.SignalEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("Event hub broadcast buffer full, dropping %s event", event.Type)
	}
}

// Run services register/unregister/broadcast until Shutdown
func (h *EventHub) Run() {
	for {
		select {
		case <-h.shutdown:
			return

		case client := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= MaxFeedClients {
				h.mu.Unlock()
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				client.conn.Close()
				continue
			}
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("Live feed client connected. Total clients: %d", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshaling feed event: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Shutdown stops the hub and closes every client connection
func (h *EventHub) Shutdown() {
	close(h.shutdown)

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*feedClient]bool)
	h.mu.Unlock()
}

// HandleWebSocket upgrades an HTTP request into a live-feed subscription
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	atCapacity := len(h.clients) >= MaxFeedClients
	h.mu.Unlock()
	if atCapacity {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Live feed upgrade error: %v", err)
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
	}

	// Run has returned once shutdown closes; a registration arriving after
	// that point must not block forever
	select {
	case h.register <- client:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(feedPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pong handlers fire; the feed is one-way
func (c *feedClient) readPump(h *EventHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(feedPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(feedPongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
