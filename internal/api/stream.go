package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/trading"
	"go.uber.org/zap"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamClientBuf  = 64
	streamBroadcast  = 1024
)

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine events out to every connected dashboard.
// Clients that cannot keep up are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.RWMutex
	clients map[*streamClient]struct{}

	broadcast chan []byte
	register  chan *streamClient
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		log:       log.Named("stream"),
		mu:        sync.RWMutex{},
		clients:   make(map[*streamClient]struct{}),
		broadcast: make(chan []byte, streamBroadcast),
		register:  make(chan *streamClient),
	}
}

// Run dispatches broadcasts until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*streamClient

			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()

			for _, c := range slow {
				h.log.Warn("Dropping slow stream client", zap.String("remote", c.conn.RemoteAddr().String()))
				h.drop(c)
			}
		}
	}
}

func (h *Hub) drop(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish queues an event for every client. It never blocks; events are dropped when the queue is full.
func (h *Hub) Publish(event trading.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("Failed to marshal stream event", zap.String("type", string(event.Type)), zap.Error(err))

		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("Stream broadcast queue full, dropping event", zap.String("type", string(event.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// serve upgrades the request and streams events until the client goes away.
// initial is sent before any broadcast.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, initial []trading.Event) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Stream upgrade failed", zap.Error(err))

		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, streamClientBuf+len(initial))}

	for _, event := range initial {
		if data, err := json.Marshal(event); err == nil {
			c.send <- data
		}
	}

	select {
	case h.register <- c:
	case <-r.Context().Done():
		conn.Close()

		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *streamClient) {
	defer func() {
		h.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
