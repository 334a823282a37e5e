package browser

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"serverbrowser-go/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The endpoint binds to loopback; origin checks add nothing here.
		return true
	},
}

// WSHub broadcasts list and content change events to websocket clients.
// It is the UI-invalidation sink: the core publishes change descriptors on
// the bus and never knows who renders them.
type WSHub struct {
	logger *zap.Logger
	bus    *events.Bus

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	stopCh  chan struct{}
	once    sync.Once
}

// NewWSHub creates the hub and starts forwarding bus events.
func NewWSHub(bus *events.Bus, logger *zap.Logger) *WSHub {
	h := &WSHub{
		logger:  logger.Named("ws"),
		bus:     bus,
		clients: make(map[*websocket.Conn]chan []byte),
		stopCh:  make(chan struct{}),
	}
	go h.forward(bus.SubscribeAll())
	return h
}

// Stop disconnects all clients and stops forwarding.
func (h *WSHub) Stop() {
	h.once.Do(func() { close(h.stopCh) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		close(send)
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]chan []byte)
}

func (h *WSHub) forward(ch <-chan events.Event) {
	for {
		select {
		case <-h.stopCh:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("Failed to encode event", zap.Error(err))
				continue
			}
			h.broadcast(data)
		}
	}
}

func (h *WSHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, send := range h.clients {
		select {
		case send <- data:
		default:
			// Slow client; it misses this event rather than stalling the hub.
		}
	}
}

// HandleWebSocket upgrades an HTTP request and streams events until the
// client disconnects.
func (h *WSHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	send := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = send
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Websocket client connected", zap.Int("total", total))

	go h.writeLoop(conn, send)
	h.readLoop(conn)
}

func (h *WSHub) writeLoop(conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WSHub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}
