package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tutumagi/soul/agent"
	"github.com/tutumagi/soul/logger"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Frame is one broadcast of the agent views
type Frame struct {
	Tick   uint64       `json:"tick"`
	Time   time.Time    `json:"time"`
	Agents []agent.View `json:"agents"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub broadcasts agent views to every connected viewer. Viewers only read,
// anything they send is discarded.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	tick    uint64
	last    []byte
}

// NewHub creates a hub accepting any origin
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
}

// Clients connected
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends views to every viewer. A viewer too slow to keep up misses
// frames. The signature matches world.Listener.
func (h *Hub) Publish(now time.Time, views []agent.View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.tick++
	data, err := json.Marshal(Frame{Tick: h.tick, Time: now, Agents: views})
	if err != nil {
		logger.Warn("marshal monitor frame failed", zap.Error(err))
		return
	}
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ServeHTTP upgrades the request and streams frames, starting with the last
// published one.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("monitor upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	logger.Debug("monitor viewer connected", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Close disconnects every viewer
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = map[*client]struct{}{}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// ListenAndServe serves the hub on /ws until ctx is done
func ListenAndServe(ctx context.Context, addr string, h *Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("monitor listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
