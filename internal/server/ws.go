package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ghanabus/bustracker/track"
)

const (
	// wsWriteTimeout bounds a single write so a stalled client cannot
	// block the broadcast path.
	wsWriteTimeout = 5 * time.Second

	// wsReadLimit caps inbound frames. Clients only ever send close and
	// control frames.
	wsReadLimit = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from the same origin, but devices and
	// local development hit the API cross-origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSubscriber adapts one WebSocket connection to the hub's Subscriber
// interface. Writes are serialized with a mutex since the hub and the
// read pump may race on close.
type wsSubscriber struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{id: uuid.NewString(), conn: conn}
}

func (c *wsSubscriber) ID() string { return c.id }

func (c *wsSubscriber) Ready() bool { return !c.closed.Load() }

func (c *wsSubscriber) Send(msg track.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *wsSubscriber) close() {
	if c.closed.CompareAndSwap(false, true) {
		_ = c.conn.Close()
	}
}

// handleStream upgrades the connection and attaches it to the hub. The
// read pump exists only to observe the close handshake; clients never
// send application data.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := newWSSubscriber(conn)
	conn.SetReadLimit(wsReadLimit)

	s.cfg.Hub.Attach(sub, s.cfg.Snapshot())
	s.logger.Info("stream client connected", "subscriber_id", sub.ID())

	go s.readPump(sub)
}

func (s *Server) readPump(sub *wsSubscriber) {
	defer func() {
		sub.close()
		s.cfg.Hub.Detach(sub.ID())
		s.logger.Info("stream client disconnected", "subscriber_id", sub.ID())
	}()

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}
