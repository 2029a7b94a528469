package broadcast

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cargoport/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
	sendQueueSize  = 32
)

var (
	errSubscriberClosed = errors.New("subscriber closed")
	errQueueFull        = errors.New("subscriber queue full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Display clients are served from other origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and streams hub events to the client until it
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			logging.String(logging.FieldEventType, "ws_upgrade_failed"),
			logging.String(logging.FieldErrorHint, "client must send a websocket upgrade request"),
			logging.Error(err),
		)
		return
	}

	sub := newWSSubscriber(conn)
	handle := h.Subscribe(sub)
	go sub.writeLoop()
	sub.readLoop()
	h.Unsubscribe(handle)
}

type wsSubscriber struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// Deliver queues payload without blocking. A slow client fails delivery.
func (s *wsSubscriber) Deliver(payload []byte) error {
	select {
	case <-s.done:
		return errSubscriberClosed
	default:
	}
	select {
	case s.send <- payload:
		return nil
	case <-s.done:
		return errSubscriberClosed
	default:
		return errQueueFull
	}
}

func (s *wsSubscriber) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

func (s *wsSubscriber) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.Close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// readLoop discards inbound messages and returns when the client goes away.
func (s *wsSubscriber) readLoop() {
	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			_ = s.Close()
			return
		}
	}
}
