package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/gorilla/websocket"
)

// TransportConfig tunes the websocket pumps
type TransportConfig struct {
	ReadLimitBytes int64
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	SendBufferSize int
	LogMessages    bool
}

// DefaultTransportConfig returns the transport defaults
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ReadLimitBytes: 64 * 1024,
		PongWait:       60 * time.Second,
		PingPeriod:     30 * time.Second,
		WriteWait:      10 * time.Second,
		SendBufferSize: 256,
	}
}

// wsHandle is the gorilla websocket implementation of Handle. Frames are queued
// on a bounded channel and written by a single writer goroutine.
type wsHandle struct {
	conn *websocket.Conn
	cfg  TransportConfig

	send chan []byte
	done chan struct{}
	open atomic.Bool

	closeOnce   sync.Once
	closeCode   int
	closeReason string

	connID string
	userID string
}

func newWSHandle(conn *websocket.Conn, cfg TransportConfig) *wsHandle {
	size := cfg.SendBufferSize
	if size <= 0 {
		size = 256
	}
	h := &wsHandle{
		conn: conn,
		cfg:  cfg,
		send: make(chan []byte, size),
		done: make(chan struct{}),
	}
	h.open.Store(true)
	return h
}

// Send implements Handle
func (h *wsHandle) Send(payload []byte) bool {
	if !h.open.Load() {
		return false
	}
	select {
	case h.send <- payload:
		return true
	default:
		return false
	}
}

// Close implements Handle. The writer goroutine sends the close frame.
func (h *wsHandle) Close(code int, reason string) {
	h.closeOnce.Do(func() {
		h.closeCode = code
		h.closeReason = reason
		h.open.Store(false)
		close(h.done)
	})
}

// IsOpen implements Handle
func (h *wsHandle) IsOpen() bool {
	return h.open.Load()
}

func (h *wsHandle) logConfig() slogging.WebSocketLoggingConfig {
	return slogging.WebSocketLoggingConfig{Enabled: h.cfg.LogMessages, MaxMessageSize: 8 * 1024}
}

// readPump reads frames until the connection fails and hands each to route
func (h *wsHandle) readPump(route func([]byte)) {
	defer h.Close(websocket.CloseNormalClosure, "")

	if h.cfg.ReadLimitBytes > 0 {
		h.conn.SetReadLimit(h.cfg.ReadLimitBytes)
	}
	_ = h.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	h.conn.SetPongHandler(func(string) error {
		_ = h.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slogging.Get().Warn("WebSocket read error for user %s conn %s: %v", h.userID, h.connID, err)
			}
			return
		}
		slogging.LogWebSocketMessage(slogging.WSMessageInbound, h.connID, h.userID, message, h.logConfig())
		route(message)
	}
}

// writePump drains the send queue, pings, and closes the socket once done is signalled
func (h *wsHandle) writePump(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = h.conn.Close()
	}()

	for {
		select {
		case message := <-h.send:
			_ = h.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := h.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
			slogging.LogWebSocketMessage(slogging.WSMessageOutbound, h.connID, h.userID, message, h.logConfig())
		case <-ticker.C:
			_ = h.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := h.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-ctx.Done():
			h.Close(websocket.CloseGoingAway, "server shutting down")
		case <-h.done:
			h.flush()
			writeClose(h.conn, h.closeCode, h.closeReason, h.cfg.WriteWait)
			return
		}
	}
}

// flush writes frames queued before the close was requested
func (h *wsHandle) flush() {
	for {
		select {
		case message := <-h.send:
			_ = h.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := h.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// writeClose sends a close control frame; codes the protocol forbids on the wire are skipped
func writeClose(conn *websocket.Conn, code int, reason string, wait time.Duration) {
	if code == websocket.CloseAbnormalClosure || code == websocket.CloseNoStatusReceived {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wait))
}
