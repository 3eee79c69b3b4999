package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/gorilla/websocket"
)

// ErrSessionClosed is returned by sends after Close
var ErrSessionClosed = errors.New("session closed")

// Session is one authenticated websocket connection to the server
type Session struct {
	conn   *websocket.Conn
	events chan wire.OutboundFrame

	writeMu   sync.Mutex
	closed    bool
	writeWait time.Duration
}

// WebSocketURL derives the websocket endpoint from an http(s) base URL
func WebSocketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"token": []string{token}}.Encode()
	return u.String(), nil
}

// Dial connects to serverURL with token
func Dial(ctx context.Context, serverURL, token string) (*Session, error) {
	wsURL, err := WebSocketURL(serverURL, token)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			slogging.Get().Error("WebSocket connection failed - status: %d body: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("websocket connection failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return &Session{
		conn:      conn,
		events:    make(chan wire.OutboundFrame, 64),
		writeWait: 10 * time.Second,
	}, nil
}

// Events delivers decoded server frames while Run is active. It is closed when Run returns.
func (s *Session) Events() <-chan wire.OutboundFrame {
	return s.events
}

// Run reads frames until the connection ends or ctx is cancelled. A server
// close is returned as *websocket.CloseError; a clean local close returns nil.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)

	connectionLost := make(chan error, 1)
	go func() {
		for {
			_, message, err := s.conn.ReadMessage()
			if err != nil {
				connectionLost <- err
				return
			}
			frame, err := wire.DecodeOutbound(message)
			if err != nil {
				slogging.Get().Warn("Failed to parse server frame: %v", err)
				continue
			}
			select {
			case s.events <- frame:
			case <-ctx.Done():
				connectionLost <- ctx.Err()
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		_ = s.Close()
		<-connectionLost
		return nil
	case err := <-connectionLost:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) || s.isClosed() {
			return nil
		}
		return fmt.Errorf("websocket connection lost: %w", err)
	}
}

func (s *Session) isClosed() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.closed
}

func (s *Session) write(frame wire.InboundFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send %s: %w", frame.Type, err)
	}
	return nil
}

// Join asks the server to add this connection to the room with join code code
func (s *Session) Join(code string) error {
	return s.write(wire.InboundFrame{Type: wire.FrameJoinRoom, RoomID: code})
}

// Leave removes this connection from the room's presence
func (s *Session) Leave(code string) error {
	return s.write(wire.InboundFrame{Type: wire.FrameLeaveRoom, RoomID: code})
}

// SendChat sends a chat message to the room
func (s *Session) SendChat(code, content string) error {
	return s.write(wire.InboundFrame{Type: wire.FrameChat, RoomID: code, Content: content})
}

// SendDraw sends an element; its ID is echoed back as ClientID
func (s *Session) SendDraw(code string, el wire.DrawElement) error {
	return s.write(wire.InboundFrame{Type: wire.FrameDraw, RoomID: code, Element: &el})
}

// Close sends a normal close frame and closes the connection
func (s *Session) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(s.writeWait))
	if err != nil {
		slogging.Get().Debug("Error sending WebSocket close message: %v", err)
	}
	return s.conn.Close()
}
