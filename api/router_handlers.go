package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/unicodecheck"
)

// JoinRoomHandler handles join_room frames
type JoinRoomHandler struct{}

// MessageType implements MessageHandler
func (h *JoinRoomHandler) MessageType() wire.FrameType { return wire.FrameJoinRoom }

// HandleMessage implements MessageHandler
func (h *JoinRoomHandler) HandleMessage(ctx context.Context, r *Router, p *Participant, frame *wire.InboundFrame) error {
	if err := requireRoom(frame); err != nil {
		return err
	}
	ctx, cancel := r.persistCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := r.hub.Join(ctx, p, frame.RoomID)
	r.metrics.observePersist("join", time.Since(start).Seconds())
	return err
}

// LeaveRoomHandler handles leave_room frames
type LeaveRoomHandler struct{}

// MessageType implements MessageHandler
func (h *LeaveRoomHandler) MessageType() wire.FrameType { return wire.FrameLeaveRoom }

// HandleMessage implements MessageHandler. Leaving a room that was never joined is a no-op.
func (h *LeaveRoomHandler) HandleMessage(_ context.Context, r *Router, p *Participant, frame *wire.InboundFrame) error {
	if err := requireRoom(frame); err != nil {
		return err
	}
	r.hub.Leave(p, frame.RoomID)
	return nil
}

// ChatHandler persists a chat message and fans it out to the room
type ChatHandler struct{}

// MessageType implements MessageHandler
func (h *ChatHandler) MessageType() wire.FrameType { return wire.FrameChat }

// HandleMessage implements MessageHandler
func (h *ChatHandler) HandleMessage(ctx context.Context, r *Router, p *Participant, frame *wire.InboundFrame) error {
	if err := requireRoom(frame); err != nil {
		return err
	}
	content := strings.TrimSpace(unicodecheck.Clean(frame.Content))
	if content == "" {
		return ErrEmptyContent
	}

	roomID, err := r.hub.RoomFor(p, frame.RoomID)
	if err != nil {
		return err
	}
	if err := r.checkRate(ctx, p); err != nil {
		return err
	}

	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	start := time.Now()
	msg, err := r.gateway.CreateChat(pctx, roomID, p.UserID, content)
	r.metrics.observePersist("chat", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("create chat: %w", err)
	}

	msg.RoomID = frame.RoomID
	msg.Author = wire.Author{UserID: p.UserID, Username: p.DisplayName}
	r.hub.Broadcast(frame.RoomID, wire.ChatFrame{Type: wire.FrameChat, ChatMessage: msg})
	return nil
}

// DrawHandler persists a draw element and fans it out with the sender's temporary id echoed
type DrawHandler struct{}

// MessageType implements MessageHandler
func (h *DrawHandler) MessageType() wire.FrameType { return wire.FrameDraw }

// HandleMessage implements MessageHandler
func (h *DrawHandler) HandleMessage(ctx context.Context, r *Router, p *Participant, frame *wire.InboundFrame) error {
	if err := requireRoom(frame); err != nil {
		return err
	}
	if frame.Element == nil {
		return fmt.Errorf("%w: element is required", ErrMalformedFrame)
	}

	roomID, err := r.hub.RoomFor(p, frame.RoomID)
	if err != nil {
		return err
	}

	el := *frame.Element
	kind, err := wire.ParseShapeKind(string(el.ShapeKind))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidShapeKind, err)
	}
	el.ShapeKind = kind
	if el.Text != nil {
		text := unicodecheck.Clean(*el.Text)
		el.Text = &text
	}

	if err := r.checkRate(ctx, p); err != nil {
		return err
	}

	clientID := el.ID
	el.ID = ""
	el.ClientID = ""

	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	start := time.Now()
	saved, err := r.gateway.CreateDraw(pctx, roomID, p.UserID, el)
	r.metrics.observePersist("draw", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("create draw: %w", err)
	}

	saved.ClientID = clientID
	r.hub.Broadcast(frame.RoomID, wire.DrawFrame{Type: wire.FrameDraw, RoomID: frame.RoomID, DrawElement: saved})
	return nil
}
