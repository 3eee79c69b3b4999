package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MessageHandler handles one inbound frame type
type MessageHandler interface {
	HandleMessage(ctx context.Context, r *Router, p *Participant, frame *wire.InboundFrame) error
	MessageType() wire.FrameType
}

// Router dispatches inbound frames to handlers and turns handler failures into
// reply-only error frames. No failure closes the connection.
type Router struct {
	handlers map[wire.FrameType]MessageHandler

	hub            *Hub
	gateway        Gateway
	limiter        FrameLimiter
	metrics        *Metrics
	persistTimeout time.Duration
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithFrameLimiter rate limits chat and draw frames
func WithFrameLimiter(l FrameLimiter) RouterOption {
	return func(r *Router) { r.limiter = l }
}

// WithPersistTimeout bounds every persistence call made while handling a frame
func WithPersistTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.persistTimeout = d }
}

// NewRouter creates a router with the join_room, leave_room, chat and draw handlers
func NewRouter(hub *Hub, gateway Gateway, metrics *Metrics, opts ...RouterOption) *Router {
	r := &Router{
		handlers:       make(map[wire.FrameType]MessageHandler),
		hub:            hub,
		gateway:        gateway,
		metrics:        metrics,
		persistTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.RegisterHandler(&JoinRoomHandler{})
	r.RegisterHandler(&LeaveRoomHandler{})
	r.RegisterHandler(&ChatHandler{})
	r.RegisterHandler(&DrawHandler{})
	return r
}

// RegisterHandler registers a handler for its frame type
func (r *Router) RegisterHandler(h MessageHandler) {
	r.handlers[h.MessageType()] = h
}

// Route parses and dispatches one frame from p
func (r *Router) Route(ctx context.Context, p *Participant, message []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			slogging.Get().Error("PANIC in Route - user: %s, conn: %s, error: %v, stack: %s",
				p.UserID, p.ConnID, rec, debug.Stack())
			r.replyError(p, "internal error")
		}
	}()

	var frame wire.InboundFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		slogging.Get().Debug("Unparseable frame from user %s: %v", p.UserID, err)
		r.metrics.frameRejected("malformed")
		r.replyError(p, "malformed frame")
		return
	}

	handler, ok := r.handlers[frame.Type]
	if !ok {
		slogging.Get().Warn("Unsupported message type '%s' from user %s", frame.Type, p.UserID)
		r.metrics.frameRejected("unsupported")
		r.replyError(p, fmt.Sprintf("unsupported message type '%s'", frame.Type))
		return
	}
	r.metrics.frameReceived(string(frame.Type))

	ctx, span := tracer.Start(ctx, "router."+string(frame.Type))
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", p.UserID),
		attribute.String("room.code", frame.RoomID),
	)

	if err := handler.HandleMessage(ctx, r, p, &frame); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.handleError(p, &frame, err)
	}
}

// handleError maps a handler failure onto the reply sent to the sender
func (r *Router) handleError(p *Participant, frame *wire.InboundFrame, err error) {
	logger := slogging.Get()
	switch {
	case errors.Is(err, ErrParticipantGone):
		logger.Debug("Dropping %s frame from disconnected user %s", frame.Type, p.UserID)
		r.metrics.frameRejected("gone")
	case errors.Is(err, ErrEmptyContent):
		logger.Debug("Dropping empty chat from user %s in room %s", p.UserID, frame.RoomID)
		r.metrics.frameRejected("empty")
	case errors.Is(err, ErrInvalidShapeKind):
		logger.Warn("Dropping draw with invalid shape from user %s in room %s: %v", p.UserID, frame.RoomID, err)
		r.metrics.frameRejected("invalid_shape")
	case errors.Is(err, ErrMalformedFrame):
		r.metrics.frameRejected("malformed")
		r.replyError(p, err.Error())
	case errors.Is(err, ErrRoomNotFound):
		r.metrics.frameRejected("room_not_found")
		r.replyError(p, fmt.Sprintf("room %s not found", frame.RoomID))
	case errors.Is(err, ErrNotJoined):
		r.metrics.frameRejected("not_joined")
		r.replyError(p, fmt.Sprintf("not joined to room %s", frame.RoomID))
	case errors.Is(err, ErrMembershipWriteInconsistent):
		logger.Error("Membership inconsistency for user %s in room %s: %v", p.UserID, frame.RoomID, err)
		r.metrics.frameRejected("membership")
		r.replyError(p, fmt.Sprintf("could not join room %s", frame.RoomID))
	case errors.Is(err, ErrRateLimited):
		r.metrics.frameRejected("rate_limited")
		r.replyError(p, "rate limit exceeded")
	default:
		logger.Error("Failed to handle %s frame from user %s in room %s: %v", frame.Type, p.UserID, frame.RoomID, err)
		r.metrics.frameRejected("persistence")
		r.replyError(p, fmt.Sprintf("failed to process %s", frame.Type))
	}
}

func (r *Router) replyError(p *Participant, content string) {
	data, err := json.Marshal(wire.NewError(content))
	if err != nil {
		return
	}
	p.Send(data)
}

// persistCtx bounds a persistence suspend point
func (r *Router) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.persistTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.persistTimeout)
}

// checkRate consults the frame limiter, if any
func (r *Router) checkRate(ctx context.Context, p *Participant) error {
	if r.limiter == nil {
		return nil
	}
	allowed, err := r.limiter.Allow(ctx, p.UserID)
	if err != nil {
		// Fail open while the limiter store is unavailable
		slogging.Get().Warn("Rate limiter unavailable for user %s: %v", p.UserID, err)
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func requireRoom(frame *wire.InboundFrame) error {
	if frame.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrMalformedFrame)
	}
	return nil
}
