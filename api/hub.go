package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/SobhanSah00/iiit-bbsrDrawisly/api")

// DuplicatePolicy decides what Register does when the user already has a live connection
type DuplicatePolicy int

const (
	// ReplaceExisting force-closes the older connection
	ReplaceExisting DuplicatePolicy = iota
	// RejectDuplicate refuses the newer connection with ErrDuplicateConnection
	RejectDuplicate
)

// closeSlowConsumer is sent to participants whose outbound queue overflowed
const closeSlowConsumer = 1008

// roomPresence is the live participant set of one room, keyed by user id
type roomPresence struct {
	roomID  string
	members map[string]*Participant
}

// Hub is the connection registry and room directory. A single mutex serialises
// every mutation of both maps and every fan-out, so presence always reflects a
// linearizable history of joins and leaves. The lock is never held across
// persistence calls.
type Hub struct {
	mu           sync.Mutex
	participants map[string]*Participant   // userID -> participant
	rooms        map[string]*roomPresence // join code -> presence

	gateway Gateway
	metrics *Metrics
	policy  DuplicatePolicy
	logger  *slogging.Logger
}

// NewHub creates a hub backed by gateway. metrics may be nil.
func NewHub(gateway Gateway, metrics *Metrics) *Hub {
	return &Hub{
		participants: make(map[string]*Participant),
		rooms:        make(map[string]*roomPresence),
		gateway:      gateway,
		metrics:      metrics,
		policy:       ReplaceExisting,
		logger:       slogging.Get(),
	}
}

// SetDuplicatePolicy changes how duplicate connections are handled
func (h *Hub) SetDuplicatePolicy(p DuplicatePolicy) {
	h.mu.Lock()
	h.policy = p
	h.mu.Unlock()
}

// Register adds an authenticated connection. Under ReplaceExisting an older
// connection of the same user is removed from every room and closed.
func (h *Hub) Register(id auth.Identity, handle Handle) (*Participant, error) {
	p := &Participant{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		ConnID:      uuid.NewString(),
		ConnectedAt: time.Now().UTC(),
		handle:      handle,
		rooms:       make(map[string]*roomSlot),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.participants[id.UserID]; ok {
		if h.policy == RejectDuplicate && old.handle.IsOpen() {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateConnection, id.UserID)
		}
		h.logger.Info("Replacing connection %s of user %s with %s", old.ConnID, id.UserID, p.ConnID)
		h.removeLocked(old)
		old.handle.Close(wire.CloseReplaced, "replaced by a newer connection")
	}

	h.participants[id.UserID] = p
	h.metrics.connectionOpened()
	h.logger.Debug("Registered participant user_id=%s conn_id=%s", p.UserID, p.ConnID)
	return p, nil
}

// Lookup returns the live participant for userID
func (h *Hub) Lookup(userID string) (*Participant, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.participants[userID]
	return p, ok
}

// Unregister removes p and leaves every room it had joined, announcing each departure.
// It is a no-op if p was already replaced or removed.
func (h *Hub) Unregister(p *Participant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.participants[p.UserID] != p {
		return
	}
	h.removeLocked(p)
}

// removeLocked drops p from the registry and from every room. Caller holds h.mu.
func (h *Hub) removeLocked(p *Participant) {
	delete(h.participants, p.UserID)
	h.metrics.connectionClosed()

	codes := make([]string, 0, len(p.rooms))
	for code, slot := range p.rooms {
		if slot.state == Joined {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	p.rooms = make(map[string]*roomSlot)

	for _, code := range codes {
		if h.removePresenceLocked(code, p) {
			h.broadcastLocked(code, wire.NewInfo(code, fmt.Sprintf("User %s left the room", p.DisplayName)))
		}
	}
	h.logger.Debug("Removed participant user_id=%s conn_id=%s rooms=%d", p.UserID, p.ConnID, len(codes))
}

// removePresenceLocked deletes p from a room's presence, dropping the presence
// entry once empty. It reports whether p was present.
func (h *Hub) removePresenceLocked(code string, p *Participant) bool {
	presence, ok := h.rooms[code]
	if !ok || presence.members[p.UserID] != p {
		return false
	}
	delete(presence.members, p.UserID)
	if len(presence.members) == 0 {
		delete(h.rooms, code)
	}
	return true
}

// JoinResult describes the outcome of a successful Join
type JoinResult struct {
	Room          *RoomRecord
	AlreadyJoined bool
}

// Join moves p into the room identified by join code. The room must exist and
// membership must be visible after the upsert before presence changes and the
// arrival is announced. Joining an already-joined room changes nothing.
func (h *Hub) Join(ctx context.Context, p *Participant, code string) (*JoinResult, error) {
	ctx, span := tracer.Start(ctx, "hub.join")
	defer span.End()
	span.SetAttributes(attribute.String("room.code", code), attribute.String("user.id", p.UserID))

	h.mu.Lock()
	if h.participants[p.UserID] != p {
		h.mu.Unlock()
		return nil, ErrParticipantGone
	}
	slot := p.rooms[code]
	alreadyJoined := slot != nil && slot.state == Joined
	if slot != nil && slot.state == Joining {
		h.mu.Unlock()
		h.logger.Debug("Join of %s by %s already in progress", code, p.UserID)
		return &JoinResult{AlreadyJoined: true}, nil
	}
	if !alreadyJoined {
		slot = &roomSlot{state: Joining}
		p.rooms[code] = slot
	}
	h.mu.Unlock()

	room, err := h.confirmMembership(ctx, p, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.mu.Lock()
		if !alreadyJoined && p.rooms[code] == slot {
			delete(p.rooms, code)
		}
		h.mu.Unlock()
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.participants[p.UserID] != p {
		return nil, ErrParticipantGone
	}
	if alreadyJoined {
		return &JoinResult{Room: room, AlreadyJoined: true}, nil
	}
	if p.rooms[code] != slot {
		// A leave arrived while the join was suspended
		return nil, fmt.Errorf("%w: %s", ErrNotJoined, code)
	}

	slot.state = Joined
	slot.roomID = room.ID
	presence, ok := h.rooms[code]
	if !ok {
		presence = &roomPresence{roomID: room.ID, members: make(map[string]*Participant)}
		h.rooms[code] = presence
	}
	presence.members[p.UserID] = p
	h.metrics.roomJoined()

	h.logger.Info("User %s joined room %s", p.UserID, code)
	h.broadcastLocked(code, wire.NewInfo(code, fmt.Sprintf("User %s joined the room", p.DisplayName)))
	return &JoinResult{Room: room}, nil
}

// confirmMembership runs the persistence half of a join without holding the lock
func (h *Hub) confirmMembership(ctx context.Context, p *Participant, code string) (*RoomRecord, error) {
	room, err := h.gateway.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := h.gateway.EnsureUser(ctx, p.Identity()); err != nil {
		return nil, err
	}
	if err := h.gateway.UpsertMembership(ctx, room.ID, p.UserID); err != nil {
		return nil, err
	}
	member, err := h.gateway.IsMember(ctx, room.ID, p.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: room %s user %s", ErrMembershipWriteInconsistent, code, p.UserID)
	}
	return room, nil
}

// Leave removes p from the room's presence without touching permanent
// membership, and announces the departure. Unknown rooms are a no-op.
func (h *Hub) Leave(p *Participant, code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	slot, ok := p.rooms[code]
	if !ok {
		return false
	}
	wasJoined := slot.state == Joined
	delete(p.rooms, code)

	if !wasJoined || !h.removePresenceLocked(code, p) {
		return false
	}
	h.logger.Info("User %s left room %s", p.UserID, code)
	h.broadcastLocked(code, wire.NewInfo(code, fmt.Sprintf("User %s left the room", p.DisplayName)))
	return true
}

// RoomFor returns the database id of a room p has joined
func (h *Hub) RoomFor(p *Participant, code string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.participants[p.UserID] != p {
		return "", ErrParticipantGone
	}
	slot, ok := p.rooms[code]
	if !ok || slot.state != Joined {
		return "", fmt.Errorf("%w: %s", ErrNotJoined, code)
	}
	return slot.roomID, nil
}

// Broadcast delivers payload to every open participant in the room's presence.
// Delivery is best effort and unacknowledged. It returns the number of
// participants the payload was queued for.
func (h *Hub) Broadcast(code string, payload any) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.broadcastLocked(code, payload)
}

func (h *Hub) broadcastLocked(code string, payload any) int {
	presence, ok := h.rooms[code]
	if !ok {
		return 0
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast for room %s: %v", code, err)
		return 0
	}

	delivered := 0
	for _, p := range presence.members {
		if !p.handle.IsOpen() {
			continue
		}
		if !p.handle.Send(data) {
			// Slow consumer: the transport drops it, disconnect cleanup follows
			h.logger.WithUser(p.UserID, p.ConnID).Warn("Send queue full in room %s, closing connection", code)
			p.handle.Close(closeSlowConsumer, "send queue full")
			h.metrics.slowConsumerDropped()
			continue
		}
		delivered++
	}
	h.metrics.framesBroadcast(delivered)
	return delivered
}

// Presence returns the sorted user ids currently present in the room
func (h *Hub) Presence(code string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	presence, ok := h.rooms[code]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(presence.members))
	for id := range presence.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasRoom reports whether any presence entry exists for the room
func (h *Hub) HasRoom(code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[code]
	return ok
}

// Stats is a point-in-time view of the hub
type Stats struct {
	Participants int `json:"participants"`
	Rooms        int `json:"rooms"`
}

// Stats returns current counts
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Participants: len(h.participants), Rooms: len(h.rooms)}
}

// Reap unregisters participants whose transport has closed without a clean
// disconnect and returns how many were removed.
func (h *Hub) Reap() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var stale []*Participant
	for _, p := range h.participants {
		if !p.handle.IsOpen() {
			stale = append(stale, p)
		}
	}
	for _, p := range stale {
		h.removeLocked(p)
	}
	for code, presence := range h.rooms {
		if len(presence.members) == 0 {
			delete(h.rooms, code)
		}
	}
	if len(stale) > 0 {
		h.logger.Info("Reaped %d stale participants", len(stale))
	}
	return len(stale)
}

// RunReaper calls Reap every interval until ctx is done
func (h *Hub) RunReaper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			h.Reap()
		}
	}
}

// Shutdown closes every registered connection
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.participants {
		p.handle.Close(1001, "server shutting down")
	}
}
