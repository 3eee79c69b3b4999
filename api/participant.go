package api

import (
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
)

// Handle is the engine's non-owning reference to a participant's transport.
// Send and Close must not block.
type Handle interface {
	// Send queues payload for delivery and reports false if it could not be queued
	Send(payload []byte) bool
	// Close asks the transport to close with a websocket close code
	Close(code int, reason string)
	// IsOpen reports whether the transport can still deliver
	IsOpen() bool
}

// JoinState is the per-room lifecycle of a participant
type JoinState int

const (
	NotJoined JoinState = iota
	Joining
	Joined
)

func (s JoinState) String() string {
	switch s {
	case NotJoined:
		return "not_joined"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	default:
		return "unknown"
	}
}

// Participant is a registered, authenticated connection.
// rooms is guarded by the owning Hub's mutex.
type Participant struct {
	UserID      string
	DisplayName string
	ConnID      string
	ConnectedAt time.Time

	handle Handle
	rooms  map[string]*roomSlot
}

// roomSlot tracks one room of a participant
type roomSlot struct {
	state  JoinState
	roomID string // database id, set once joined
}

// Identity returns the identity the participant authenticated as
func (p *Participant) Identity() auth.Identity {
	return auth.Identity{UserID: p.UserID, DisplayName: p.DisplayName}
}

// Send writes a frame directly to this participant only
func (p *Participant) Send(payload []byte) bool {
	if !p.handle.IsOpen() {
		return false
	}
	return p.handle.Send(payload)
}
