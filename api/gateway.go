package api

import (
	"context"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
)

// RoomRecord is the persisted view of a room the coordination engine needs
type RoomRecord struct {
	ID       string
	Title    string
	JoinCode string
	AdminID  string
}

// Gateway is the durable store behind the engine. Every method may block on I/O
// and returns an error wrapping ErrPersistenceFailure when the store fails.
type Gateway interface {
	// FindRoomByCode returns ErrRoomNotFound when no room has the join code
	FindRoomByCode(ctx context.Context, code string) (*RoomRecord, error)
	// FindRoomByID returns ErrRoomNotFound when the id is unknown
	FindRoomByID(ctx context.Context, id string) (*RoomRecord, error)
	// EnsureUser records the identity so history can show display names
	EnsureUser(ctx context.Context, id auth.Identity) error
	// UpsertMembership idempotently adds userID to the room's permanent members
	UpsertMembership(ctx context.Context, roomID, userID string) error
	// IsMember reads back permanent membership
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	CreateChat(ctx context.Context, roomID, userID, content string) (wire.ChatMessage, error)
	// PageChats returns up to limit messages strictly older than cursor, newest
	// first. An unknown cursor yields ErrInvalidCursor.
	PageChats(ctx context.Context, roomID, cursor string, limit int) ([]wire.ChatMessage, error)
	CreateDraw(ctx context.Context, roomID, userID string, el wire.DrawElement) (wire.DrawElement, error)
	// ListDraws returns every element of the room in persisted order
	ListDraws(ctx context.Context, roomID string) ([]wire.DrawElement, error)
}
