package main

import (
	"context"
	"fmt"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
)

// seedOptions describes the development data to create
type seedOptions struct {
	Admin    auth.Identity
	Guests   []auth.Identity
	Title    string
	Messages int
	TokenTTL time.Duration
}

// seededUser is a user with a ready-to-use token
type seededUser struct {
	Identity auth.Identity
	Token    string
}

// seedResult is what the seed tool prints
type seedResult struct {
	Room  *api.RoomRecord
	Users []seededUser
}

// seed creates a room owned by the admin, makes every guest a member, writes
// sample chat messages and issues a token per user
func seed(ctx context.Context, gw *api.GormGateway, keys *auth.JWTKeyManager, opts seedOptions) (*seedResult, error) {
	room, err := gw.CreateRoom(ctx, opts.Title, opts.Admin)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	users := append([]auth.Identity{opts.Admin}, opts.Guests...)
	for _, guest := range opts.Guests {
		if err := gw.EnsureUser(ctx, guest); err != nil {
			return nil, fmt.Errorf("create user %s: %w", guest.UserID, err)
		}
		if err := gw.UpsertMembership(ctx, room.ID, guest.UserID); err != nil {
			return nil, fmt.Errorf("add member %s: %w", guest.UserID, err)
		}
	}

	for i := 0; i < opts.Messages; i++ {
		author := users[i%len(users)]
		content := fmt.Sprintf("Sample message %d from %s", i+1, author.DisplayName)
		if _, err := gw.CreateChat(ctx, room.ID, author.UserID, content); err != nil {
			return nil, fmt.Errorf("create chat %d: %w", i+1, err)
		}
	}

	result := &seedResult{Room: room}
	for _, id := range users {
		token, err := auth.IssueToken(keys, id, opts.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("issue token for %s: %w", id.UserID, err)
		}
		result.Users = append(result.Users, seededUser{Identity: id, Token: token})
	}
	return result, nil
}
