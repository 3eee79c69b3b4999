package api

import (
	"context"
	"fmt"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
)

// ChatPaginator serves reverse-chronological, cursor-bounded pages of chat history
type ChatPaginator struct {
	gateway      Gateway
	defaultLimit int
	maxLimit     int
}

// NewChatPaginator creates a paginator. Limits outside [1, maxLimit] are clamped.
func NewChatPaginator(gateway Gateway, defaultLimit, maxLimit int) *ChatPaginator {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &ChatPaginator{gateway: gateway, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// ClampLimit maps a requested page size onto the allowed range; 0 means default
func (cp *ChatPaginator) ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return cp.defaultLimit
	case limit < 1:
		return 1
	case limit > cp.maxLimit:
		return cp.maxLimit
	}
	return limit
}

// Page returns up to limit messages strictly older than cursor, newest first.
// An empty cursor starts from the newest message.
func (cp *ChatPaginator) Page(ctx context.Context, roomID, cursor string, limit int) (wire.ChatPage, error) {
	limit = cp.ClampLimit(limit)

	chats, err := cp.gateway.PageChats(ctx, roomID, cursor, limit+1)
	if err != nil {
		return wire.ChatPage{}, fmt.Errorf("page chats: %w", err)
	}

	page := wire.ChatPage{Chats: chats}
	if len(chats) > limit {
		page.Chats = chats[:limit]
		page.Pagination.HasMore = true
		next := page.Chats[limit-1].ID
		page.Pagination.NextCursor = &next
	}
	if page.Chats == nil {
		page.Chats = []wire.ChatMessage{}
	}
	return page, nil
}
