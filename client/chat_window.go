package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
)

// ChatFetcher loads one page of chat history
type ChatFetcher interface {
	FetchChats(ctx context.Context, roomID, cursor string, limit int) (wire.ChatPage, error)
}

// ChatWindow is the loaded part of a room's chat, newest first. Live messages
// are prepended and never move the pagination cursor.
type ChatWindow struct {
	mu       sync.Mutex
	fetcher  ChatFetcher
	roomID   string
	pageSize int

	messages []wire.ChatMessage
	seen     map[string]struct{}
	cursor   string
	hasMore  bool
	loaded   bool
}

// NewChatWindow creates a window over roomID. pageSize 0 uses the server default.
func NewChatWindow(fetcher ChatFetcher, roomID string, pageSize int) *ChatWindow {
	return &ChatWindow{
		fetcher:  fetcher,
		roomID:   roomID,
		pageSize: pageSize,
		seen:     make(map[string]struct{}),
	}
}

// LoadOlder fetches the next page of older messages and returns how many were added.
// The first call loads the most recent page.
func (w *ChatWindow) LoadOlder(ctx context.Context) (int, error) {
	w.mu.Lock()
	if w.loaded && !w.hasMore {
		w.mu.Unlock()
		return 0, nil
	}
	cursor := w.cursor
	w.mu.Unlock()

	page, err := w.fetcher.FetchChats(ctx, w.roomID, cursor, w.pageSize)
	if err != nil {
		return 0, fmt.Errorf("load chat history: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded && w.cursor != cursor {
		// A concurrent LoadOlder already advanced the window
		return 0, nil
	}
	added := 0
	for _, m := range page.Chats {
		if _, dup := w.seen[m.ID]; dup {
			continue
		}
		w.seen[m.ID] = struct{}{}
		w.messages = append(w.messages, m)
		added++
	}
	w.loaded = true
	w.hasMore = page.Pagination.HasMore
	w.cursor = ""
	if page.Pagination.NextCursor != nil {
		w.cursor = *page.Pagination.NextCursor
	}
	return added, nil
}

// Prepend adds a live message at the newest end and reports whether it was new
func (w *ChatWindow) Prepend(m wire.ChatMessage) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.seen[m.ID]; dup {
		return false
	}
	w.seen[m.ID] = struct{}{}
	w.messages = append([]wire.ChatMessage{m}, w.messages...)
	return true
}

// Messages returns the loaded messages newest first
func (w *ChatWindow) Messages() []wire.ChatMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]wire.ChatMessage(nil), w.messages...)
}

// Chronological returns the loaded messages oldest first, for display
func (w *ChatWindow) Chronological() []wire.ChatMessage {
	msgs := w.Messages()
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}

// HasMore reports whether older messages remain on the server
func (w *ChatWindow) HasMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.loaded || w.hasMore
}
