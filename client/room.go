package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
)

// Room is the client-side view of one joined room
type Room struct {
	Code   string
	Canvas *Canvas
	Chat   *ChatWindow

	session *Session
	history *HistoryClient

	mu    sync.Mutex
	infos []string
}

// EnterRoom joins the room, replays its drawing and loads the latest chat page.
// Frames from session should be passed to Dispatch as they arrive.
func EnterRoom(ctx context.Context, session *Session, history *HistoryClient, code string, pageSize int) (*Room, error) {
	r := &Room{
		Code:    code,
		Canvas:  NewCanvas(),
		Chat:    NewChatWindow(history, code, pageSize),
		session: session,
		history: history,
	}

	if err := session.Join(code); err != nil {
		return nil, err
	}

	draws, err := history.FetchDraws(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("replay drawing: %w", err)
	}
	r.Canvas.Load(draws)

	if _, err := r.Chat.LoadOlder(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Draw adds el to the canvas immediately and sends it to the room
func (r *Room) Draw(el wire.DrawElement) (wire.DrawElement, error) {
	local := r.Canvas.AddLocal(el)
	if err := r.session.SendDraw(r.Code, local); err != nil {
		r.Canvas.Discard(local.ID)
		return wire.DrawElement{}, err
	}
	return local, nil
}

// Say sends a chat message. It appears in the window once the server confirms it.
func (r *Room) Say(content string) error {
	return r.session.SendChat(r.Code, content)
}

// Leave leaves the room's presence
func (r *Room) Leave() error {
	return r.session.Leave(r.Code)
}

// Dispatch applies a server frame addressed to this room and reports whether it was used
func (r *Room) Dispatch(f wire.OutboundFrame) bool {
	if f.RoomID != "" && f.RoomID != r.Code {
		return false
	}

	switch f.Type {
	case wire.FrameDraw:
		el, err := f.Draw()
		if err != nil {
			slogging.Get().Warn("Ignoring undecodable draw frame: %v", err)
			return false
		}
		r.Canvas.ApplyRemote(el)
	case wire.FrameChat:
		msg, err := f.Chat()
		if err != nil {
			slogging.Get().Warn("Ignoring undecodable chat frame: %v", err)
			return false
		}
		r.Chat.Prepend(msg)
	case wire.FrameInfo:
		r.mu.Lock()
		r.infos = append(r.infos, f.Content)
		r.mu.Unlock()
	default:
		return false
	}
	return true
}

// Infos returns the presence notifications received so far
func (r *Room) Infos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.infos...)
}
