package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth/db"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingHandle is an in-memory Handle that keeps every frame it was sent
type recordingHandle struct {
	mu        sync.Mutex
	frames    [][]byte
	open      bool
	capacity  int
	closeCode int
}

func newRecordingHandle() *recordingHandle {
	return &recordingHandle{open: true}
}

func (h *recordingHandle) Send(payload []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return false
	}
	if h.capacity > 0 && len(h.frames) >= h.capacity {
		return false
	}
	h.frames = append(h.frames, payload)
	return true
}

func (h *recordingHandle) Close(code int, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open {
		h.open = false
		h.closeCode = code
	}
}

func (h *recordingHandle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

func (h *recordingHandle) CloseCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeCode
}

func (h *recordingHandle) Frames(t *testing.T) []wire.OutboundFrame {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]wire.OutboundFrame, 0, len(h.frames))
	for _, raw := range h.frames {
		f, err := wire.DecodeOutbound(raw)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func (h *recordingHandle) OfType(t *testing.T, typ wire.FrameType) []wire.OutboundFrame {
	t.Helper()
	var out []wire.OutboundFrame
	for _, f := range h.Frames(t) {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (h *recordingHandle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = nil
}

// fakeGateway is an in-memory Gateway with failure injection
type fakeGateway struct {
	mu      sync.Mutex
	rooms   map[string]*RoomRecord // code -> room
	members map[string]bool        // roomID|userID
	users   map[string]string
	chats   []wire.ChatMessage
	draws   map[string][]wire.DrawElement
	seq     int64

	// hideMembership makes IsMember report false after a successful upsert
	hideMembership bool
	// failures injects an error for the named operation
	failures map[string]error
	// onUpsert runs inside UpsertMembership, before it returns
	onUpsert func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		rooms:    make(map[string]*RoomRecord),
		members:  make(map[string]bool),
		users:    make(map[string]string),
		draws:    make(map[string][]wire.DrawElement),
		failures: make(map[string]error),
	}
}

func (g *fakeGateway) addRoom(code string) *RoomRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := &RoomRecord{ID: uuid.NewString(), Title: "room " + code, JoinCode: code, AdminID: "admin"}
	g.rooms[code] = r
	return r
}

func (g *fakeGateway) fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = err
}

func (g *fakeGateway) failure(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failures[op]; ok {
		return fmt.Errorf("%w: %s: %v", ErrPersistenceFailure, op, err)
	}
	return nil
}

func (g *fakeGateway) FindRoomByCode(_ context.Context, code string) (*RoomRecord, error) {
	if err := g.failure("FindRoomByCode"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (g *fakeGateway) FindRoomByID(_ context.Context, id string) (*RoomRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrRoomNotFound
}

func (g *fakeGateway) EnsureUser(_ context.Context, id auth.Identity) error {
	if err := g.failure("EnsureUser"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[id.UserID] = id.DisplayName
	return nil
}

func (g *fakeGateway) UpsertMembership(_ context.Context, roomID, userID string) error {
	if err := g.failure("UpsertMembership"); err != nil {
		return err
	}
	g.mu.Lock()
	g.members[roomID+"|"+userID] = true
	hook := g.onUpsert
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (g *fakeGateway) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hideMembership {
		return false, nil
	}
	return g.members[roomID+"|"+userID], nil
}

func (g *fakeGateway) isMember(roomID, userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.members[roomID+"|"+userID]
}

func (g *fakeGateway) CreateChat(_ context.Context, roomID, userID, content string) (wire.ChatMessage, error) {
	if err := g.failure("CreateChat"); err != nil {
		return wire.ChatMessage{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	msg := wire.ChatMessage{
		ID:         uuid.Must(uuid.NewV7()).String(),
		SequenceNo: g.seq,
		RoomID:     roomID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Author:     wire.Author{UserID: userID, Username: g.users[userID]},
	}
	g.chats = append(g.chats, msg)
	return msg, nil
}

func (g *fakeGateway) PageChats(_ context.Context, roomID, cursor string, limit int) ([]wire.ChatMessage, error) {
	if err := g.failure("PageChats"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var room []wire.ChatMessage
	for _, c := range g.chats {
		if c.RoomID == roomID {
			room = append(room, c)
		}
	}
	sort.Slice(room, func(i, j int) bool { return room[i].SequenceNo > room[j].SequenceNo })

	start := 0
	if cursor != "" {
		start = -1
		for i, c := range room {
			if c.ID == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, ErrInvalidCursor
		}
	}
	end := min(start+limit, len(room))
	return append([]wire.ChatMessage(nil), room[start:end]...), nil
}

func (g *fakeGateway) CreateDraw(_ context.Context, roomID, userID string, el wire.DrawElement) (wire.DrawElement, error) {
	if err := g.failure("CreateDraw"); err != nil {
		return wire.DrawElement{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	el.ID = uuid.Must(uuid.NewV7()).String()
	el.CreatedBy = userID
	g.draws[roomID] = append(g.draws[roomID], el)
	return el, nil
}

func (g *fakeGateway) ListDraws(_ context.Context, roomID string) ([]wire.DrawElement, error) {
	if err := g.failure("ListDraws"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]wire.DrawElement(nil), g.draws[roomID]...), nil
}

func (g *fakeGateway) chatCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.chats)
}

func (g *fakeGateway) drawCount(roomID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.draws[roomID])
}

// newTestGormDB returns a migrated in-memory sqlite database with a single connection
func newTestGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb := db.MustCreateTestDB(t)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return gdb
}

// send routes a frame built from v on behalf of p
func send(t *testing.T, r *Router, p *Participant, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	r.Route(context.Background(), p, data)
}

func joinFrame(code string) wire.InboundFrame {
	return wire.InboundFrame{Type: wire.FrameJoinRoom, RoomID: code}
}

func chatFrame(code, content string) wire.InboundFrame {
	return wire.InboundFrame{Type: wire.FrameChat, RoomID: code, Content: content}
}

func ptr[T any](v T) *T { return &v }

func TestMain(m *testing.M) {
	slogging.SetGlobal(slogging.NewWriterLogger(slogging.LogLevelError, false, io.Discard))
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}
