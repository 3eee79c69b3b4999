package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth/db"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slogging.SetGlobal(slogging.NewWriterLogger(slogging.LogLevelError, false, io.Discard))
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	url   string
	gw    *api.GormGateway
	room  *api.RoomRecord
	token string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	gdb := db.MustCreateTestDB(t)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	gw := api.NewGormGateway(gdb)
	admin := auth.Identity{UserID: "alice", DisplayName: "Alice"}
	room, err := gw.CreateRoom(ctx, "Board", admin)
	require.NoError(t, err)

	keys, err := auth.NewJWTKeyManager(auth.JWTConfig{SigningMethod: "HS256", Secret: "cli-secret"})
	require.NoError(t, err)
	token, err := auth.IssueToken(keys, admin, time.Hour)
	require.NoError(t, err)

	hub := api.NewHub(gw, nil)
	srv := api.NewServer(hub, api.NewRouter(hub, gw, nil), gw, auth.NewJWTVerifier(keys), api.ServerConfig{
		DefaultPageLimit: 5,
		MaxPageLimit:     100,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		ts.Close()
	})
	return &fixture{url: ts.URL, gw: gw, room: room, token: token}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", f.url, "--token", f.token}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		_, err := f.gw.CreateChat(ctx, f.room.ID, "alice", "message "+string(rune('0'+i)))
		require.NoError(t, err)
	}

	out, err := f.run(t, "history", f.room.JoinCode)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "Alice: message 3")
	assert.Contains(t, lines[4], "Alice: message 7")
	assert.Equal(t, "-- older messages available --", lines[5])

	out, err = f.run(t, "history", "--pages", "0", "--limit", "3", f.room.ID)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "message 1")
}

func TestHistory_UnknownRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "history", "NOPE123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDraws(t *testing.T) {
	f := newFixture(t)
	text := "hi"
	x := 1.0
	_, err := f.gw.CreateDraw(context.Background(), f.room.ID, "alice",
		wire.DrawElement{ShapeKind: wire.ShapeText, Text: &text, StartX: &x, StartY: &x})
	require.NoError(t, err)

	out, err := f.run(t, "draws", f.room.JoinCode)
	require.NoError(t, err)
	assert.Contains(t, out, `text "hi" by alice`)
	assert.Contains(t, out, "1 elements")
}

func TestSay(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "say", f.room.JoinCode, " hello there ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sent "))

	chats, err := f.gw.PageChats(context.Background(), f.room.ID, "", 5)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "hello there", chats[0].Content)
}

func TestSay_RejectedForUnknownRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "say", "ZZZZZZZ", "hello")
	require.Error(t, err)
}

func TestMissingToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"history", "ABC"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}
