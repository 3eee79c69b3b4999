package api

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, h *Hub, userID string) (*Participant, *recordingHandle) {
	t.Helper()
	handle := newRecordingHandle()
	p, err := h.Register(auth.Identity{UserID: userID, DisplayName: userID + "-name"}, handle)
	require.NoError(t, err)
	return p, handle
}

func TestHub_JoinAnnouncesArrival(t *testing.T) {
	gw := newFakeGateway()
	room := gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)

	alice, aliceHandle := register(t, hub, "alice")
	bob, bobHandle := register(t, hub, "bob")

	res, err := hub.Join(context.Background(), alice, "ABC1234")
	require.NoError(t, err)
	assert.False(t, res.AlreadyJoined)
	assert.Equal(t, room.ID, res.Room.ID)

	_, err = hub.Join(context.Background(), bob, "ABC1234")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, hub.Presence("ABC1234"))
	assert.True(t, gw.isMember(room.ID, "alice"))
	assert.True(t, gw.isMember(room.ID, "bob"))

	infos := aliceHandle.OfType(t, wire.FrameInfo)
	require.Len(t, infos, 2)
	assert.Equal(t, "User alice-name joined the room", infos[0].Content)
	assert.Equal(t, "User bob-name joined the room", infos[1].Content)
	assert.Equal(t, "ABC1234", infos[1].RoomID)

	// bob only sees his own arrival
	require.Len(t, bobHandle.OfType(t, wire.FrameInfo), 1)
}

func TestHub_JoinUnknownRoom(t *testing.T) {
	gw := newFakeGateway()
	hub := NewHub(gw, nil)
	alice, handle := register(t, hub, "alice")

	_, err := hub.Join(context.Background(), alice, "NOPE000")
	require.ErrorIs(t, err, ErrRoomNotFound)

	assert.False(t, hub.HasRoom("NOPE000"))
	assert.Empty(t, handle.Frames(t))
	_, err = hub.RoomFor(alice, "NOPE000")
	assert.ErrorIs(t, err, ErrNotJoined)
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)
	alice, handle := register(t, hub, "alice")

	_, err := hub.Join(context.Background(), alice, "ABC1234")
	require.NoError(t, err)
	res, err := hub.Join(context.Background(), alice, "ABC1234")
	require.NoError(t, err)
	assert.True(t, res.AlreadyJoined)

	assert.Equal(t, []string{"alice"}, hub.Presence("ABC1234"))
	assert.Len(t, handle.OfType(t, wire.FrameInfo), 1)
}

func TestHub_MembershipReadBackInconsistent(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	gw.hideMembership = true
	hub := NewHub(gw, nil)
	alice, handle := register(t, hub, "alice")

	_, err := hub.Join(context.Background(), alice, "ABC1234")
	require.ErrorIs(t, err, ErrMembershipWriteInconsistent)

	assert.False(t, hub.HasRoom("ABC1234"))
	assert.Empty(t, handle.Frames(t))
	_, err = hub.RoomFor(alice, "ABC1234")
	assert.ErrorIs(t, err, ErrNotJoined)
}

func TestHub_JoinPersistenceFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	gw.fail("UpsertMembership", errors.New("connection reset"))
	hub := NewHub(gw, nil)
	alice, _ := register(t, hub, "alice")

	_, err := hub.Join(context.Background(), alice, "ABC1234")
	require.ErrorIs(t, err, ErrPersistenceFailure)
	assert.False(t, hub.HasRoom("ABC1234"))
	assert.True(t, alice.handle.IsOpen())
}

func TestHub_JoinRacingDisconnect(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)
	alice, _ := register(t, hub, "alice")
	bob, bobHandle := register(t, hub, "bob")
	_, err := hub.Join(context.Background(), bob, "ABC1234")
	require.NoError(t, err)
	bobHandle.Reset()

	// alice disconnects while her join is suspended on persistence
	gw.onUpsert = func() { hub.Unregister(alice) }

	_, err = hub.Join(context.Background(), alice, "ABC1234")
	require.ErrorIs(t, err, ErrParticipantGone)

	assert.Equal(t, []string{"bob"}, hub.Presence("ABC1234"))
	assert.Empty(t, bobHandle.Frames(t), "no arrival or departure for a join that never completed")
	_, ok := hub.Lookup("alice")
	assert.False(t, ok)
}

func TestHub_LeaveDuringSuspendedJoin(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)
	alice, handle := register(t, hub, "alice")

	gw.onUpsert = func() { hub.Leave(alice, "ABC1234") }

	_, err := hub.Join(context.Background(), alice, "ABC1234")
	require.ErrorIs(t, err, ErrNotJoined)
	assert.False(t, hub.HasRoom("ABC1234"))
	assert.Empty(t, handle.Frames(t))
}

func TestHub_LeaveKeepsMembership(t *testing.T) {
	gw := newFakeGateway()
	room := gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)
	alice, _ := register(t, hub, "alice")
	bob, bobHandle := register(t, hub, "bob")

	_, err := hub.Join(context.Background(), alice, "ABC1234")
	require.NoError(t, err)
	_, err = hub.Join(context.Background(), bob, "ABC1234")
	require.NoError(t, err)
	bobHandle.Reset()

	assert.True(t, hub.Leave(alice, "ABC1234"))
	assert.False(t, hub.Leave(alice, "ABC1234"), "second leave is a no-op")

	assert.Equal(t, []string{"bob"}, hub.Presence("ABC1234"))
	assert.True(t, gw.isMember(room.ID, "alice"))

	infos := bobHandle.OfType(t, wire.FrameInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, "User alice-name left the room", infos[0].Content)
}

func TestHub_EmptyPresenceIsRemoved(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)
	alice, _ := register(t, hub, "alice")

	_, err := hub.Join(context.Background(), alice, "ABC1234")
	require.NoError(t, err)
	require.True(t, hub.HasRoom("ABC1234"))

	hub.Leave(alice, "ABC1234")
	assert.False(t, hub.HasRoom("ABC1234"))
	assert.Equal(t, Stats{Participants: 1, Rooms: 0}, hub.Stats())
}

func TestHub_UnregisterLeavesEveryRoom(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ROOMAAA")
	gw.addRoom("ROOMBBB")
	hub := NewHub(gw, nil)
	alice, _ := register(t, hub, "alice")
	bob, bobHandle := register(t, hub, "bob")

	for _, code := range []string{"ROOMAAA", "ROOMBBB"} {
		_, err := hub.Join(context.Background(), alice, code)
		require.NoError(t, err)
		_, err = hub.Join(context.Background(), bob, code)
		require.NoError(t, err)
	}
	bobHandle.Reset()

	hub.Unregister(alice)

	assert.Equal(t, []string{"bob"}, hub.Presence("ROOMAAA"))
	assert.Equal(t, []string{"bob"}, hub.Presence("ROOMBBB"))
	infos := bobHandle.OfType(t, wire.FrameInfo)
	require.Len(t, infos, 2)
	for _, f := range infos {
		assert.Equal(t, "User alice-name left the room", f.Content)
	}
}

func TestHub_DuplicateConnectionReplaces(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)

	first, firstHandle := register(t, hub, "alice")
	_, err := hub.Join(context.Background(), first, "ABC1234")
	require.NoError(t, err)

	second, _ := register(t, hub, "alice")

	assert.False(t, firstHandle.IsOpen())
	assert.Equal(t, wire.CloseReplaced, firstHandle.CloseCode())
	current, ok := hub.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, current)
	assert.False(t, hub.HasRoom("ABC1234"), "replaced connection left its rooms")

	// the stale connection's cleanup must not remove the new one
	hub.Unregister(first)
	_, ok = hub.Lookup("alice")
	assert.True(t, ok)

	_, err = hub.Join(context.Background(), first, "ABC1234")
	assert.ErrorIs(t, err, ErrParticipantGone)
}

func TestHub_DuplicateConnectionRejected(t *testing.T) {
	hub := NewHub(newFakeGateway(), nil)
	hub.SetDuplicatePolicy(RejectDuplicate)

	_, firstHandle := register(t, hub, "alice")
	_, err := hub.Register(auth.Identity{UserID: "alice"}, newRecordingHandle())
	require.ErrorIs(t, err, ErrDuplicateConnection)
	assert.True(t, firstHandle.IsOpen())
}

func TestHub_BroadcastSkipsClosedAndDropsSlow(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)
	var logs bytes.Buffer
	hub.logger = slogging.NewWriterLogger(slogging.LogLevelWarn, false, &logs)

	alice, aliceHandle := register(t, hub, "alice")
	bob, bobHandle := register(t, hub, "bob")
	carol, carolHandle := register(t, hub, "carol")
	for _, p := range []*Participant{alice, bob, carol} {
		_, err := hub.Join(context.Background(), p, "ABC1234")
		require.NoError(t, err)
	}
	aliceHandle.Reset()
	bobHandle.Reset()

	carolHandle.Close(1000, "gone")
	bobHandle.capacity = 1
	require.True(t, bobHandle.Send([]byte(`{"type":"info","content":"filler"}`)))

	n := hub.Broadcast("ABC1234", wire.NewInfo("ABC1234", "hello"))
	assert.Equal(t, 1, n)
	assert.Len(t, aliceHandle.Frames(t), 1)
	assert.False(t, bobHandle.IsOpen())
	assert.Equal(t, closeSlowConsumer, bobHandle.CloseCode())
	assert.Contains(t, logs.String(), `"user_id":"bob"`)
	assert.Contains(t, logs.String(), `"conn_id":"`+bob.ConnID+`"`)

	assert.Equal(t, 0, hub.Broadcast("NOROOM0", wire.NewInfo("NOROOM0", "x")))
}

func TestHub_Reap(t *testing.T) {
	gw := newFakeGateway()
	gw.addRoom("ABC1234")
	hub := NewHub(gw, nil)
	alice, aliceHandle := register(t, hub, "alice")
	_, err := hub.Join(context.Background(), alice, "ABC1234")
	require.NoError(t, err)
	register(t, hub, "bob")

	aliceHandle.Close(1006, "")
	assert.Equal(t, 1, hub.Reap())
	assert.Equal(t, Stats{Participants: 1, Rooms: 0}, hub.Stats())
	assert.Equal(t, 0, hub.Reap())
}

func TestHub_RunReaperStopsOnCancel(t *testing.T) {
	hub := NewHub(newFakeGateway(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, hub.RunReaper(ctx, 10))
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub(newFakeGateway(), nil)
	_, a := register(t, hub, "alice")
	_, b := register(t, hub, "bob")
	hub.Shutdown()
	assert.False(t, a.IsOpen())
	assert.False(t, b.IsOpen())
	assert.Equal(t, 1001, a.CloseCode())
}

func TestJoinState_String(t *testing.T) {
	assert.Equal(t, "not_joined", NotJoined.String())
	assert.Equal(t, "joining", Joining.String())
	assert.Equal(t, "joined", Joined.String())
	assert.Equal(t, "unknown", JoinState(42).String())
}
