package wire

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShapeKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ShapeKind
		wantErr bool
	}{
		{"rectangle", ShapeRectangle, false},
		{"diamond", ShapeDiamond, false},
		{"circle", ShapeCircle, false},
		{"line", ShapeLine, false},
		{"arrow", ShapeArrow, false},
		{"text", ShapeText, false},
		{"freehand", ShapeFreehand, false},
		{"freeHand", ShapeFreehand, false},
		{"triangle", "", true},
		{"", "", true},
		{"RECTANGLE", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShapeKind(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseShapeKind_ErrorKeepsValidUTF8(t *testing.T) {
	// 31 ASCII bytes put the 32-byte cut inside the first two-byte rune
	in := strings.Repeat("x", 31) + strings.Repeat("\u00e9", 10)
	_, err := ParseShapeKind(in)
	require.ErrorIs(t, err, ErrUnknownShape)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), strings.Repeat("x", 31))
	assert.NotContains(t, err.Error(), "\u00e9")

	assert.Equal(t, "ab", truncate("ab\u00e9", 3))
	assert.Equal(t, "ab\u00e9", truncate("ab\u00e9", 4))
}

func TestShapeKindGeometryClass(t *testing.T) {
	assert.True(t, ShapeArrow.IsTwoPoint())
	assert.True(t, ShapeCircle.IsTwoPoint())
	assert.False(t, ShapeFreehand.IsTwoPoint())
	assert.False(t, ShapeText.IsTwoPoint())
	assert.False(t, ShapeKind("triangle").Valid())
}

func TestDrawElementAcceptsLegacyShapeKey(t *testing.T) {
	var f InboundFrame
	raw := `{"type":"draw","roomId":"ABC1234","element":{"id":"tmp-1","shape":"freeHand","points":[{"x":1,"y":2},{"x":3,"y":4}]}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &f))

	require.NotNil(t, f.Element)
	assert.Equal(t, FrameDraw, f.Type)
	assert.Equal(t, ShapeKind("freeHand"), f.Element.ShapeKind)
	assert.Equal(t, "tmp-1", f.Element.ID)
	assert.Equal(t, []Point{{1, 2}, {3, 4}}, f.Element.Points)
}

func TestDrawElementPrefersShapeKind(t *testing.T) {
	var el DrawElement
	require.NoError(t, json.Unmarshal([]byte(`{"shapeKind":"line","shape":"circle"}`), &el))
	assert.Equal(t, ShapeLine, el.ShapeKind)
}

func TestDecodeOutbound(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		data, err := json.Marshal(ChatFrame{Type: FrameChat, ChatMessage: ChatMessage{
			ID: "c1", SequenceNo: 9, RoomID: "R1", Content: "hi", CreatedAt: created,
			Author: Author{UserID: "u1", Username: "alice"},
		}})
		require.NoError(t, err)

		f, err := DecodeOutbound(data)
		require.NoError(t, err)
		assert.Equal(t, FrameChat, f.Type)
		assert.Equal(t, "c1", f.ID)

		msg, err := f.Chat()
		require.NoError(t, err)
		assert.Equal(t, "alice", msg.Author.Username)
		assert.True(t, created.Equal(msg.CreatedAt))
	})

	t.Run("draw", func(t *testing.T) {
		x0, y0, x1, y1 := 1.0, 2.0, 30.0, 40.0
		data, err := json.Marshal(DrawFrame{Type: FrameDraw, RoomID: "R1", DrawElement: DrawElement{
			ID: "d1", ClientID: "tmp", ShapeKind: ShapeRectangle, StrokeStyle: "#000",
			StartX: &x0, StartY: &y0, EndX: &x1, EndY: &y1,
		}})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"shapeKind":"rectangle"`)

		f, err := DecodeOutbound(data)
		require.NoError(t, err)
		assert.Equal(t, "R1", f.RoomID)

		el, err := f.Draw()
		require.NoError(t, err)
		assert.Equal(t, "d1", el.ID)
		assert.Equal(t, "tmp", el.ClientID)
		assert.Equal(t, 30.0, *el.EndX)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeOutbound([]byte("{not json"))
		assert.Error(t, err)
	})
}

func TestPaginationNullCursor(t *testing.T) {
	data, err := json.Marshal(ChatPage{Chats: []ChatMessage{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chats":[],"pagination":{"nextCursor":null,"hasMore":false}}`, string(data))
}
