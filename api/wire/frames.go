// Package wire defines the JSON frames exchanged over a room connection.
// The same types are used by the server and the Go client.
package wire

import (
	"encoding/json"
	"time"
)

// FrameType identifies a frame on the wire
type FrameType string

const (
	// client -> server
	FrameJoinRoom  FrameType = "join_room"
	FrameLeaveRoom FrameType = "leave_room"
	// both directions
	FrameChat FrameType = "chat"
	FrameDraw FrameType = "draw"
	// server -> client
	FrameInfo  FrameType = "info"
	FrameError FrameType = "error"
)

// Close codes sent when the server terminates a connection
const (
	CloseMissingToken   = 4001
	CloseInvalidToken   = 4002
	CloseMissingSubject = 4003
	CloseReplaced       = 4004
)

// InboundFrame is any frame sent by a client. Fields not used by Type are ignored.
type InboundFrame struct {
	Type    FrameType    `json:"type"`
	RoomID  string       `json:"roomId,omitempty"`
	Content string       `json:"content,omitempty"`
	Element *DrawElement `json:"element,omitempty"`
}

// Point is one vertex of a freehand polyline
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawElement carries the style and geometry of one drawn element.
// Geometry fields are shape dependent and left nil when unused.
type DrawElement struct {
	// ID is canonical once persisted; clients put their temporary id here when sending
	ID string `json:"id,omitempty"`
	// ClientID echoes the sender's temporary id on the confirming broadcast
	ClientID    string    `json:"clientId,omitempty"`
	ShapeKind   ShapeKind `json:"shapeKind"`
	StrokeStyle string    `json:"strokeStyle,omitempty"`
	FillStyle   string    `json:"fillStyle,omitempty"`
	LineWidth   float64   `json:"lineWidth,omitempty"`

	StartX *float64 `json:"startX,omitempty"`
	StartY *float64 `json:"startY,omitempty"`
	EndX   *float64 `json:"endX,omitempty"`
	EndY   *float64 `json:"endY,omitempty"`

	Text     *string  `json:"text,omitempty"`
	Font     *string  `json:"font,omitempty"`
	FontSize *float64 `json:"fontSize,omitempty"`

	Points []Point `json:"points,omitempty"`

	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts the older "shape" key as a synonym for "shapeKind"
func (e *DrawElement) UnmarshalJSON(data []byte) error {
	type plain DrawElement
	aux := struct {
		*plain
		Shape ShapeKind `json:"shape,omitempty"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.ShapeKind == "" {
		e.ShapeKind = aux.Shape
	}
	return nil
}

// Author identifies who wrote a chat message
type Author struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ChatMessage is a persisted chat record as seen by clients
type ChatMessage struct {
	ID         string    `json:"id"`
	SequenceNo int64     `json:"sequenceNo"`
	RoomID     string    `json:"roomId,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Author     Author    `json:"author"`
}

// ChatFrame is the server's confirmation of a persisted chat message
type ChatFrame struct {
	Type FrameType `json:"type"`
	ChatMessage
}

// DrawFrame is the server's confirmation of a persisted draw element.
// Decode it with OutboundFrame.Draw; the embedded element's UnmarshalJSON
// would otherwise shadow Type and RoomID.
type DrawFrame struct {
	Type   FrameType `json:"type"`
	RoomID string    `json:"roomId"`
	DrawElement
}

// InfoFrame carries presence notifications
type InfoFrame struct {
	Type    FrameType `json:"type"`
	RoomID  string    `json:"roomId,omitempty"`
	Content string    `json:"content"`
}

// ErrorFrame is a reply-only rejection sent to the originating connection
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Content string    `json:"content"`
}

// NewInfo builds an info frame
func NewInfo(roomID, content string) InfoFrame {
	return InfoFrame{Type: FrameInfo, RoomID: roomID, Content: content}
}

// NewError builds an error frame
func NewError(content string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Content: content}
}

// OutboundFrame is the union of server -> client frames, used by decoders
type OutboundFrame struct {
	Type    FrameType `json:"type"`
	RoomID  string    `json:"roomId,omitempty"`
	Content string    `json:"content,omitempty"`

	// chat
	ID         string     `json:"id,omitempty"`
	SequenceNo int64      `json:"sequenceNo,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	Author     *Author    `json:"author,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// DecodeOutbound parses a server frame, keeping the raw bytes so draw frames
// can be decoded into DrawFrame afterwards.
func DecodeOutbound(data []byte) (OutboundFrame, error) {
	var f OutboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return OutboundFrame{}, err
	}
	f.Raw = append(json.RawMessage(nil), data...)
	return f, nil
}

// Chat returns the chat message carried by a chat frame
func (f OutboundFrame) Chat() (ChatMessage, error) {
	var cf ChatFrame
	if err := json.Unmarshal(f.Raw, &cf); err != nil {
		return ChatMessage{}, err
	}
	return cf.ChatMessage, nil
}

// Draw returns the element carried by a draw frame
func (f OutboundFrame) Draw() (DrawElement, error) {
	var el DrawElement
	if err := json.Unmarshal(f.Raw, &el); err != nil {
		return DrawElement{}, err
	}
	return el, nil
}

// ChatPage is the body of the chat history endpoint
type ChatPage struct {
	Chats      []ChatMessage `json:"chats"`
	Pagination Pagination    `json:"pagination"`
}

// Pagination describes the position of a chat page
type Pagination struct {
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

// DrawHistory is the body of the draw replay endpoint
type DrawHistory struct {
	Draws []DrawElement `json:"draws"`
}
