package api

import "errors"

// Frame handling failures. None of these close the connection.
var (
	ErrRoomNotFound                = errors.New("room not found")
	ErrMembershipWriteInconsistent = errors.New("membership write not visible after upsert")
	ErrInvalidShapeKind            = errors.New("invalid shape kind")
	ErrMalformedFrame              = errors.New("malformed frame")
	ErrPersistenceFailure          = errors.New("persistence failure")
	ErrDuplicateConnection         = errors.New("user already has a live connection")
	ErrParticipantGone             = errors.New("participant disconnected")
	ErrNotJoined                   = errors.New("not joined to room")
	ErrEmptyContent                = errors.New("empty chat content")
	ErrInvalidCursor               = errors.New("invalid pagination cursor")
	ErrRateLimited                 = errors.New("rate limit exceeded")
)

// Error is the JSON body of HTTP error responses
type Error struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
