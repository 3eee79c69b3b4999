package uuidgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/jaevor/go-nanoid"
)

// EntityType represents the different entity types in the system
type EntityType string

const (
	EntityTypeChat EntityType = "chat"
	EntityTypeDraw EntityType = "draw"
	EntityTypeRoom EntityType = "room"
	EntityTypeUser EntityType = "user"
)

// JoinCodeAlphabet is the character set of room join codes
const JoinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// JoinCodeLength is the length of generated room join codes
const JoinCodeLength = 7

// NewForEntity generates a UUID appropriate for the given entity type.
// Chat and draw rows are appended continuously and use UUIDv7 for index locality.
func NewForEntity(entityType EntityType) (uuid.UUID, error) {
	switch entityType {
	case EntityTypeChat, EntityTypeDraw:
		return uuid.NewV7()
	default:
		return uuid.NewRandom()
	}
}

// MustNewForEntity is like NewForEntity but panics on error.
// Should only be used in situations where UUID generation failure is unrecoverable.
func MustNewForEntity(entityType EntityType) uuid.UUID {
	id, err := NewForEntity(entityType)
	if err != nil {
		panic(fmt.Sprintf("failed to generate UUID for entity type %s: %v", entityType, err))
	}
	return id
}

// NewV7 generates a UUIDv7 for entities that benefit from time-ordered UUIDs
func NewV7() (uuid.UUID, error) {
	return uuid.NewV7()
}

var (
	joinCodeOnce sync.Once
	joinCodeGen  func() string
	joinCodeErr  error
)

// NewJoinCode returns a short human-shareable room code
func NewJoinCode() (string, error) {
	joinCodeOnce.Do(func() {
		joinCodeGen, joinCodeErr = gonanoid.CustomASCII(JoinCodeAlphabet, JoinCodeLength)
	})
	if joinCodeErr != nil {
		return "", fmt.Errorf("failed to create join code generator: %w", joinCodeErr)
	}
	return joinCodeGen(), nil
}
