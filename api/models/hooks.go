package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"gorm.io/gorm"
)

// ErrValidation is wrapped by every model validation failure
var ErrValidation = errors.New("validation failed")

// --- Room Hooks ---

// BeforeSave validates Room before create or update
func (r *Room) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: room title cannot be empty", ErrValidation)
	}
	if r.JoinCode == "" {
		return fmt.Errorf("%w: room join code cannot be empty", ErrValidation)
	}
	return nil
}

// --- Chat Hooks ---

// BeforeSave validates Chat before create or update
func (c *Chat) BeforeSave(tx *gorm.DB) error {
	if c.RoomID == "" || c.UserID == "" {
		return fmt.Errorf("%w: chat requires room and author", ErrValidation)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: chat content cannot be empty", ErrValidation)
	}
	return nil
}

// --- Draw Hooks ---

// BeforeSave rejects shape kinds outside the closed enumeration so they are never stored
func (d *Draw) BeforeSave(tx *gorm.DB) error {
	kind, err := wire.ParseShapeKind(d.ShapeKind)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	d.ShapeKind = string(kind)
	if d.RoomID == "" {
		return fmt.Errorf("%w: draw requires a room", ErrValidation)
	}
	return nil
}
