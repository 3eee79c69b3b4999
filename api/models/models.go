// Package models defines GORM models for the Drawisly database schema.
// These models support both PostgreSQL and SQLite through GORM's dialect abstraction.
package models

import (
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/uuidgen"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a person known to the system. Identity is issued elsewhere; rows are
// upserted from verified token claims so chat history can show usernames.
type User struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	Username  string    `gorm:"column:username;type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Room is a named collaboration session identified by its join code
type Room struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Title     string    `gorm:"column:title;type:varchar(255);not null"`
	JoinCode  string    `gorm:"column:join_code;type:varchar(16);not null;uniqueIndex"`
	AdminID   string    `gorm:"column:admin_id;type:varchar(64);not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`

	Participants []RoomParticipant `gorm:"foreignKey:RoomID;references:ID"`
}

// TableName specifies the table name for Room
func (Room) TableName() string {
	return "rooms"
}

// BeforeCreate generates a UUID if not set
func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// RoomParticipant records permanent membership of a user in a room
type RoomParticipant struct {
	RoomID    string    `gorm:"column:room_id;primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"column:user_id;primaryKey;type:varchar(64);index"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

// TableName specifies the table name for RoomParticipant
func (RoomParticipant) TableName() string {
	return "room_participants"
}

// Chat is a persisted chat message. SequenceNo defines the total order within
// a room and backs cursor pagination; ID is the opaque cursor handed to clients.
type Chat struct {
	SequenceNo int64     `gorm:"column:sequence_no;primaryKey;autoIncrement"`
	ID         string    `gorm:"column:id;type:varchar(36);not null;uniqueIndex"`
	RoomID     string    `gorm:"column:room_id;type:varchar(36);not null;index:idx_chats_room_seq,priority:1"`
	UserID     string    `gorm:"column:user_id;type:varchar(64);not null"`
	Content    string    `gorm:"column:content;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime;index:idx_chats_room_seq,priority:2"`

	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Chat
func (Chat) TableName() string {
	return "chats"
}

// BeforeCreate generates a time-ordered UUID if not set
func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		id, err := uuidgen.NewForEntity(uuidgen.EntityTypeChat)
		if err != nil {
			return err
		}
		c.ID = id.String()
	}
	return nil
}

// Draw is a persisted canvas element
type Draw struct {
	SequenceNo  int64      `gorm:"column:sequence_no;primaryKey;autoIncrement"`
	ID          string     `gorm:"column:id;type:varchar(36);not null;uniqueIndex"`
	RoomID      string     `gorm:"column:room_id;type:varchar(36);not null;index"`
	UserID      string     `gorm:"column:user_id;type:varchar(64)"`
	ShapeKind   string     `gorm:"column:shape_kind;type:varchar(16);not null"`
	StrokeStyle string     `gorm:"column:stroke_style;type:varchar(64)"`
	FillStyle   string     `gorm:"column:fill_style;type:varchar(64)"`
	LineWidth   float64    `gorm:"column:line_width"`
	StartX      *float64   `gorm:"column:start_x"`
	StartY      *float64   `gorm:"column:start_y"`
	EndX        *float64   `gorm:"column:end_x"`
	EndY        *float64   `gorm:"column:end_y"`
	Text        *string    `gorm:"column:text;type:text"`
	Font        *string    `gorm:"column:font;type:varchar(128)"`
	FontSize    *float64   `gorm:"column:font_size"`
	Points      PointArray `gorm:"column:points;type:json"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
}

// TableName specifies the table name for Draw
func (Draw) TableName() string {
	return "draws"
}

// BeforeCreate generates a time-ordered UUID if not set
func (d *Draw) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		id, err := uuidgen.NewForEntity(uuidgen.EntityTypeDraw)
		if err != nil {
			return err
		}
		d.ID = id.String()
	}
	return nil
}

// AllModels returns all models for migration
func AllModels() []any {
	return []any{
		&User{},
		&Room{},
		&RoomParticipant{},
		&Chat{},
		&Draw{},
	}
}
