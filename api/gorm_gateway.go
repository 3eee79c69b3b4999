package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/models"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/unicodecheck"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/uuidgen"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxJoinCodeAttempts bounds retries when a generated join code collides
const maxJoinCodeAttempts = 5

// GormGateway implements Gateway on GORM
type GormGateway struct {
	db *gorm.DB
}

// NewGormGateway creates a gateway over db
func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistenceFailure, op, err)
}

func toRoomRecord(r *models.Room) *RoomRecord {
	return &RoomRecord{ID: r.ID, Title: r.Title, JoinCode: r.JoinCode, AdminID: r.AdminID}
}

func (g *GormGateway) findRoom(ctx context.Context, column, value string) (*RoomRecord, error) {
	var room models.Room
	err := g.db.WithContext(ctx).Where(column+" = ?", value).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, persistErr("find room", err)
	}
	return toRoomRecord(&room), nil
}

// FindRoomByCode implements Gateway
func (g *GormGateway) FindRoomByCode(ctx context.Context, code string) (*RoomRecord, error) {
	return g.findRoom(ctx, "join_code", code)
}

// FindRoomByID implements Gateway
func (g *GormGateway) FindRoomByID(ctx context.Context, id string) (*RoomRecord, error) {
	return g.findRoom(ctx, "id", id)
}

// CreateRoom creates a room with a fresh join code and makes the admin a member
func (g *GormGateway) CreateRoom(ctx context.Context, title string, admin auth.Identity) (*RoomRecord, error) {
	if err := g.EnsureUser(ctx, admin); err != nil {
		return nil, err
	}
	title = unicodecheck.CleanName(title)

	var room models.Room
	var lastErr error
	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code, err := uuidgen.NewJoinCode()
		if err != nil {
			return nil, err
		}
		room = models.Room{Title: title, JoinCode: code, AdminID: admin.UserID}
		lastErr = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&room).Error; err != nil {
				return err
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.RoomParticipant{RoomID: room.ID, UserID: admin.UserID}).Error
		})
		if lastErr == nil {
			return toRoomRecord(&room), nil
		}
		if errors.Is(lastErr, models.ErrValidation) {
			return nil, lastErr
		}
	}
	return nil, persistErr("create room", lastErr)
}

// EnsureUser implements Gateway. The stored username follows the latest token.
func (g *GormGateway) EnsureUser(ctx context.Context, id auth.Identity) error {
	user := models.User{ID: id.UserID, Username: id.DisplayName}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username"}),
	}).Create(&user).Error
	if err != nil {
		return persistErr("ensure user", err)
	}
	return nil
}

// UpsertMembership implements Gateway
func (g *GormGateway) UpsertMembership(ctx context.Context, roomID, userID string) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RoomParticipant{RoomID: roomID, UserID: userID}).Error
	if err != nil {
		return persistErr("upsert membership", err)
	}
	return nil
}

// IsMember implements Gateway
func (g *GormGateway) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, persistErr("read membership", err)
	}
	return count > 0, nil
}

func toChatMessage(c *models.Chat) wire.ChatMessage {
	author := wire.Author{UserID: c.UserID, Username: c.UserID}
	if c.User != nil && c.User.Username != "" {
		author.Username = c.User.Username
	}
	return wire.ChatMessage{
		ID:         c.ID,
		SequenceNo: c.SequenceNo,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		Author:     author,
	}
}

// CreateChat implements Gateway
func (g *GormGateway) CreateChat(ctx context.Context, roomID, userID, content string) (wire.ChatMessage, error) {
	chat := models.Chat{RoomID: roomID, UserID: userID, Content: content}
	if err := g.db.WithContext(ctx).Create(&chat).Error; err != nil {
		return wire.ChatMessage{}, persistErr("create chat", err)
	}
	if err := g.db.WithContext(ctx).Preload("User").First(&chat, "sequence_no = ?", chat.SequenceNo).Error; err != nil {
		return wire.ChatMessage{}, persistErr("reload chat", err)
	}
	return toChatMessage(&chat), nil
}

// PageChats implements Gateway
func (g *GormGateway) PageChats(ctx context.Context, roomID, cursor string, limit int) ([]wire.ChatMessage, error) {
	q := g.db.WithContext(ctx).Preload("User").Where("room_id = ?", roomID)

	if cursor != "" {
		var anchor models.Chat
		err := g.db.WithContext(ctx).Select("sequence_no", "room_id").
			Where("id = ?", cursor).First(&anchor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && anchor.RoomID != roomID) {
			return nil, ErrInvalidCursor
		}
		if err != nil {
			return nil, persistErr("resolve cursor", err)
		}
		q = q.Where("sequence_no < ?", anchor.SequenceNo)
	}

	var chats []models.Chat
	if err := q.Order("sequence_no DESC").Limit(limit).Find(&chats).Error; err != nil {
		return nil, persistErr("page chats", err)
	}

	out := make([]wire.ChatMessage, 0, len(chats))
	for i := range chats {
		out = append(out, toChatMessage(&chats[i]))
	}
	return out, nil
}

func toDrawElement(d *models.Draw) wire.DrawElement {
	created := d.CreatedAt
	el := wire.DrawElement{
		ID:          d.ID,
		ShapeKind:   wire.ShapeKind(d.ShapeKind),
		StrokeStyle: d.StrokeStyle,
		FillStyle:   d.FillStyle,
		LineWidth:   d.LineWidth,
		StartX:      d.StartX,
		StartY:      d.StartY,
		EndX:        d.EndX,
		EndY:        d.EndY,
		Text:        d.Text,
		Font:        d.Font,
		FontSize:    d.FontSize,
		CreatedBy:   d.UserID,
		CreatedAt:   &created,
	}
	if len(d.Points) > 0 {
		el.Points = make([]wire.Point, len(d.Points))
		for i, p := range d.Points {
			el.Points[i] = wire.Point{X: p.X, Y: p.Y}
		}
	}
	return el
}

// CreateDraw implements Gateway. The element's shape kind must already be valid;
// the model hook rejects anything else.
func (g *GormGateway) CreateDraw(ctx context.Context, roomID, userID string, el wire.DrawElement) (wire.DrawElement, error) {
	draw := models.Draw{
		RoomID:      roomID,
		UserID:      userID,
		ShapeKind:   string(el.ShapeKind),
		StrokeStyle: el.StrokeStyle,
		FillStyle:   el.FillStyle,
		LineWidth:   el.LineWidth,
		StartX:      el.StartX,
		StartY:      el.StartY,
		EndX:        el.EndX,
		EndY:        el.EndY,
		Text:        el.Text,
		Font:        el.Font,
		FontSize:    el.FontSize,
	}
	if len(el.Points) > 0 {
		draw.Points = make(models.PointArray, len(el.Points))
		for i, p := range el.Points {
			draw.Points[i] = models.Point{X: p.X, Y: p.Y}
		}
	}

	if err := g.db.WithContext(ctx).Create(&draw).Error; err != nil {
		if errors.Is(err, wire.ErrUnknownShape) {
			return wire.DrawElement{}, fmt.Errorf("%w: %v", ErrInvalidShapeKind, err)
		}
		return wire.DrawElement{}, persistErr("create draw", err)
	}
	return toDrawElement(&draw), nil
}

// ListDraws implements Gateway
func (g *GormGateway) ListDraws(ctx context.Context, roomID string) ([]wire.DrawElement, error) {
	var draws []models.Draw
	if err := g.db.WithContext(ctx).Where("room_id = ?", roomID).Order("sequence_no ASC").Find(&draws).Error; err != nil {
		return nil, persistErr("list draws", err)
	}
	out := make([]wire.DrawElement, 0, len(draws))
	for i := range draws {
		out = append(out, toDrawElement(&draws[i]))
	}
	return out, nil
}
