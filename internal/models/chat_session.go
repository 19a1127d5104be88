package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusConcluded SessionStatus = "concluded"
)

// Message roles within a chat session.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession is one user's private transcript with the assistant inside a
// room. Keyed by (RoomID, UserID); exactly one per pair, created lazily on
// first interaction. Sessions are never contended across users, so they need
// no conditional writes.
type ChatSession struct {
	SessionID string        `gorm:"primaryKey" json:"session_id"`
	RoomID    string        `gorm:"type:uuid;not null;uniqueIndex:idx_session_room_user" json:"room_id"`
	UserID    string        `gorm:"type:text;not null;uniqueIndex:idx_session_room_user" json:"user_id"`
	Status    SessionStatus `gorm:"type:text;not null;default:active" json:"status"`
	CreatedAt time.Time     `json:"created_at"`

	Messages []SessionMessage `gorm:"foreignKey:SessionID;references:SessionID" json:"messages"`
}

// BeforeCreate assigns a UUID when the SessionID is unset.
func (s *ChatSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.SessionID == "" {
		s.SessionID = uuid.New().String()
	}
	return
}

// SessionMessage is one turn in a chat session. Content is persisted exactly
// as received; first-turn prompt framing only ever exists in the copy sent
// to the gateway.
type SessionMessage struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	SessionID string    `gorm:"type:uuid;not null;index" json:"-"`
	Role      string    `gorm:"type:text;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
