package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomStatus enumerates the room lifecycle. Transitions are monotonic:
// active -> comparing -> completed, never backward.
type RoomStatus string

const (
	RoomStatusActive    RoomStatus = "active"
	RoomStatusComparing RoomStatus = "comparing"
	RoomStatusCompleted RoomStatus = "completed"
)

// Room is the shared context pairing up to two participants around one
// guiding question. It is the single contended document: both participants
// mutate it, so every state-advancing write goes through a conditional
// update in the storage layer.
type Room struct {
	// RoomID is the unique identifier for the room (UUID).
	RoomID string `gorm:"primaryKey" json:"room_id"`
	// Question is the guiding question set at creation time.
	Question string `gorm:"type:text;not null" json:"question"`
	// PasswordHash is the bcrypt hash of the join secret.
	PasswordHash string `gorm:"type:text;not null" json:"-"`
	// CreatorID duplicates Participants[0].UserID; kept explicit so ownership
	// does not hinge on slice position.
	CreatorID string `gorm:"type:text;not null;index" json:"creator_id"`
	// Status is the current lifecycle state.
	Status RoomStatus `gorm:"type:text;not null;index" json:"status"`
	// Verdict is the final comparison text, empty until completed.
	Verdict string `gorm:"type:text" json:"verdict,omitempty"`
	// ComparisonSessionID references the gateway exchange that produced the
	// verdict, for operator auditing.
	ComparisonSessionID string    `gorm:"type:text" json:"-"`
	CreatedAt           time.Time `json:"created_at"`

	// Participants in join order, at most two.
	Participants []Participant `gorm:"foreignKey:RoomID;references:RoomID" json:"participants"`
	// Conclusions in submission order, at most one per participant.
	Conclusions []Conclusion `gorm:"foreignKey:RoomID;references:RoomID" json:"-"`
}

// BeforeCreate assigns a UUID when the RoomID is unset.
func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.RoomID == "" {
		r.RoomID = uuid.New().String()
	}
	return
}

// ParticipantFor returns the membership record for userID, or nil.
func (r *Room) ParticipantFor(userID string) *Participant {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return &r.Participants[i]
		}
	}
	return nil
}

// AllSubmitted reports whether every current participant has submitted.
// A room with fewer than two participants never counts as complete.
func (r *Room) AllSubmitted() bool {
	if len(r.Participants) < 2 {
		return false
	}
	for i := range r.Participants {
		if !r.Participants[i].Submitted {
			return false
		}
	}
	return true
}

// Participant is one user's membership record within a room. The Submitted
// flag is monotonic: once true it is never reset, and the storage layer only
// ever sets it through a compare-and-set on its prior value.
type Participant struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	RoomID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"-"`
	UserID      string    `gorm:"type:text;not null;uniqueIndex:idx_room_user" json:"user_id"`
	DisplayName string    `gorm:"type:text;not null" json:"display_name"`
	Submitted   bool      `gorm:"not null;default:false" json:"submitted"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Conclusion is a participant's final private answer. At most one per user
// per room, enforced by the participant's submission flag.
type Conclusion struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    string    `gorm:"type:uuid;not null;index" json:"-"`
	UserID    string    `gorm:"type:text;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
