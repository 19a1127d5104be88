package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"blindjudge/backend/internal/apperrors"
	"blindjudge/backend/internal/config"
	"blindjudge/backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is everything the core needs from persistence. Every mutation that
// advances room state is a named, typed operation with conditional-write
// semantics; there is no generic "update these fields" entry point.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)
	// AddParticipant appends a participant preserving join order. It enforces
	// the two-participant ceiling and per-user uniqueness under a row lock on
	// the room, so concurrent joins cannot overshoot capacity.
	AddParticipant(ctx context.Context, roomID string, p *models.Participant) error
	// RecordConclusion flips the participant's submission flag with a
	// compare-and-set on its prior value and appends the conclusion in the
	// same transaction, so a failed append rolls the flag back. Returns false
	// when the flag was already true; nothing is written in that case.
	RecordConclusion(ctx context.Context, c *models.Conclusion) (bool, error)
	// TransitionRoomStatus advances the lifecycle conditionally: the write only
	// lands if the room is still in `from`. Returns false for the loser of a race.
	TransitionRoomStatus(ctx context.Context, roomID string, from, to models.RoomStatus) (bool, error)
	// CompleteComparison stores the verdict and advances comparing -> completed
	// in one conditional write. Returns false if the room already left comparing.
	CompleteComparison(ctx context.Context, roomID, verdict, comparisonSessionID string) (bool, error)

	FindOrCreateSession(ctx context.Context, roomID, userID string) (*models.ChatSession, error)
	GetSessionMessages(ctx context.Context, sessionID string) ([]models.SessionMessage, error)
	AppendSessionMessage(ctx context.Context, msg *models.SessionMessage) error

	PublishRoomEvent(ctx context.Context, ev models.RoomEvent) error
	// AcquireComparisonLock takes the room's in-flight lock and returns a
	// fencing token, or "" when another caller holds it.
	AcquireComparisonLock(ctx context.Context, roomID string, ttl time.Duration) (string, error)
	// ReleaseComparisonLock frees the lock only when token still owns it, so
	// a caller whose TTL expired cannot delete a successor's lock.
	ReleaseComparisonLock(ctx context.Context, roomID, token string) error
	AllowChatTurn(ctx context.Context, userID string, limit int, window time.Duration) (bool, error)
}

// Service implements Storage on PostgreSQL (documents) and Redis
// (events, locks, rate counters).
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewService constructor.
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

// --- Users ---

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("username is already taken")
		}
		log.Printf("ERROR: Failed to create user %s: %v", user.Username, err)
		return apperrors.Store("failed to create user", err)
	}
	return nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to get user %s: %v", id, err)
		return nil, apperrors.Store("failed to load user", err)
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to get user by username %s: %v", username, err)
		return nil, apperrors.Store("failed to load user", err)
	}
	return &user, nil
}

// --- Rooms ---

func (s *Service) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := s.DB.WithContext(ctx).Create(room).Error; err != nil {
		log.Printf("ERROR: Failed to create room: %v", err)
		return apperrors.Store("failed to create room", err)
	}
	return nil
}

// GetRoomByID loads the room with participants in join order and conclusions
// in submission order.
func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("participants.id asc") }).
		Preload("Conclusions", func(db *gorm.DB) *gorm.DB { return db.Order("conclusions.id asc") }).
		Where("room_id = ?", roomID).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("room not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to get room %s: %v", roomID, err)
		return nil, apperrors.Store("failed to load room", err)
	}
	return &room, nil
}

func (s *Service) AddParticipant(ctx context.Context, roomID string, p *models.Participant) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the room row: it is the serialization point for joins.
		var room models.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ?", roomID).First(&room).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("room not found")
		}
		if err != nil {
			return apperrors.Store("failed to lock room", err)
		}

		var existing []models.Participant
		if err := tx.Where("room_id = ?", roomID).Find(&existing).Error; err != nil {
			return apperrors.Store("failed to load participants", err)
		}
		for _, member := range existing {
			if member.UserID == p.UserID {
				return apperrors.Conflict("user has already joined this room")
			}
		}
		if len(existing) >= config.MaxParticipants {
			return apperrors.Conflict("room is already full")
		}

		p.RoomID = roomID
		if p.JoinedAt.IsZero() {
			p.JoinedAt = time.Now()
		}
		if err := tx.Create(p).Error; err != nil {
			log.Printf("ERROR: Failed to add participant %s to room %s: %v", p.UserID, roomID, err)
			return apperrors.Store("failed to add participant", err)
		}
		return nil
	})
}

func (s *Service) RecordConclusion(ctx context.Context, c *models.Conclusion) (bool, error) {
	flipped := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Participant{}).
			Where("room_id = ? AND user_id = ? AND submitted = ?", c.RoomID, c.UserID, false).
			Update("submitted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		flipped = true
		return tx.Create(c).Error
	})
	if err != nil {
		log.Printf("ERROR: Failed to record conclusion for user %s in room %s: %v", c.UserID, c.RoomID, err)
		return false, apperrors.Store("failed to save conclusion", err)
	}
	return flipped, nil
}

func (s *Service) TransitionRoomStatus(ctx context.Context, roomID string, from, to models.RoomStatus) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("room_id = ? AND status = ?", roomID, from).
		Update("status", to)
	if res.Error != nil {
		log.Printf("ERROR: Failed to transition room %s %s->%s: %v", roomID, from, to, res.Error)
		return false, apperrors.Store("failed to update room status", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) CompleteComparison(ctx context.Context, roomID, verdict, comparisonSessionID string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("room_id = ? AND status = ?", roomID, models.RoomStatusComparing).
		Updates(map[string]interface{}{
			"status":                models.RoomStatusCompleted,
			"verdict":               verdict,
			"comparison_session_id": comparisonSessionID,
		})
	if res.Error != nil {
		log.Printf("ERROR: Failed to complete comparison for room %s: %v", roomID, res.Error)
		return false, apperrors.Store("failed to store verdict", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// --- Chat sessions ---

func (s *Service) FindOrCreateSession(ctx context.Context, roomID, userID string) (*models.ChatSession, error) {
	session := models.ChatSession{RoomID: roomID, UserID: userID}
	err := s.DB.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		FirstOrCreate(&session, models.ChatSession{
			RoomID: roomID,
			UserID: userID,
			Status: models.SessionStatusActive,
		}).Error
	if err != nil {
		log.Printf("ERROR: Failed to find or create session for room %s user %s: %v", roomID, userID, err)
		return nil, apperrors.Store("failed to open chat session", err)
	}
	return &session, nil
}

func (s *Service) GetSessionMessages(ctx context.Context, sessionID string) ([]models.SessionMessage, error) {
	var msgs []models.SessionMessage
	err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&msgs).Error
	if err != nil {
		log.Printf("ERROR: Failed to load messages for session %s: %v", sessionID, err)
		return nil, apperrors.Store("failed to load chat history", err)
	}
	return msgs, nil
}

func (s *Service) AppendSessionMessage(ctx context.Context, msg *models.SessionMessage) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to append message to session %s: %v", msg.SessionID, err)
		return apperrors.Store("failed to save message", err)
	}
	return nil
}

// --- Redis: events, locks, rate counters ---

func roomChannel(roomID string) string    { return "room:" + roomID }
func compareLockKey(roomID string) string { return "compare_lock:" + roomID }
func chatRateKey(userID string) string    { return "chat_rate:" + userID }

// PublishRoomEvent fans a lifecycle event out to every server holding a
// WebSocket for the room. Best effort: callers log failures, state is already
// committed.
func (s *Service) PublishRoomEvent(ctx context.Context, ev models.RoomEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, roomChannel(ev.RoomID), payload).Err()
}

// SubscribeRoomEvents subscribes to every room channel. The realtime hub
// filters by the rooms of its registered clients.
func (s *Service) SubscribeRoomEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, roomChannel("*"))
}

// releaseLockScript deletes the lock key only when it still holds the
// caller's token.
var releaseLockScript = redis.NewScript(
	`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`)

func (s *Service) AcquireComparisonLock(ctx context.Context, roomID string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := s.Redis.SetNX(ctx, compareLockKey(roomID), token, ttl).Result()
	if err != nil {
		return "", apperrors.Store("failed to acquire comparison lock", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (s *Service) ReleaseComparisonLock(ctx context.Context, roomID, token string) error {
	return releaseLockScript.Run(ctx, s.Redis, []string{compareLockKey(roomID)}, token).Err()
}

// AllowChatTurn counts the user's turns in the current window. The first turn
// of a window sets the TTL.
func (s *Service) AllowChatTurn(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	key := chatRateKey(userID)
	count, err := s.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, apperrors.Store("rate limiter unavailable", err)
	}
	if count == 1 {
		if err := s.Redis.Expire(ctx, key, window).Err(); err != nil {
			return false, apperrors.Store("rate limiter unavailable", err)
		}
	}
	return count <= int64(limit), nil
}
