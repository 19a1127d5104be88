// Package storagetest provides an in-memory Storage implementation for
// service-level tests. It honors the same conditional-write semantics as the
// real service (submission-flag CAS, status-transition CAS, join locking), so
// concurrency properties can be exercised without a database.
package storagetest

import (
	"context"
	"sync"
	"time"

	"blindjudge/backend/internal/apperrors"
	"blindjudge/backend/internal/config"
	"blindjudge/backend/internal/models"

	"github.com/google/uuid"
)

type Fake struct {
	mu sync.Mutex

	users    map[string]*models.User
	rooms    map[string]*models.Room
	sessions map[string]*models.ChatSession     // key roomID + "|" + userID
	messages map[string][]models.SessionMessage // key sessionID
	locks    map[string]string                  // roomID -> fencing token
	counts   map[string]int

	Events []models.RoomEvent

	// Error injection points. When set, the corresponding operation fails.
	RecordConclusionErr error
	PublishErr          error
}

func NewFake() *Fake {
	return &Fake{
		users:    make(map[string]*models.User),
		rooms:    make(map[string]*models.Room),
		sessions: make(map[string]*models.ChatSession),
		messages: make(map[string][]models.SessionMessage),
		locks:    make(map[string]string),
		counts:   make(map[string]int),
	}
}

// SeedUser registers a user directly, bypassing password handling.
func (f *Fake) SeedUser(username string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: uuid.New().String(), Username: username, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u
}

func (f *Fake) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return apperrors.Conflict("username is already taken")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *Fake) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *Fake) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *Fake) CreateRoom(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room.RoomID == "" {
		room.RoomID = uuid.New().String()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	cp := copyRoom(room)
	f.rooms[room.RoomID] = cp
	return nil
}

func (f *Fake) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	return copyRoom(room), nil
}

func (f *Fake) AddParticipant(ctx context.Context, roomID string, p *models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return apperrors.NotFound("room not found")
	}
	for _, member := range room.Participants {
		if member.UserID == p.UserID {
			return apperrors.Conflict("user has already joined this room")
		}
	}
	if len(room.Participants) >= config.MaxParticipants {
		return apperrors.Conflict("room is already full")
	}
	p.RoomID = roomID
	room.Participants = append(room.Participants, *p)
	return nil
}

func (f *Fake) RecordConclusion(ctx context.Context, c *models.Conclusion) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[c.RoomID]
	if !ok {
		return false, apperrors.NotFound("room not found")
	}
	for i := range room.Participants {
		if room.Participants[i].UserID == c.UserID && !room.Participants[i].Submitted {
			if f.RecordConclusionErr != nil {
				// The flag write and the append commit or fail together.
				return false, f.RecordConclusionErr
			}
			room.Participants[i].Submitted = true
			c.CreatedAt = time.Now()
			room.Conclusions = append(room.Conclusions, *c)
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) TransitionRoomStatus(ctx context.Context, roomID string, from, to models.RoomStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return false, apperrors.NotFound("room not found")
	}
	if room.Status != from {
		return false, nil
	}
	room.Status = to
	return true, nil
}

func (f *Fake) CompleteComparison(ctx context.Context, roomID, verdict, comparisonSessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return false, apperrors.NotFound("room not found")
	}
	if room.Status != models.RoomStatusComparing {
		return false, nil
	}
	room.Status = models.RoomStatusCompleted
	room.Verdict = verdict
	room.ComparisonSessionID = comparisonSessionID
	return true, nil
}

func (f *Fake) FindOrCreateSession(ctx context.Context, roomID, userID string) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := roomID + "|" + userID
	if s, ok := f.sessions[key]; ok {
		cp := *s
		return &cp, nil
	}
	s := &models.ChatSession{
		SessionID: uuid.New().String(),
		RoomID:    roomID,
		UserID:    userID,
		Status:    models.SessionStatusActive,
		CreatedAt: time.Now(),
	}
	f.sessions[key] = s
	cp := *s
	return &cp, nil
}

func (f *Fake) GetSessionMessages(ctx context.Context, sessionID string) ([]models.SessionMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[sessionID]
	out := make([]models.SessionMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *Fake) AppendSessionMessage(ctx context.Context, msg *models.SessionMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = uint(len(f.messages[msg.SessionID]) + 1)
	msg.CreatedAt = time.Now()
	f.messages[msg.SessionID] = append(f.messages[msg.SessionID], *msg)
	return nil
}

func (f *Fake) PublishRoomEvent(ctx context.Context, ev models.RoomEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Events = append(f.Events, ev)
	return nil
}

// EventsOfType returns published events filtered by type.
func (f *Fake) EventsOfType(eventType string) []models.RoomEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RoomEvent
	for _, ev := range f.Events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (f *Fake) AcquireComparisonLock(ctx context.Context, roomID string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[roomID] != "" {
		return "", nil
	}
	token := uuid.New().String()
	f.locks[roomID] = token
	return token, nil
}

func (f *Fake) ReleaseComparisonLock(ctx context.Context, roomID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[roomID] == token {
		delete(f.locks, roomID)
	}
	return nil
}

func (f *Fake) AllowChatTurn(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]++
	return f.counts[userID] <= limit, nil
}

// copyRoom deep-copies so readers get a snapshot, like a database row scan.
func copyRoom(room *models.Room) *models.Room {
	cp := *room
	cp.Participants = make([]models.Participant, len(room.Participants))
	copy(cp.Participants, room.Participants)
	cp.Conclusions = make([]models.Conclusion, len(room.Conclusions))
	copy(cp.Conclusions, room.Conclusions)
	return &cp
}
