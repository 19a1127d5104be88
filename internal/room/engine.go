// Package room owns the room lifecycle state machine and the comparison
// orchestration built on top of it. All state-advancing writes go through
// conditional storage operations; this package never does a blind
// read-modify-write on shared room state.
package room

import (
	"context"
	"log"
	"time"

	"blindjudge/backend/internal/apperrors"
	"blindjudge/backend/internal/config"
	"blindjudge/backend/internal/models"
	"blindjudge/backend/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Engine enforces the legal state transitions of a room and the submission
// protocol between its two participants.
type Engine struct {
	Storage storage.Storage
}

func NewEngine(s storage.Storage) *Engine {
	return &Engine{Storage: s}
}

// CreateRoom persists a new active room with the creator as its first
// participant and returns the room id.
func (e *Engine) CreateRoom(ctx context.Context, creatorUserID, question, password string) (string, error) {
	user, err := e.Storage.GetUserByID(ctx, creatorUserID)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), config.BcryptCost)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUnknown, "failed to hash room password", err)
	}

	room := &models.Room{
		Question:     question,
		PasswordHash: string(hash),
		CreatorID:    user.ID,
		Status:       models.RoomStatusActive,
		Participants: []models.Participant{{
			UserID:      user.ID,
			DisplayName: user.Username,
			Submitted:   false,
			JoinedAt:    time.Now(),
		}},
	}
	if err := e.Storage.CreateRoom(ctx, room); err != nil {
		return "", err
	}
	return room.RoomID, nil
}

// JoinRoom adds userID as the second participant after verifying the room
// password. Capacity and uniqueness are enforced by the storage layer under
// a room lock, so two concurrent joins can never overshoot two members.
func (e *Engine) JoinRoom(ctx context.Context, userID, roomID, password string) error {
	room, err := e.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	user, err := e.Storage.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)); err != nil {
		return apperrors.Unauthorized("invalid room password")
	}

	err = e.Storage.AddParticipant(ctx, roomID, &models.Participant{
		UserID:      user.ID,
		DisplayName: user.Username,
		Submitted:   false,
		JoinedAt:    time.Now(),
	})
	if err != nil {
		return err
	}

	e.publish(ctx, models.RoomEvent{
		RoomID:  roomID,
		Type:    models.EventParticipantJoined,
		ActorID: user.ID,
		Status:  models.RoomStatusActive,
		At:      time.Now(),
	})
	return nil
}

// SubmitConclusion records the participant's final answer at most once.
// Returns whether the room is now complete (both participants submitted).
//
// The submission flag compare-and-set is the serialization point: of two
// concurrent submissions by the same user exactly one flips the flag, and the
// loser gets Conflict without appending a second conclusion. The flag flip
// and the conclusion append are one storage transaction, so a failed write
// leaves the flag clear and the submission retryable. The
// active -> comparing transition is its own conditional write, so whichever
// submission completes the pair triggers it exactly once.
func (e *Engine) SubmitConclusion(ctx context.Context, userID, roomID, text string) (bool, error) {
	room, err := e.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	if room.ParticipantFor(userID) == nil {
		return false, apperrors.Forbidden("you are not a participant of this room")
	}

	flipped, err := e.Storage.RecordConclusion(ctx, &models.Conclusion{
		RoomID:  roomID,
		UserID:  userID,
		Content: text,
	})
	if err != nil {
		return false, err
	}
	if !flipped {
		return false, apperrors.Conflict("conclusion already submitted")
	}

	e.publish(ctx, models.RoomEvent{
		RoomID:  roomID,
		Type:    models.EventConclusionSubmitted,
		ActorID: userID,
		Status:  models.RoomStatusActive,
		At:      time.Now(),
	})

	// Re-read to decide completeness from persisted state, not from the
	// snapshot taken before the flag write.
	fresh, err := e.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !fresh.AllSubmitted() {
		return false, nil
	}

	advanced, err := e.Storage.TransitionRoomStatus(ctx, roomID, models.RoomStatusActive, models.RoomStatusComparing)
	if err != nil {
		return true, err
	}
	if advanced {
		e.publish(ctx, models.RoomEvent{
			RoomID: roomID,
			Type:   models.EventComparisonStarted,
			Status: models.RoomStatusComparing,
			At:     time.Now(),
		})
	}
	return true, nil
}

// ParticipantView is the per-member slice of a status projection.
type ParticipantView struct {
	DisplayName string `json:"display_name"`
	Submitted   bool   `json:"submitted"`
}

// StatusView is a read-only projection of a room for one of its participants.
// Conclusions themselves stay private; only counts and flags are exposed.
type StatusView struct {
	RoomID          string            `json:"room_id"`
	Question        string            `json:"question"`
	Status          models.RoomStatus `json:"status"`
	Participants    []ParticipantView `json:"participants"`
	ConclusionCount int               `json:"conclusion_count"`
	Verdict         string            `json:"verdict,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Status returns the room projection for userID. No side effects.
func (e *Engine) Status(ctx context.Context, userID, roomID string) (*StatusView, error) {
	room, err := e.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.ParticipantFor(userID) == nil {
		return nil, apperrors.Forbidden("you are not a participant of this room")
	}

	view := &StatusView{
		RoomID:          room.RoomID,
		Question:        room.Question,
		Status:          room.Status,
		ConclusionCount: len(room.Conclusions),
		CreatedAt:       room.CreatedAt,
	}
	for _, p := range room.Participants {
		view.Participants = append(view.Participants, ParticipantView{
			DisplayName: p.DisplayName,
			Submitted:   p.Submitted,
		})
	}
	if room.Status == models.RoomStatusCompleted {
		view.Verdict = room.Verdict
	}
	return view, nil
}

// publish is best effort: the state change is already committed, a missed
// event only delays clients until their next status poll.
func (e *Engine) publish(ctx context.Context, ev models.RoomEvent) {
	if err := e.Storage.PublishRoomEvent(ctx, ev); err != nil {
		log.Printf("ERROR: Failed to publish %s event for room %s: %v", ev.Type, ev.RoomID, err)
	}
}
