package room

import (
	"context"
	"fmt"
	"log"
	"time"

	"blindjudge/backend/internal/ai"
	"blindjudge/backend/internal/apperrors"
	"blindjudge/backend/internal/config"
	"blindjudge/backend/internal/models"
	"blindjudge/backend/internal/storage"

	"github.com/google/uuid"
)

// Alerter receives operator notifications. The Telegram notifier implements
// it; tests and minimal deployments use NopAlerter.
type Alerter interface {
	IntegrityAlert(roomID, detail string)
	ComparisonCompleted(roomID string)
}

// NopAlerter discards all notifications.
type NopAlerter struct{}

func (NopAlerter) IntegrityAlert(string, string) {}
func (NopAlerter) ComparisonCompleted(string)    {}

// Orchestrator produces the final verdict for a room exactly once.
type Orchestrator struct {
	Storage storage.Storage
	Gateway ai.Gateway
	Alerter Alerter
}

func NewOrchestrator(s storage.Storage, gw ai.Gateway, alerter Alerter) *Orchestrator {
	if alerter == nil {
		alerter = NopAlerter{}
	}
	return &Orchestrator{Storage: s, Gateway: gw, Alerter: alerter}
}

// CompareRoom drives the gateway over both conclusions and commits the
// verdict. Legal only while the room is in `comparing`; a completed room is
// rejected rather than silently regenerated, so a stored verdict can never be
// overwritten. A gateway failure leaves the room in `comparing`, eligible for
// retry.
//
// Two guards bound races between concurrent callers: a Redis in-flight lock
// keeps the gateway call count at one, and the verdict write is conditional
// on the status still being `comparing`.
func (o *Orchestrator) CompareRoom(ctx context.Context, roomID string) (string, error) {
	room, err := o.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.Status != models.RoomStatusComparing {
		return "", apperrors.Precondition(
			fmt.Sprintf("room is %s, comparison requires status %s", room.Status, models.RoomStatusComparing))
	}

	if err := o.checkIntegrity(room); err != nil {
		return "", err
	}

	lockToken, err := o.Storage.AcquireComparisonLock(ctx, roomID, config.ComparisonLockTTL)
	if err != nil {
		return "", err
	}
	if lockToken == "" {
		return "", apperrors.Conflict("comparison already in progress")
	}
	defer func() {
		if err := o.Storage.ReleaseComparisonLock(ctx, roomID, lockToken); err != nil {
			log.Printf("ERROR: Failed to release comparison lock for room %s: %v", roomID, err)
		}
	}()

	first, second := room.Conclusions[0], room.Conclusions[1]
	req := ai.CompareRequest{
		Question: room.Question,
		NameA:    room.ParticipantFor(first.UserID).DisplayName,
		TextA:    first.Content,
		NameB:    room.ParticipantFor(second.UserID).DisplayName,
		TextB:    second.Content,
	}

	gwCtx, cancel := context.WithTimeout(ctx, config.CompareTimeout)
	defer cancel()

	verdict, err := o.Gateway.Compare(gwCtx, req)
	if err != nil {
		// No state committed: the room stays in comparing and a later call
		// may retry.
		return "", apperrors.Upstream("comparison generation failed", err)
	}

	committed, err := o.Storage.CompleteComparison(ctx, roomID, verdict, uuid.New().String())
	if err != nil {
		return "", err
	}
	if !committed {
		// Another path completed the room between our status check and the
		// write. The stored verdict stands.
		return "", apperrors.Precondition("room is no longer awaiting comparison")
	}

	if err := o.Storage.PublishRoomEvent(ctx, models.RoomEvent{
		RoomID: roomID,
		Type:   models.EventComparisonCompleted,
		Status: models.RoomStatusCompleted,
		At:     time.Now(),
	}); err != nil {
		log.Printf("ERROR: Failed to publish completion event for room %s: %v", roomID, err)
	}
	o.Alerter.ComparisonCompleted(roomID)

	return verdict, nil
}

// checkIntegrity validates the stored data against the state machine's
// invariants. Violations indicate a bug or corruption, never ordinary client
// error, so they are logged with full context and alerted.
func (o *Orchestrator) checkIntegrity(room *models.Room) error {
	if len(room.Conclusions) != 2 {
		detail := fmt.Sprintf("room %s in %s has %d conclusions and %d participants, want exactly 2 conclusions",
			room.RoomID, room.Status, len(room.Conclusions), len(room.Participants))
		log.Printf("ERROR: Data integrity violation: %s", detail)
		o.Alerter.IntegrityAlert(room.RoomID, detail)
		return apperrors.DataIntegrity("room does not hold exactly two conclusions")
	}
	for _, c := range room.Conclusions {
		if room.ParticipantFor(c.UserID) == nil {
			detail := fmt.Sprintf("room %s has a conclusion by %s who is not a participant", room.RoomID, c.UserID)
			log.Printf("ERROR: Data integrity violation: %s", detail)
			o.Alerter.IntegrityAlert(room.RoomID, detail)
			return apperrors.DataIntegrity("conclusion author is not a participant")
		}
	}
	return nil
}
