package models

import "time"

// Room event types published over Redis Pub/Sub and pushed to WebSocket
// subscribers.
const (
	EventParticipantJoined   = "participant_joined"
	EventConclusionSubmitted = "conclusion_submitted"
	EventComparisonStarted   = "comparison_started"
	EventComparisonCompleted = "comparison_completed"
)

// RoomEvent notifies a room's participants of a lifecycle change. Events are
// advisory: clients re-fetch room status for authoritative state.
type RoomEvent struct {
	RoomID  string     `json:"room_id"`
	Type    string     `json:"type"`
	ActorID string     `json:"actor_id,omitempty"`
	Status  RoomStatus `json:"status"`
	At      time.Time  `json:"at"`
}
