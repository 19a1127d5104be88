package realtime

import "blindjudge/backend/internal/models"

// Client is one subscriber to a room's event feed. It abstracts the
// underlying connection so the hub can manage transports uniformly.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// GetRoomID returns the room whose events the client receives.
	GetRoomID() string
	// GetSendChannel returns the channel the hub pushes events into.
	GetSendChannel() chan<- models.RoomEvent
	// Run starts the connection's pumps.
	Run()
	// Close shuts the connection down and releases its channels.
	Close()
}
