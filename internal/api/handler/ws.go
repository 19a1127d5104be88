package handler

import (
	"net/http"

	"blindjudge/backend/internal/models"
	"blindjudge/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeRoomEvents upgrades the connection to a WebSocket that streams the
// room's lifecycle events to a participant.
func (h *Handler) ServeRoomEvents(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	roomID := c.Param("id")

	// Membership gate before the upgrade: only participants may subscribe.
	if _, err := h.Engine.Status(c.Request.Context(), userID, roomID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	client := &realtime.WebSocketClient{
		UserID: userID,
		RoomID: roomID,
		Conn:   conn,
		Hub:    h.Hub,
		Send:   make(chan models.RoomEvent, 16),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
