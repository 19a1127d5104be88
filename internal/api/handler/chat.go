package handler

import (
	"net/http"

	"blindjudge/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// SendChatTurn appends a user message to the caller's session and returns the
// assistant's reply. POST {"message": ""}.
func (h *Handler) SendChatTurn(c *gin.Context) {
	type body struct {
		Message string `json:"message" binding:"required"`
	}
	var req body
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	userID := c.GetString(ctxUserID)
	roomID := c.Param("id")
	ctx := c.Request.Context()

	allowed, err := h.Storage.AllowChatTurn(ctx, userID, config.ChatTurnsPerWindow, config.ChatRateWindow)
	if err != nil {
		respondError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		return
	}

	reply, err := h.Chat.SendTurn(ctx, roomID, userID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// ChatHistory returns the caller's transcript for the room.
func (h *Handler) ChatHistory(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	roomID := c.Param("id")

	msgs, err := h.Chat.History(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
