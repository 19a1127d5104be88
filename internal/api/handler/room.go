package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateRoom opens a new room. POST {"question": "", "password": ""}.
func (h *Handler) CreateRoom(c *gin.Context) {
	type body struct {
		Question string `json:"question" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var req body
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question and password are required"})
		return
	}
	userID := c.GetString(ctxUserID)

	roomID, err := h.Engine.CreateRoom(c.Request.Context(), userID, req.Question, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room_id": roomID})
}

// JoinRoom adds the caller as the second participant. POST {"password": ""}.
func (h *Handler) JoinRoom(c *gin.Context) {
	type body struct {
		Password string `json:"password" binding:"required"`
	}
	var req body
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}
	userID := c.GetString(ctxUserID)
	roomID := c.Param("id")

	if err := h.Engine.JoinRoom(c.Request.Context(), userID, roomID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

// SubmitConclusion records the caller's final answer, either from the request
// body or derived from the last assistant reply in their chat session.
// POST {"content": ""} or {"from_chat": true}.
func (h *Handler) SubmitConclusion(c *gin.Context) {
	type body struct {
		Content  string `json:"content"`
		FromChat bool   `json:"from_chat"`
	}
	var req body
	if err := c.ShouldBindJSON(&req); err != nil || (req.Content == "" && !req.FromChat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content or from_chat is required"})
		return
	}
	userID := c.GetString(ctxUserID)
	roomID := c.Param("id")
	ctx := c.Request.Context()

	content := req.Content
	if req.FromChat {
		derived, err := h.Chat.LastAssistantMessage(ctx, roomID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		content = derived
	}

	complete, err := h.Engine.SubmitConclusion(ctx, userID, roomID, content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_complete": complete})
}

// RoomStatus returns the caller's read-only projection of the room.
func (h *Handler) RoomStatus(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	roomID := c.Param("id")

	view, err := h.Engine.Status(c.Request.Context(), userID, roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CompareRoom triggers verdict generation for a room whose participants have
// both submitted. Participants only.
func (h *Handler) CompareRoom(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	roomID := c.Param("id")
	ctx := c.Request.Context()

	// Membership check rides on the status projection.
	if _, err := h.Engine.Status(ctx, userID, roomID); err != nil {
		respondError(c, err)
		return
	}

	verdict, err := h.Orchestrator.CompareRoom(ctx, roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdict": verdict})
}
