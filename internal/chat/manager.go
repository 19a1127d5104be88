// Package chat maintains each participant's private transcript with the
// assistant and decides prompt framing. Sessions are keyed by (room, user)
// and are never contended across users.
package chat

import (
	"context"

	"blindjudge/backend/internal/ai"
	"blindjudge/backend/internal/apperrors"
	"blindjudge/backend/internal/config"
	"blindjudge/backend/internal/models"
	"blindjudge/backend/internal/storage"
)

type Manager struct {
	Storage storage.Storage
	Gateway ai.Gateway
}

func NewManager(s storage.Storage, gw ai.Gateway) *Manager {
	return &Manager{Storage: s, Gateway: gw}
}

// GetOrCreateSession returns the (room, user) session, creating it on first
// use. Idempotent.
func (m *Manager) GetOrCreateSession(ctx context.Context, roomID, userID string) (*models.ChatSession, error) {
	room, err := m.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.ParticipantFor(userID) == nil {
		return nil, apperrors.Forbidden("you are not a participant of this room")
	}
	return m.Storage.FindOrCreateSession(ctx, roomID, userID)
}

// SendTurn appends the user's message, asks the gateway for a reply with the
// full history, and appends the assistant's answer.
//
// The stored user message is always the exact input text. On the session's
// first turn the *transmitted* copy of that message is augmented with the
// room's guiding question; persisted history is never rewritten. If the
// gateway fails, the user turn stays committed, no assistant message is
// added, and the error carries the upstream kind so callers can retry.
func (m *Manager) SendTurn(ctx context.Context, roomID, userID, text string) (string, error) {
	room, err := m.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.ParticipantFor(userID) == nil {
		return "", apperrors.Forbidden("you are not a participant of this room")
	}

	session, err := m.Storage.FindOrCreateSession(ctx, roomID, userID)
	if err != nil {
		return "", err
	}

	if err := m.Storage.AppendSessionMessage(ctx, &models.SessionMessage{
		SessionID: session.SessionID,
		Role:      models.RoleUser,
		Content:   text,
	}); err != nil {
		return "", err
	}

	msgs, err := m.Storage.GetSessionMessages(ctx, session.SessionID)
	if err != nil {
		return "", err
	}
	firstTurn := len(msgs) == 1

	history := make([]ai.Message, len(msgs))
	for i, msg := range msgs {
		history[i] = ai.Message{Role: msg.Role, Content: msg.Content}
	}
	if firstTurn && room.Question != "" {
		history[len(history)-1].Content = ai.FrameFirstTurn(room.Question, text)
	}

	gwCtx, cancel := context.WithTimeout(ctx, config.GenerateTimeout)
	defer cancel()

	reply, err := m.Gateway.Generate(gwCtx, history, room.Question)
	if err != nil {
		return "", apperrors.Upstream("assistant reply failed", err)
	}

	if err := m.Storage.AppendSessionMessage(ctx, &models.SessionMessage{
		SessionID: session.SessionID,
		Role:      models.RoleAssistant,
		Content:   reply,
	}); err != nil {
		return "", err
	}
	return reply, nil
}

// History returns the caller's full transcript in order.
func (m *Manager) History(ctx context.Context, roomID, userID string) ([]models.SessionMessage, error) {
	session, err := m.GetOrCreateSession(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	return m.Storage.GetSessionMessages(ctx, session.SessionID)
}

// LastAssistantMessage returns the text of the most recent assistant turn,
// used to derive a conclusion from chat instead of manual entry.
func (m *Manager) LastAssistantMessage(ctx context.Context, roomID, userID string) (string, error) {
	msgs, err := m.History(ctx, roomID, userID)
	if err != nil {
		return "", err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant {
			return msgs[i].Content, nil
		}
	}
	return "", apperrors.NotFound("no assistant reply to conclude from")
}
