package handler

import (
	"blindjudge/backend/internal/chat"
	"blindjudge/backend/internal/realtime"
	"blindjudge/backend/internal/room"
	"blindjudge/backend/internal/storage"
)

// Handler wires the HTTP boundary to the core services. It resolves the
// authenticated user once per request (middleware) and passes the id into
// every core call explicitly.
type Handler struct {
	Engine       *room.Engine
	Orchestrator *room.Orchestrator
	Chat         *chat.Manager
	Hub          *realtime.Hub
	Storage      storage.Storage
	JWTSecret    []byte
}

func NewHandler(engine *room.Engine, orch *room.Orchestrator, chatMgr *chat.Manager, hub *realtime.Hub, s storage.Storage, jwtSecret []byte) *Handler {
	return &Handler{
		Engine:       engine,
		Orchestrator: orch,
		Chat:         chatMgr,
		Hub:          hub,
		Storage:      s,
		JWTSecret:    jwtSecret,
	}
}
