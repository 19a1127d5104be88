// Package realtime pushes room lifecycle events to connected participants.
// Events originate in the engine/orchestrator, travel through Redis Pub/Sub
// (so any server instance can fan them out), and land on WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log"

	"blindjudge/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventSource provides the Pub/Sub subscription the hub listens on.
// *storage.Service implements it.
type EventSource interface {
	SubscribeRoomEvents(ctx context.Context) *redis.PubSub
}

// Hub tracks connected clients and routes room events to them.
type Hub struct {
	Clients map[Client]bool

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventCh      chan models.RoomEvent

	source EventSource
}

func NewHub(source EventSource) *Hub {
	return &Hub{
		Clients:      make(map[Client]bool),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventCh:      make(chan models.RoomEvent, 16),
		source:       source,
	}
}

// startListener feeds Redis Pub/Sub into EventCh.
func (h *Hub) startListener() {
	go func() {
		ctx := context.Background()
		pubsub := h.source.SubscribeRoomEvents(ctx)
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("ERROR: Failed to decode room event: %v", err)
				continue
			}
			h.EventCh <- ev
		}
	}()
}

// Run is the hub's main loop. Start it once in a goroutine.
func (h *Hub) Run() {
	if h.source != nil {
		h.startListener()
	}
	log.Println("Realtime hub started.")

	for {
		select {
		case client := <-h.RegisterCh:
			h.Clients[client] = true

		case client := <-h.UnregisterCh:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Close()
			}

		case ev := <-h.EventCh:
			for client := range h.Clients {
				if client.GetRoomID() != ev.RoomID {
					continue
				}
				select {
				case client.GetSendChannel() <- ev:
				default:
					// Slow consumer: drop the connection rather than block
					// the hub.
					delete(h.Clients, client)
					client.Close()
				}
			}
		}
	}
}
