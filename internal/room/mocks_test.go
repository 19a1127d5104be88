package room_test

import (
	"context"
	"sync"
	"testing"

	"blindjudge/backend/internal/ai"
	"blindjudge/backend/internal/room"
	"blindjudge/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGateway is a call-counting test double for the AI gateway.
type MockGateway struct {
	mock.Mock
}

func (g *MockGateway) Generate(ctx context.Context, history []ai.Message, guidingQuestion string) (string, error) {
	args := g.Called(ctx, history, guidingQuestion)
	return args.String(0), args.Error(1)
}

func (g *MockGateway) Compare(ctx context.Context, req ai.CompareRequest) (string, error) {
	args := g.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// recordingAlerter collects operator notifications for assertion.
type recordingAlerter struct {
	mu        sync.Mutex
	integrity []string
	completed []string
}

func (a *recordingAlerter) IntegrityAlert(roomID, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.integrity = append(a.integrity, roomID)
}

func (a *recordingAlerter) ComparisonCompleted(roomID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completed = append(a.completed, roomID)
}

// newPairedRoom creates a room with two joined participants and returns
// (store, engine, roomID, creatorID, joinerID).
func newPairedRoom(t *testing.T, question, password string) (*storagetest.Fake, *room.Engine, string, string, string) {
	t.Helper()
	store := storagetest.NewFake()
	engine := room.NewEngine(store)

	alice := store.SeedUser("alice")
	bob := store.SeedUser("bob")

	roomID, err := engine.CreateRoom(context.Background(), alice.ID, question, password)
	require.NoError(t, err)
	require.NoError(t, engine.JoinRoom(context.Background(), bob.ID, roomID, password))

	return store, engine, roomID, alice.ID, bob.ID
}
