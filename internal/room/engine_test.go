package room_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"blindjudge/backend/internal/apperrors"
	"blindjudge/backend/internal/models"
	"blindjudge/backend/internal/room"
	"blindjudge/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	store := storagetest.NewFake()
	engine := room.NewEngine(store)
	alice := store.SeedUser("alice")

	roomID, err := engine.CreateRoom(context.Background(), alice.ID, "Is X good?", "pw1234")

	require.NoError(t, err)
	assert.NotEmpty(t, roomID)

	created, err := store.GetRoomByID(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, created.Status)
	assert.Equal(t, alice.ID, created.CreatorID)
	require.Len(t, created.Participants, 1)
	assert.Equal(t, "alice", created.Participants[0].DisplayName)
	assert.False(t, created.Participants[0].Submitted)
	assert.Empty(t, created.Conclusions)
	// Password is stored hashed, never verbatim.
	assert.NotEqual(t, "pw1234", created.PasswordHash)
	assert.NotEmpty(t, created.PasswordHash)
}

func TestCreateRoom_UnknownCreator(t *testing.T) {
	store := storagetest.NewFake()
	engine := room.NewEngine(store)

	_, err := engine.CreateRoom(context.Background(), "no-such-user", "Is X good?", "pw1234")

	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestJoinRoom(t *testing.T) {
	_, engine, roomID, creatorID, joinerID := newPairedRoom(t, "Is X good?", "pw1234")

	view, err := engine.Status(context.Background(), joinerID, roomID)
	require.NoError(t, err)
	require.Len(t, view.Participants, 2)
	// Join order is preserved: creator first.
	assert.Equal(t, "alice", view.Participants[0].DisplayName)
	assert.Equal(t, "bob", view.Participants[1].DisplayName)

	_, err = engine.Status(context.Background(), creatorID, roomID)
	assert.NoError(t, err)
}

func TestJoinRoom_WrongPassword(t *testing.T) {
	store := storagetest.NewFake()
	engine := room.NewEngine(store)
	alice := store.SeedUser("alice")
	bob := store.SeedUser("bob")

	roomID, err := engine.CreateRoom(context.Background(), alice.ID, "Is X good?", "pw1234")
	require.NoError(t, err)

	err = engine.JoinRoom(context.Background(), bob.ID, roomID, "wrong")

	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	view, err := engine.Status(context.Background(), alice.ID, roomID)
	require.NoError(t, err)
	assert.Len(t, view.Participants, 1, "failed join must not add a participant")
}

func TestJoinRoom_AlreadyJoined(t *testing.T) {
	_, engine, roomID, _, joinerID := newPairedRoom(t, "Is X good?", "pw1234")

	err := engine.JoinRoom(context.Background(), joinerID, roomID, "pw1234")

	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestJoinRoom_Full(t *testing.T) {
	store, engine, roomID, creatorID, _ := newPairedRoom(t, "Is X good?", "pw1234")
	carol := store.SeedUser("carol")

	err := engine.JoinRoom(context.Background(), carol.ID, roomID, "pw1234")

	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	view, err := engine.Status(context.Background(), creatorID, roomID)
	require.NoError(t, err)
	assert.Len(t, view.Participants, 2, "capacity ceiling must hold")
}

func TestJoinRoom_UnknownRoom(t *testing.T) {
	store := storagetest.NewFake()
	engine := room.NewEngine(store)
	alice := store.SeedUser("alice")

	err := engine.JoinRoom(context.Background(), alice.ID, "no-such-room", "pw1234")

	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

// TestSubmitConclusion_FullScenario walks the happy path of the whole
// submission protocol: first submission keeps the room active, the second
// advances it to comparing and reports completeness.
func TestSubmitConclusion_FullScenario(t *testing.T) {
	store, engine, roomID, aliceID, bobID := newPairedRoom(t, "Is X good?", "pw1234")
	ctx := context.Background()

	complete, err := engine.SubmitConclusion(ctx, aliceID, roomID, "X is good because...")
	require.NoError(t, err)
	assert.False(t, complete, "room is not complete until both submitted")

	view, err := engine.Status(ctx, aliceID, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, view.Status)
	assert.True(t, view.Participants[0].Submitted)
	assert.False(t, view.Participants[1].Submitted)
	assert.Equal(t, 1, view.ConclusionCount)

	complete, err = engine.SubmitConclusion(ctx, bobID, roomID, "X is bad because...")
	require.NoError(t, err)
	assert.True(t, complete)

	view, err = engine.Status(ctx, bobID, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusComparing, view.Status)
	assert.Equal(t, 2, view.ConclusionCount)

	assert.Len(t, store.EventsOfType(models.EventComparisonStarted), 1,
		"comparison_started must be published exactly once")
}

func TestSubmitConclusion_Duplicate(t *testing.T) {
	_, engine, roomID, aliceID, _ := newPairedRoom(t, "Is X good?", "pw1234")
	ctx := context.Background()

	_, err := engine.SubmitConclusion(ctx, aliceID, roomID, "first")
	require.NoError(t, err)

	_, err = engine.SubmitConclusion(ctx, aliceID, roomID, "second")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	view, err := engine.Status(ctx, aliceID, roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ConclusionCount, "duplicate submission must not append")
	assert.True(t, view.Participants[0].Submitted, "flag stays set after rejected duplicate")
}

func TestSubmitConclusion_NotParticipant(t *testing.T) {
	store, engine, roomID, _, _ := newPairedRoom(t, "Is X good?", "pw1234")
	carol := store.SeedUser("carol")

	_, err := engine.SubmitConclusion(context.Background(), carol.ID, roomID, "opinion")

	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

// A lone creator submitting does not advance the room: completeness requires
// two participants.
func TestSubmitConclusion_SingleParticipant(t *testing.T) {
	store := storagetest.NewFake()
	engine := room.NewEngine(store)
	alice := store.SeedUser("alice")
	ctx := context.Background()

	roomID, err := engine.CreateRoom(ctx, alice.ID, "Is X good?", "pw1234")
	require.NoError(t, err)

	complete, err := engine.SubmitConclusion(ctx, alice.ID, roomID, "only opinion")
	require.NoError(t, err)
	assert.False(t, complete)

	view, err := engine.Status(ctx, alice.ID, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, view.Status)
}

// A storage failure while recording a conclusion must leave the submission
// flag clear, so the same user can retry and the room never reaches
// comparing with a missing conclusion.
func TestSubmitConclusion_StoreFailureThenRetry(t *testing.T) {
	store, engine, roomID, aliceID, bobID := newPairedRoom(t, "Is X good?", "pw1234")
	ctx := context.Background()

	store.RecordConclusionErr = errors.New("connection reset")
	_, err := engine.SubmitConclusion(ctx, aliceID, roomID, "X is good because...")
	require.Error(t, err)

	failed, err := store.GetRoomByID(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, failed.ParticipantFor(aliceID).Submitted,
		"failed write must not leave the flag set")
	assert.Empty(t, failed.Conclusions)

	store.RecordConclusionErr = nil
	complete, err := engine.SubmitConclusion(ctx, aliceID, roomID, "X is good because...")
	require.NoError(t, err)
	assert.False(t, complete)

	complete, err = engine.SubmitConclusion(ctx, bobID, roomID, "X is bad because...")
	require.NoError(t, err)
	assert.True(t, complete)

	final, err := store.GetRoomByID(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusComparing, final.Status)
	assert.Len(t, final.Conclusions, 2)
}

// Event publication is best effort: a broken event bus must not fail the
// submission or lose the conclusion.
func TestSubmitConclusion_PublishFailureIsNonFatal(t *testing.T) {
	store, engine, roomID, aliceID, bobID := newPairedRoom(t, "Is X good?", "pw1234")
	ctx := context.Background()

	store.PublishErr = errors.New("redis down")

	_, err := engine.SubmitConclusion(ctx, aliceID, roomID, "a")
	require.NoError(t, err)
	complete, err := engine.SubmitConclusion(ctx, bobID, roomID, "b")
	require.NoError(t, err)
	assert.True(t, complete)

	final, err := store.GetRoomByID(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusComparing, final.Status)
	assert.Len(t, final.Conclusions, 2)
	assert.Empty(t, store.EventsOfType(models.EventConclusionSubmitted))
	assert.Empty(t, store.EventsOfType(models.EventComparisonStarted))
}

// Two concurrent submissions by the same user: exactly one success, one
// Conflict, one stored conclusion.
func TestSubmitConclusion_ConcurrentSameUser(t *testing.T) {
	_, engine, roomID, aliceID, _ := newPairedRoom(t, "Is X good?", "pw1234")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.SubmitConclusion(ctx, aliceID, roomID, "racing opinion")
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperrors.IsKind(err, apperrors.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	view, err := engine.Status(ctx, aliceID, roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ConclusionCount)
}

// Two concurrent submissions by the two distinct participants: both succeed,
// the room transitions to comparing, and the transition happens exactly once.
func TestSubmitConclusion_ConcurrentDistinctUsers(t *testing.T) {
	store, engine, roomID, aliceID, bobID := newPairedRoom(t, "Is X good?", "pw1234")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []string{aliceID, bobID} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = engine.SubmitConclusion(ctx, userID, roomID, "opinion")
		}(i, userID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	view, err := engine.Status(ctx, aliceID, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusComparing, view.Status)
	assert.Equal(t, 2, view.ConclusionCount)

	assert.Len(t, store.EventsOfType(models.EventComparisonStarted), 1,
		"exactly one of the two submissions triggers the transition")
}

func TestStatus_NotParticipant(t *testing.T) {
	store, engine, roomID, _, _ := newPairedRoom(t, "Is X good?", "pw1234")
	carol := store.SeedUser("carol")

	_, err := engine.Status(context.Background(), carol.ID, roomID)

	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestStatus_VerdictOnlyWhenCompleted(t *testing.T) {
	store, engine, roomID, aliceID, bobID := newPairedRoom(t, "Is X good?", "pw1234")
	ctx := context.Background()

	_, err := engine.SubmitConclusion(ctx, aliceID, roomID, "a")
	require.NoError(t, err)
	_, err = engine.SubmitConclusion(ctx, bobID, roomID, "b")
	require.NoError(t, err)

	view, err := engine.Status(ctx, aliceID, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusComparing, view.Status)
	assert.Empty(t, view.Verdict, "verdict is hidden until completed")

	committed, err := store.CompleteComparison(ctx, roomID, "the verdict", "session-1")
	require.NoError(t, err)
	require.True(t, committed)

	view, err = engine.Status(ctx, aliceID, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusCompleted, view.Status)
	assert.Equal(t, "the verdict", view.Verdict)
}
