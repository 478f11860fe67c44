package finalize

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"da-vinci/internal/analytics"
	"da-vinci/internal/config"
	"da-vinci/internal/game"
	"da-vinci/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-01 23:30 UTC is already 2026-03-02 in Seoul.
var finishTime = time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	return loc
}

func seedFinished(t *testing.T, st store.Store, roomID string, correct bool) {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	entries := []game.WaitingEntry{
		{UID: "a", DisplayName: "Ada", Email: "a@example.com", PhotoURL: "https://img/a.png", JoinedAt: 1},
		{UID: "b", DisplayName: "Bo", Email: "b@example.com", JoinedAt: 2},
	}
	start := finishTime.Add(-2 * time.Minute)
	room := game.NewRoom(roomID, entries, game.DifficultyNormal, cfg.Difficulty(game.DifficultyNormal), "동물", start)
	require.NoError(t, game.Start(room, "a", config.StartPolicyFirst, start))
	_, err := game.ApplyJudgment(room, game.Verdict{Guess: "강아지", Confidence: 0.2}, "고양이", start.Add(time.Minute))
	require.NoError(t, err)
	_, err = game.ApplyJudgment(room, game.Verdict{Guess: "고양이", Confidence: 0.8, Correct: correct}, "고양이", finishTime)
	require.NoError(t, err)
	if !correct {
		room.MaxTurns = 2
		_, err = game.AdvanceTurn(room, room.CurrentTurnIndex, "", finishTime)
		require.NoError(t, err)
	}
	require.Equal(t, game.StatusFinished, room.Status)
	require.NoError(t, st.CreateRoom(ctx, room))
	require.NoError(t, st.PutSecret(ctx, roomID, game.RoomSecret{TargetWord: "고양이"}))
	require.NoError(t, st.PutDrawing(ctx, roomID, "{}"))
	require.NoError(t, st.AppendChat(ctx, roomID, game.ChatMessage{ID: "m1", UID: "a", Text: "hi"}))
}

func TestFinalizeRecordsOnce(t *testing.T) {
	st := store.NewMemory()
	repo := analytics.NewMemory()
	svc := NewService(st, repo, seoul(t), nil)
	written := finishTime.Add(5 * time.Second)
	svc.now = func() time.Time { return written }
	ctx := context.Background()
	seedFinished(t, st, "room-1", true)

	require.NoError(t, svc.Finalize(ctx, "room-1"))
	require.NoError(t, svc.Finalize(ctx, "room-1"))

	logs, err := repo.RecentLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, "고양이", entry.TargetWord)
	assert.Equal(t, game.ResultSuccess, entry.Result)
	assert.Equal(t, 2, entry.FinalTurnCount)
	assert.Equal(t, int64(2*time.Minute/time.Millisecond), entry.FinalTimeMs)
	require.Len(t, entry.Players, 2)
	assert.Equal(t, "Ada", entry.Players["a"].DisplayName)
	assert.Equal(t, "a@example.com", entry.Players["a"].Email)
	assert.Equal(t, "https://img/a.png", entry.Players["a"].PhotoURL)
	assert.Equal(t, "Bo", entry.Players["b"].DisplayName)
	assert.True(t, entry.CompletedAt.Equal(finishTime))
	assert.True(t, entry.FinishedAt.Equal(written))
	assert.Len(t, entry.AIGuesses, 2)

	days, err := repo.DailyRange(ctx, "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].TotalGames)
	assert.Equal(t, 1, days[0].SuccessCount)

	word, err := repo.Word(ctx, "고양이")
	require.NoError(t, err)
	assert.Equal(t, 1, word.Attempts)
	assert.InDelta(t, 0.5, word.TotalConfidence, 1e-9)

	_, err = st.GetRoom(ctx, "room-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetSecret(ctx, "room-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, ok := st.Drawing("room-1")
	assert.False(t, ok)
	chat, err := st.ListChat(ctx, "room-1")
	require.NoError(t, err)
	assert.Empty(t, chat)
}

func TestFinalizeConcurrentTriggers(t *testing.T) {
	st := store.NewMemory()
	repo := analytics.NewMemory()
	svc := NewService(st, repo, time.UTC, nil)
	seedFinished(t, st, "room-1", false)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Finalize(context.Background(), "room-1"))
		}()
	}
	wg.Wait()

	days, err := repo.DailyRange(context.Background(), "2026-03-01", "2026-03-01")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].TotalGames)
	assert.Equal(t, 1, days[0].FailureCount)
}

func TestTargetWordFallbacks(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, analytics.NewMemory(), time.UTC, nil)
	ctx := context.Background()

	room := &game.Room{ID: "r", TargetWordReveal: "사과"}
	assert.Equal(t, "사과", svc.targetWord(ctx, room))

	room.TargetWordReveal = ""
	require.NoError(t, st.PutSecret(ctx, "r", game.RoomSecret{TargetWord: "배"}))
	assert.Equal(t, "배", svc.targetWord(ctx, room))

	require.NoError(t, st.DeleteSecret(ctx, "r"))
	assert.Equal(t, hiddenWord, svc.targetWord(ctx, room))
}

func TestBuildAppliesDefaults(t *testing.T) {
	svc := NewService(store.NewMemory(), analytics.NewMemory(), time.UTC, nil)
	svc.now = func() time.Time { return finishTime }

	entry, daily, word := svc.build(&game.Room{ID: "r", Status: game.StatusFinished}, hiddenWord)
	assert.Equal(t, unknownTheme, entry.Theme)
	assert.Equal(t, game.DifficultyNormal, entry.Difficulty)
	assert.Equal(t, game.ResultFailure, entry.Result)
	assert.Equal(t, int64(0), entry.FinalTimeMs)
	assert.Equal(t, "2026-03-01", daily.Date)
	assert.False(t, daily.Success)
	assert.Equal(t, 0.0, word.Confidence)
}

func TestFinalizeRejectsLiveRoom(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, analytics.NewMemory(), time.UTC, nil)
	ctx := context.Background()
	room := game.NewRoom("live", []game.WaitingEntry{{UID: "a"}}, "normal", config.Default().Difficulty("normal"), "동물", finishTime)
	require.NoError(t, st.CreateRoom(ctx, room))

	assert.ErrorIs(t, svc.Finalize(ctx, "live"), ErrNotFinished)
	assert.NoError(t, svc.Finalize(ctx, "missing"))
}

type failingRepo struct {
	*analytics.Memory
	fail bool
}

func (f *failingRepo) Record(ctx context.Context, log analytics.GameLog, daily analytics.DailyIncrement, word analytics.WordIncrement) error {
	if f.fail {
		return errors.New("db down")
	}
	return f.Memory.Record(ctx, log, daily, word)
}

func TestFinalizeKeepsRoomWhenRecordFails(t *testing.T) {
	st := store.NewMemory()
	repo := &failingRepo{Memory: analytics.NewMemory(), fail: true}
	svc := NewService(st, repo, time.UTC, nil)
	ctx := context.Background()
	seedFinished(t, st, "room-1", true)

	require.Error(t, svc.Finalize(ctx, "room-1"))
	_, err := st.GetRoom(ctx, "room-1")
	require.NoError(t, err)

	repo.fail = false
	require.NoError(t, svc.Finalize(ctx, "room-1"))
	logs, err := repo.RecentLogs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRunFinalizesOnChange(t *testing.T) {
	st := store.NewMemory()
	repo := analytics.NewMemory()
	svc := NewService(st, repo, time.UTC, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	seedFinished(t, st, "room-1", true)
	require.Eventually(t, func() bool {
		exists, err := repo.GameLogExists(context.Background(), "room-1")
		return err == nil && exists
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := st.GetRoom(context.Background(), "room-1")
		return errors.Is(err, store.ErrNotFound)
	}, 5*time.Second, 10*time.Millisecond)
}
