package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"da-vinci/internal/game"
	"da-vinci/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func recordGame(t *testing.T, repo Repository, roomID, word string, success bool, turns int, completed time.Time) {
	t.Helper()
	result := game.ResultFailure
	if success {
		result = game.ResultSuccess
	}
	err := repo.Record(context.Background(), GameLog{
		RoomID:         roomID,
		Theme:          "동물",
		Difficulty:     game.DifficultyNormal,
		TargetWord:     word,
		FinalTurnCount: turns,
		FinalTimeMs:    int64(turns) * 30000,
		Result:         result,
		AIGuesses:      []game.AIGuess{{Turn: 1, Guess: word, Confidence: 0.5}},
		Players: map[string]game.Player{
			"a": {UID: "a", DisplayName: "Ada", Email: "a@example.com", JoinedAt: 1},
			"b": {UID: "b", DisplayName: "Bo", PhotoURL: "https://img/b.png", JoinedAt: 2},
		},
		CompletedAt:    completed,
	}, DailyIncrement{
		Date:    completed.Format("2006-01-02"),
		Success: success,
		Turns:   turns,
		TimeMs:  int64(turns) * 30000,
	}, WordIncrement{
		Word:       word,
		Difficulty: game.DifficultyNormal,
		Success:    success,
		Turns:      turns,
		Confidence: 0.5,
	})
	require.NoError(t, err)
}

func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("record is idempotent per room", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recordGame(t, repo, "r1", "고양이", true, 3, day)

		exists, err := repo.GameLogExists(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, exists)

		err = repo.Record(ctx, GameLog{RoomID: "r1", TargetWord: "고양이", CompletedAt: day},
			DailyIncrement{Date: "2026-03-01", Turns: 3}, WordIncrement{Word: "고양이", Turns: 3})
		assert.ErrorIs(t, err, ErrAlreadyRecorded)

		days, err := repo.DailyRange(ctx, "2026-03-01", "2026-03-01")
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, 1, days[0].TotalGames)
		assert.Equal(t, 1, days[0].SuccessCount)
		assert.Equal(t, 3, days[0].TotalTurns)

		stats, err := repo.Word(ctx, "고양이")
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Attempts)
		assert.InDelta(t, 0.5, stats.TotalConfidence, 1e-9)
	})

	t.Run("daily counters accumulate", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recordGame(t, repo, "r1", "고양이", true, 2, day)
		recordGame(t, repo, "r2", "피자", false, 10, day.Add(time.Hour))
		recordGame(t, repo, "r3", "피자", true, 4, day.AddDate(0, 0, 1))

		days, err := repo.DailyRange(ctx, "2026-03-01", "2026-03-02")
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.Equal(t, "2026-03-01", days[0].Date)
		assert.Equal(t, 2, days[0].TotalGames)
		assert.Equal(t, 1, days[0].SuccessCount)
		assert.Equal(t, 1, days[0].FailureCount)
		assert.Equal(t, 12, days[0].TotalTurns)
		assert.InDelta(t, 0.5, days[0].SuccessRate(), 1e-9)
		assert.Equal(t, 1, days[1].TotalGames)
	})

	t.Run("hardest words need enough attempts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			recordGame(t, repo, fmt.Sprintf("hard-%d", i), "기린", i == 0, 5, day)
			recordGame(t, repo, fmt.Sprintf("easy-%d", i), "사과", true, 1, day)
		}
		recordGame(t, repo, "rare", "우주선", false, 10, day)

		words, err := repo.HardestWords(ctx, MinAttemptsForRanking, 10)
		require.NoError(t, err)
		require.Len(t, words, 2)
		assert.Equal(t, "기린", words[0].Word)
		assert.Equal(t, "사과", words[1].Word)
	})

	t.Run("logs are listed newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recordGame(t, repo, "old", "고양이", true, 2, day)
		recordGame(t, repo, "new", "피자", false, 10, day.Add(time.Hour))

		logs, err := repo.RecentLogs(ctx, 10)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "new", logs[0].RoomID)
		require.Len(t, logs[0].Players, 2)
		assert.Equal(t, "Ada", logs[0].Players["a"].DisplayName)
		assert.Equal(t, "a@example.com", logs[0].Players["a"].Email)
		assert.Equal(t, "https://img/b.png", logs[0].Players["b"].PhotoURL)
		assert.False(t, logs[0].FinishedAt.IsZero())
		require.Len(t, logs[0].AIGuesses, 1)

		ranged, err := repo.LogsByDateRange(ctx, day, day.Add(30*time.Minute))
		require.NoError(t, err)
		require.Len(t, ranged, 1)
		assert.Equal(t, "old", ranged[0].RoomID)

		successes, err := repo.RecentSuccesses(ctx, "동물", 10)
		require.NoError(t, err)
		require.Len(t, successes, 1)
		assert.Equal(t, "old", successes[0].RoomID)
	})
}

func TestRecordKeepsFinishedAt(t *testing.T) {
	repo := NewMemory()
	written := day.Add(time.Minute)
	err := repo.Record(context.Background(), GameLog{RoomID: "r", TargetWord: "배", CompletedAt: day, FinishedAt: written},
		DailyIncrement{Date: "2026-03-01"}, WordIncrement{Word: "배"})
	require.NoError(t, err)

	logs, err := repo.RecentLogs(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].FinishedAt.Equal(written))
	assert.NotNil(t, logs[0].Players)
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository { return NewMemory() })
}

func TestReports(t *testing.T) {
	repo := NewMemory()
	recordGame(t, repo, "slow", "고양이", true, 8, day)
	recordGame(t, repo, "fast", "피자", true, 2, day.Add(time.Minute))
	recordGame(t, repo, "dup", "피자", true, 5, day.Add(2*time.Minute))
	recordGame(t, repo, "lost", "기린", false, 10, day.Add(3*time.Minute))
	reports := NewReports(repo)
	ctx := context.Background()

	board, err := reports.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "fast", board[0].RoomID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "slow", board[2].RoomID)
	assert.Equal(t, []scoring.Player{
		{UID: "a", DisplayName: "Ada"},
		{UID: "b", DisplayName: "Bo", PhotoURL: "https://img/b.png"},
	}, board[0].Players)

	examples, err := reports.Examples(ctx, "동물", 5)
	require.NoError(t, err)
	words := make([]string, 0, len(examples))
	for _, example := range examples {
		words = append(words, example.Word)
	}
	assert.Equal(t, []string{"피자", "고양이"}, words)

	daily, err := reports.Daily(ctx, "2026-03-01", "2026-03-01")
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.InDelta(t, 0.75, daily[0].SuccessRate, 1e-9)
	assert.InDelta(t, 6.25, daily[0].AvgTurns, 1e-9)

	_, err = reports.Word(ctx, "없는단어")
	assert.ErrorIs(t, err, ErrWordNotFound)
}
