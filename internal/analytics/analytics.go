// Package analytics stores finished game logs and the daily and per-word
// counters derived from them.
package analytics

import (
	"context"
	"errors"
	"time"

	"da-vinci/internal/game"
)

// ErrAlreadyRecorded means a log for the room exists; nothing was counted.
var ErrAlreadyRecorded = errors.New("game log already recorded")

type GameLog struct {
	RoomID         string                 `json:"roomId"`
	Theme          string                 `json:"theme"`
	Difficulty     string                 `json:"difficulty"`
	TargetWord     string                 `json:"targetWord"`
	FinalTurnCount int                    `json:"finalTurnCount"`
	FinalTimeMs    int64                  `json:"finalTime"`
	Result         string                 `json:"result"`
	FailReason     string                 `json:"failReason,omitempty"`
	LastGuess      string                 `json:"lastGuess,omitempty"`
	AIGuesses      []game.AIGuess         `json:"aiGuesses"`
	Players        map[string]game.Player `json:"players"`
	// CompletedAt is when the room ended; FinishedAt is when the log was written.
	CompletedAt time.Time `json:"completedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

func copyPlayers(players map[string]game.Player) map[string]game.Player {
	out := make(map[string]game.Player, len(players))
	for uid, player := range players {
		out[uid] = player
	}
	return out
}

type DailyIncrement struct {
	Date    string
	Success bool
	Turns   int
	TimeMs  int64
}

type WordIncrement struct {
	Word       string
	Difficulty string
	Success    bool
	Turns      int
	Confidence float64
}

type DailyStats struct {
	Date         string `json:"date"`
	TotalGames   int    `json:"totalGames"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
	TotalTurns   int    `json:"totalTurns"`
	TotalTimeMs  int64  `json:"totalTime"`
}

func (d DailyStats) SuccessRate() float64 {
	return ratio(float64(d.SuccessCount), d.TotalGames)
}

func (d DailyStats) AvgTurns() float64 {
	return ratio(float64(d.TotalTurns), d.TotalGames)
}

func (d DailyStats) AvgTimeMs() float64 {
	return ratio(float64(d.TotalTimeMs), d.TotalGames)
}

type WordStats struct {
	Word            string  `json:"word"`
	Difficulty      string  `json:"difficulty"`
	Attempts        int     `json:"attempts"`
	SuccessCount    int     `json:"successCount"`
	TotalTurns      int     `json:"totalTurns"`
	TotalConfidence float64 `json:"totalConfidence"`
}

func (w WordStats) SuccessRate() float64 {
	return ratio(float64(w.SuccessCount), w.Attempts)
}

func (w WordStats) AvgTurns() float64 {
	return ratio(float64(w.TotalTurns), w.Attempts)
}

func (w WordStats) AvgConfidence() float64 {
	return ratio(w.TotalConfidence, w.Attempts)
}

func ratio(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Repository persists finalized games. Record must write the log and both
// increments atomically and return ErrAlreadyRecorded for a known room.
type Repository interface {
	GameLogExists(ctx context.Context, roomID string) (bool, error)
	Record(ctx context.Context, log GameLog, daily DailyIncrement, word WordIncrement) error
	DailyRange(ctx context.Context, from, to string) ([]DailyStats, error)
	Word(ctx context.Context, word string) (WordStats, error)
	HardestWords(ctx context.Context, minAttempts, limit int) ([]WordStats, error)
	RecentLogs(ctx context.Context, limit int) ([]GameLog, error)
	LogsByDateRange(ctx context.Context, from, to time.Time) ([]GameLog, error)
	RecentSuccesses(ctx context.Context, theme string, limit int) ([]GameLog, error)
}

var ErrWordNotFound = errors.New("word has no analytics")
