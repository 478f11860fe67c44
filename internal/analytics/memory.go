package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"da-vinci/internal/game"
)

// Memory is an in-process Repository used when no database is configured.
type Memory struct {
	mu    sync.Mutex
	logs  map[string]GameLog
	daily map[string]DailyStats
	words map[string]WordStats
}

func NewMemory() *Memory {
	return &Memory{
		logs:  make(map[string]GameLog),
		daily: make(map[string]DailyStats),
		words: make(map[string]WordStats),
	}
}

func (m *Memory) GameLogExists(_ context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.logs[roomID]
	return ok, nil
}

func (m *Memory) Record(_ context.Context, entry GameLog, daily DailyIncrement, word WordIncrement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[entry.RoomID]; ok {
		return ErrAlreadyRecorded
	}
	entry.AIGuesses = append([]game.AIGuess(nil), entry.AIGuesses...)
	entry.Players = copyPlayers(entry.Players)
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}
	m.logs[entry.RoomID] = entry

	day := m.daily[daily.Date]
	day.Date = daily.Date
	day.TotalGames++
	if daily.Success {
		day.SuccessCount++
	} else {
		day.FailureCount++
	}
	day.TotalTurns += daily.Turns
	day.TotalTimeMs += daily.TimeMs
	m.daily[daily.Date] = day

	stats := m.words[word.Word]
	stats.Word = word.Word
	stats.Difficulty = word.Difficulty
	stats.Attempts++
	if word.Success {
		stats.SuccessCount++
	}
	stats.TotalTurns += word.Turns
	stats.TotalConfidence += word.Confidence
	m.words[word.Word] = stats
	return nil
}

func (m *Memory) DailyRange(_ context.Context, from, to string) ([]DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DailyStats, 0)
	for date, stats := range m.daily {
		if date >= from && date <= to {
			out = append(out, stats)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *Memory) Word(_ context.Context, word string) (WordStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.words[word]
	if !ok {
		return WordStats{}, ErrWordNotFound
	}
	return stats, nil
}

func (m *Memory) HardestWords(_ context.Context, minAttempts, limit int) ([]WordStats, error) {
	m.mu.Lock()
	out := make([]WordStats, 0, len(m.words))
	for _, stats := range m.words {
		if stats.Attempts >= minAttempts {
			out = append(out, stats)
		}
	}
	m.mu.Unlock()
	sortHardest(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) RecentLogs(_ context.Context, limit int) ([]GameLog, error) {
	return m.filterLogs(func(GameLog) bool { return true }, limit), nil
}

func (m *Memory) LogsByDateRange(_ context.Context, from, to time.Time) ([]GameLog, error) {
	logs := m.filterLogs(func(entry GameLog) bool {
		return !entry.CompletedAt.Before(from) && entry.CompletedAt.Before(to)
	}, 0)
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CompletedAt.Before(logs[j].CompletedAt) })
	return logs, nil
}

func (m *Memory) RecentSuccesses(_ context.Context, theme string, limit int) ([]GameLog, error) {
	return m.filterLogs(func(entry GameLog) bool {
		return entry.Result == game.ResultSuccess && (theme == "" || entry.Theme == theme)
	}, limit), nil
}

// filterLogs returns matching logs newest first.
func (m *Memory) filterLogs(keep func(GameLog) bool, limit int) []GameLog {
	m.mu.Lock()
	out := make([]GameLog, 0, len(m.logs))
	for _, entry := range m.logs {
		if keep(entry) {
			entry.Players = copyPlayers(entry.Players)
			out = append(out, entry)
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].RoomID < out[j].RoomID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortHardest(words []WordStats) {
	sort.SliceStable(words, func(i, j int) bool {
		ri, rj := words[i].SuccessRate(), words[j].SuccessRate()
		if ri != rj {
			return ri < rj
		}
		if words[i].Attempts != words[j].Attempts {
			return words[i].Attempts > words[j].Attempts
		}
		return words[i].Word < words[j].Word
	})
}
