package analytics

import (
	"context"
	"sort"

	"da-vinci/internal/game"
	"da-vinci/internal/judge"
	"da-vinci/internal/scoring"
)

// MinAttemptsForRanking keeps rarely played words out of the hardest list.
const MinAttemptsForRanking = 3

const leaderboardWindow = 500

type DailyReport struct {
	DailyStats
	SuccessRate float64 `json:"successRate"`
	AvgTurns    float64 `json:"avgTurns"`
	AvgTimeMs   float64 `json:"avgTime"`
}

type WordReport struct {
	WordStats
	SuccessRate   float64 `json:"successRate"`
	AvgTurns      float64 `json:"avgTurns"`
	AvgConfidence float64 `json:"avgConfidence"`
}

type Reports struct {
	repo Repository
}

func NewReports(repo Repository) *Reports {
	return &Reports{repo: repo}
}

func (r *Reports) Daily(ctx context.Context, from, to string) ([]DailyReport, error) {
	days, err := r.repo.DailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]DailyReport, 0, len(days))
	for _, day := range days {
		out = append(out, DailyReport{
			DailyStats:  day,
			SuccessRate: day.SuccessRate(),
			AvgTurns:    day.AvgTurns(),
			AvgTimeMs:   day.AvgTimeMs(),
		})
	}
	return out, nil
}

func (r *Reports) HardestWords(ctx context.Context, limit int) ([]WordReport, error) {
	words, err := r.repo.HardestWords(ctx, MinAttemptsForRanking, limit)
	if err != nil {
		return nil, err
	}
	out := make([]WordReport, 0, len(words))
	for _, word := range words {
		out = append(out, wordReport(word))
	}
	return out, nil
}

func (r *Reports) Word(ctx context.Context, word string) (WordReport, error) {
	stats, err := r.repo.Word(ctx, word)
	if err != nil {
		return WordReport{}, err
	}
	return wordReport(stats), nil
}

func (r *Reports) RecentLogs(ctx context.Context, limit int) ([]GameLog, error) {
	return r.repo.RecentLogs(ctx, limit)
}

// Leaderboard ranks the most recent successful games.
func (r *Reports) Leaderboard(ctx context.Context, limit int) ([]scoring.Ranked, error) {
	logs, err := r.repo.RecentSuccesses(ctx, "", leaderboardWindow)
	if err != nil {
		return nil, err
	}
	entries := make([]scoring.Entry, 0, len(logs))
	for _, entry := range logs {
		entries = append(entries, scoring.Entry{
			RoomID:     entry.RoomID,
			Result:     entry.Result,
			Turns:      entry.FinalTurnCount,
			TimeMs:     entry.FinalTimeMs,
			Difficulty: entry.Difficulty,
			Theme:      entry.Theme,
			TargetWord: entry.TargetWord,
			Players:    boardPlayers(entry.Players),
		})
	}
	ranked := scoring.Rank(entries)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Examples serves solved words of a theme as few-shot hints for the judge.
func (r *Reports) Examples(ctx context.Context, theme string, limit int) ([]judge.Example, error) {
	logs, err := r.repo.RecentSuccesses(ctx, theme, limit*4)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, limit)
	out := make([]judge.Example, 0, limit)
	for _, entry := range logs {
		if _, dup := seen[entry.TargetWord]; dup {
			continue
		}
		seen[entry.TargetWord] = struct{}{}
		out = append(out, judge.Example{Theme: entry.Theme, Word: entry.TargetWord, Guess: entry.LastGuess})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// boardPlayers lists players in join order. Emails stay out of public rows.
func boardPlayers(players map[string]game.Player) []scoring.Player {
	list := make([]game.Player, 0, len(players))
	for uid, player := range players {
		if player.UID == "" {
			player.UID = uid
		}
		list = append(list, player)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt != list[j].JoinedAt {
			return list[i].JoinedAt < list[j].JoinedAt
		}
		return list[i].UID < list[j].UID
	})
	out := make([]scoring.Player, 0, len(list))
	for _, player := range list {
		out = append(out, scoring.Player{UID: player.UID, DisplayName: player.DisplayName, PhotoURL: player.PhotoURL})
	}
	return out
}

func wordReport(word WordStats) WordReport {
	return WordReport{
		WordStats:     word,
		SuccessRate:   word.SuccessRate(),
		AvgTurns:      word.AvgTurns(),
		AvgConfidence: word.AvgConfidence(),
	}
}
