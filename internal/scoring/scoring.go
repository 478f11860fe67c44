// Package scoring ranks finished games. Lower scores rank higher.
package scoring

import "sort"

var difficultyWeights = map[string]float64{
	"easy":   1.0,
	"normal": 1.3,
	"hard":   1.6,
}

// Weight returns the turn divisor for a difficulty; unknown values weigh 1.0.
func Weight(difficulty string) float64 {
	if weight, ok := difficultyWeights[difficulty]; ok {
		return weight
	}
	return 1.0
}

func Score(turns int, timeMs int64, difficulty string) float64 {
	return float64(turns)/Weight(difficulty)*1000 + float64(timeMs)/1000
}

// Player is how a leaderboard row shows one participant.
type Player struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Entry is the part of a game log the leaderboard needs.
type Entry struct {
	RoomID     string   `json:"roomId"`
	Result     string   `json:"result"`
	Turns      int      `json:"turns"`
	TimeMs     int64    `json:"timeMs"`
	Difficulty string   `json:"difficulty"`
	Theme      string   `json:"theme"`
	TargetWord string   `json:"targetWord"`
	Players    []Player `json:"players"`
}

type Ranked struct {
	Entry
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

// Rank keeps successful games and sorts them by ascending score, preserving
// input order for ties.
func Rank(entries []Entry) []Ranked {
	out := make([]Ranked, 0, len(entries))
	for _, entry := range entries {
		if entry.Result != "success" {
			continue
		}
		out = append(out, Ranked{
			Entry: entry,
			Score: Score(entry.Turns, entry.TimeMs, entry.Difficulty),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score < out[j].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
