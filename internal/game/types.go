package game

import "time"

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in-progress"
	StatusFinished   = "finished"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

const FailReasonTurnLimit = "turnLimitExceeded"

const (
	DifficultyEasy   = "easy"
	DifficultyNormal = "normal"
	DifficultyHard   = "hard"
)

// Room is the shared mutable aggregate for one session. Times are unix
// milliseconds.
type Room struct {
	ID               string            `json:"roomId"`
	Status           string            `json:"status"`
	Theme            string            `json:"theme"`
	Difficulty       string            `json:"difficulty"`
	TurnOrder        []string          `json:"turnOrder"`
	CurrentTurnIndex int               `json:"currentTurnIndex"`
	CurrentTurn      string            `json:"currentTurn"`
	MaxTurns         int               `json:"maxTurns"`
	TurnCount        int               `json:"turnCount"`
	TurnTimeLimit    int               `json:"turnTimeLimit"`
	StartTime        int64             `json:"startTime"`
	TurnStartTime    int64             `json:"turnStartTime"`
	EndTime          int64             `json:"endTime,omitempty"`
	Result           string            `json:"result,omitempty"`
	FailReason       string            `json:"failReason,omitempty"`
	LastGuess        string            `json:"lastGuess,omitempty"`
	TargetWordReveal string            `json:"targetWordReveal,omitempty"`
	Players          map[string]Player `json:"players"`
	AIGuesses        []AIGuess         `json:"aiGuesses"`
	CanvasData       string            `json:"canvasData"`
}

type Player struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Team        string `json:"team,omitempty"`
	Ready       bool   `json:"ready"`
	JoinedAt    int64  `json:"joinedAt"`
}

type AIGuess struct {
	Turn       int     `json:"turn"`
	Guess      string  `json:"guess"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// RoomSecret is stored apart from the room so that only the drawer reads it.
type RoomSecret struct {
	TargetWord string `json:"targetWord"`
}

type WaitingEntry struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	JoinedAt    int64  `json:"joinedAt"`
	Seq         int64  `json:"seq"`
}

type ChatMessage struct {
	ID          string `json:"id"`
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

// Verdict is the outcome of one judged drawing.
type Verdict struct {
	Guess      string
	Confidence float64
	Correct    bool
}

func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.TurnOrder = append([]string(nil), r.TurnOrder...)
	out.AIGuesses = append([]AIGuess(nil), r.AIGuesses...)
	out.Players = make(map[string]Player, len(r.Players))
	for uid, player := range r.Players {
		out.Players[uid] = player
	}
	return &out
}

func (r *Room) HasPlayer(uid string) bool {
	_, ok := r.Players[uid]
	return ok
}

// MeanConfidence is the average AI confidence across the room's guesses,
// zero when there are none.
func (r *Room) MeanConfidence() float64 {
	if len(r.AIGuesses) == 0 {
		return 0
	}
	total := 0.0
	for _, guess := range r.AIGuesses {
		total += guess.Confidence
	}
	return total / float64(len(r.AIGuesses))
}
