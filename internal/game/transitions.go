package game

import (
	"errors"
	"strings"
	"time"

	"da-vinci/internal/config"
)

var (
	ErrNotWaiting        = errors.New("room is not waiting")
	ErrNotInProgress     = errors.New("game is not in progress")
	ErrNotPlayer         = errors.New("player not in room")
	ErrNotDrawer         = errors.New("not your turn")
	ErrStartForbidden    = errors.New("only the first player can start the game")
	ErrPlayersNotReady   = errors.New("not all players are ready")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyTurnOrder    = errors.New("turn order is empty")
)

// Outcome reports what a turn-level transition did to the room.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeAdvanced
	OutcomeSucceeded
	OutcomeFailed
)

var statusTransitions = map[string][]string{
	StatusWaiting:    {StatusInProgress},
	StatusInProgress: {StatusInProgress, StatusFinished},
	StatusFinished:   {},
}

func setStatus(room *Room, next string) error {
	for _, allowed := range statusTransitions[room.Status] {
		if allowed == next {
			room.Status = next
			return nil
		}
	}
	return ErrInvalidTransition
}

// NewRoom seeds a waiting room from the sorted waiting entries.
func NewRoom(id string, entries []WaitingEntry, difficulty string, settings config.DifficultySettings, theme string, now time.Time) *Room {
	room := &Room{
		ID:            id,
		Status:        StatusWaiting,
		Theme:         theme,
		Difficulty:    difficulty,
		TurnOrder:     make([]string, 0, len(entries)),
		MaxTurns:      settings.MaxTurns,
		TurnTimeLimit: settings.TurnTimeLimitSeconds,
		StartTime:     Millis(now),
		TurnStartTime: Millis(now),
		Players:       make(map[string]Player, len(entries)),
		AIGuesses:     []AIGuess{},
	}
	for _, entry := range entries {
		room.TurnOrder = append(room.TurnOrder, entry.UID)
		room.Players[entry.UID] = Player{
			UID:         entry.UID,
			DisplayName: entry.DisplayName,
			Email:       entry.Email,
			PhotoURL:    entry.PhotoURL,
			JoinedAt:    entry.JoinedAt,
		}
	}
	if len(room.TurnOrder) > 0 {
		room.CurrentTurn = room.TurnOrder[0]
	}
	return room
}

// Start moves a waiting room into play.
func Start(room *Room, uid, policy string, now time.Time) error {
	if room.Status != StatusWaiting {
		return ErrNotWaiting
	}
	if !room.HasPlayer(uid) {
		return ErrNotPlayer
	}
	if len(room.TurnOrder) == 0 {
		return ErrEmptyTurnOrder
	}
	switch policy {
	case config.StartPolicyAllReady:
		for _, player := range room.Players {
			if !player.Ready {
				return ErrPlayersNotReady
			}
		}
	default:
		if room.TurnOrder[0] != uid {
			return ErrStartForbidden
		}
	}
	if err := setStatus(room, StatusInProgress); err != nil {
		return err
	}
	room.CurrentTurnIndex = 0
	room.CurrentTurn = room.TurnOrder[0]
	room.TurnStartTime = Millis(now)
	room.CanvasData = ""
	return nil
}

// AdvanceTurn hands the turn to the next player. A request whose
// expectedIndex no longer matches, or one against a finished room, is a
// no-op so that duplicate timer fires are harmless.
func AdvanceTurn(room *Room, expectedIndex int, word string, now time.Time) (Outcome, error) {
	switch room.Status {
	case StatusFinished:
		return OutcomeNone, nil
	case StatusWaiting:
		return OutcomeNone, ErrNotInProgress
	}
	if room.CurrentTurnIndex != expectedIndex {
		return OutcomeNone, nil
	}
	if room.TurnCount+1 >= room.MaxTurns {
		room.TurnCount++
		return OutcomeFailed, finish(room, ResultFailure, word, now)
	}
	if err := nextTurn(room, now); err != nil {
		return OutcomeNone, err
	}
	room.TurnCount++
	return OutcomeAdvanced, nil
}

// ApplyJudgment records one AI guess and applies the resulting transition.
func ApplyJudgment(room *Room, verdict Verdict, word string, now time.Time) (Outcome, error) {
	if room.Status != StatusInProgress {
		return OutcomeNone, ErrNotInProgress
	}
	turn := room.TurnCount + 1
	room.AIGuesses = append(room.AIGuesses, AIGuess{
		Turn:       turn,
		Guess:      verdict.Guess,
		Confidence: verdict.Confidence,
		Timestamp:  Millis(now),
	})
	room.LastGuess = verdict.Guess
	room.TurnCount = turn
	if verdict.Correct {
		return OutcomeSucceeded, finish(room, ResultSuccess, word, now)
	}
	if turn >= room.MaxTurns {
		return OutcomeFailed, finish(room, ResultFailure, word, now)
	}
	if err := nextTurn(room, now); err != nil {
		return OutcomeNone, err
	}
	return OutcomeAdvanced, nil
}

func nextTurn(room *Room, now time.Time) error {
	if len(room.TurnOrder) == 0 {
		return ErrEmptyTurnOrder
	}
	if err := setStatus(room, StatusInProgress); err != nil {
		return err
	}
	room.CurrentTurnIndex = (room.CurrentTurnIndex + 1) % len(room.TurnOrder)
	room.CurrentTurn = room.TurnOrder[room.CurrentTurnIndex]
	room.TurnStartTime = Millis(now)
	room.CanvasData = ""
	return nil
}

func finish(room *Room, result, word string, now time.Time) error {
	if err := setStatus(room, StatusFinished); err != nil {
		return err
	}
	room.Result = result
	room.FailReason = ""
	if result == ResultFailure {
		room.FailReason = FailReasonTurnLimit
	}
	room.EndTime = Millis(now)
	if word != "" {
		room.TargetWordReveal = word
	}
	return nil
}

// SetDifficulty re-applies a difficulty's numeric settings while waiting.
func SetDifficulty(room *Room, difficulty string, cfg config.Config) error {
	if room.Status != StatusWaiting {
		return ErrNotWaiting
	}
	if !config.IsDifficulty(difficulty) {
		return ErrInvalidDifficulty
	}
	settings := cfg.Difficulty(difficulty)
	room.Difficulty = difficulty
	room.MaxTurns = settings.MaxTurns
	room.TurnTimeLimit = settings.TurnTimeLimitSeconds
	return nil
}

// SetReady toggles readiness. Once the game has started the flag is
// ignored and false is returned.
func SetReady(room *Room, uid string, ready bool) (bool, error) {
	player, ok := room.Players[uid]
	if !ok {
		return false, ErrNotPlayer
	}
	if room.Status != StatusWaiting {
		return false, nil
	}
	player.Ready = ready
	room.Players[uid] = player
	return true, nil
}

// UpdateCanvas stores the drawer's latest canvas snapshot.
func UpdateCanvas(room *Room, uid, data string) error {
	if room.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if room.CurrentTurn != uid {
		return ErrNotDrawer
	}
	room.CanvasData = data
	return nil
}

// RemovePlayer drops uid from a waiting room's roster and turn order.
func RemovePlayer(room *Room, uid string) error {
	if room.Status != StatusWaiting {
		return ErrNotWaiting
	}
	if !room.HasPlayer(uid) {
		return ErrNotPlayer
	}
	delete(room.Players, uid)
	order := room.TurnOrder[:0]
	for _, id := range room.TurnOrder {
		if id != uid {
			order = append(order, id)
		}
	}
	room.TurnOrder = order
	room.CurrentTurnIndex = 0
	room.CurrentTurn = ""
	if len(order) > 0 {
		room.CurrentTurn = order[0]
	}
	return nil
}

// RemainingSeconds derives the time left in the current turn.
func RemainingSeconds(room *Room, now time.Time) int {
	elapsed := (Millis(now) - room.TurnStartTime) / 1000
	remaining := int64(room.TurnTimeLimit) - elapsed
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// TurnDeadline is when the current turn times out.
func TurnDeadline(room *Room) time.Time {
	return FromMillis(room.TurnStartTime).Add(time.Duration(room.TurnTimeLimit) * time.Second)
}

type CanvasAction int

const (
	CanvasClear CanvasAction = iota
	CanvasLoad
)

// CanvasActionFor tells a non-drawing client what to do with canvas data.
// An empty string always means clear.
func CanvasActionFor(data string) CanvasAction {
	if strings.TrimSpace(data) == "" {
		return CanvasClear
	}
	return CanvasLoad
}

// Validate checks the structural invariants of a room.
func (r *Room) Validate() error {
	if _, ok := statusTransitions[r.Status]; !ok {
		return errors.New("unknown status")
	}
	if len(r.TurnOrder) == 0 {
		return nil
	}
	if r.CurrentTurnIndex < 0 || r.CurrentTurnIndex >= len(r.TurnOrder) {
		return errors.New("turn index out of range")
	}
	if r.CurrentTurn != r.TurnOrder[r.CurrentTurnIndex] {
		return errors.New("current turn does not match turn order")
	}
	return nil
}
