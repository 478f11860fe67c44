// Package room drives the lifecycle of live game rooms through the shared
// store.
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"da-vinci/internal/config"
	"da-vinci/internal/game"
	"da-vinci/internal/identity"
	"da-vinci/internal/logger"
	"da-vinci/internal/metrics"
	"da-vinci/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrSecretHidden = errors.New("only the drawer can see the word")

type Service struct {
	store   store.Store
	cfg     config.Config
	metrics *metrics.Metrics
	timers  *Timers
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

func NewService(st store.Store, cfg config.Config, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.Discard()
	}
	s := &Service{
		store:   st,
		cfg:     cfg,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		log:     logger.With("room"),
	}
	s.timers = newTimers(s.timeoutTurn, func() time.Time { return s.now() })
	return s
}

func (s *Service) Timers() *Timers {
	return s.timers
}

func (s *Service) Get(ctx context.Context, roomID string) (*game.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}

func (s *Service) Start(ctx context.Context, roomID, uid string) (*game.Room, error) {
	room, err := s.store.UpdateRoom(ctx, roomID, func(room *game.Room) error {
		return game.Start(room, uid, s.cfg.StartPolicy, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("room_id", roomID).Str("uid", uid).Msg("game started")
	s.timers.Sync(room)
	return room, nil
}

// EndTurn lets the current drawer hand over the turn.
func (s *Service) EndTurn(ctx context.Context, roomID, uid string) (*game.Room, game.Outcome, error) {
	word := s.secretWord(ctx, roomID)
	var outcome game.Outcome
	room, err := s.store.UpdateRoom(ctx, roomID, func(room *game.Room) error {
		if room.Status != game.StatusInProgress {
			return game.ErrNotInProgress
		}
		if room.CurrentTurn != uid {
			return game.ErrNotDrawer
		}
		var err error
		outcome, err = game.AdvanceTurn(room, room.CurrentTurnIndex, word, s.now())
		return err
	})
	if err != nil {
		return nil, game.OutcomeNone, err
	}
	s.afterTurn(room, outcome, "manual")
	return room, outcome, nil
}

// AdvanceTurn advances only if the room is still on expectedIndex, so
// repeated or late triggers collapse into one transition.
func (s *Service) AdvanceTurn(ctx context.Context, roomID string, expectedIndex int) (*game.Room, game.Outcome, error) {
	word := s.secretWord(ctx, roomID)
	var outcome game.Outcome
	room, err := s.store.UpdateRoom(ctx, roomID, func(room *game.Room) error {
		var err error
		outcome, err = game.AdvanceTurn(room, expectedIndex, word, s.now())
		if err != nil {
			return err
		}
		if outcome == game.OutcomeNone {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		current, getErr := s.store.GetRoom(ctx, roomID)
		return current, game.OutcomeNone, getErr
	}
	if err != nil {
		return nil, game.OutcomeNone, err
	}
	s.afterTurn(room, outcome, "advance")
	return room, outcome, nil
}

var errNoChange = errors.New("no change")

func (s *Service) timeoutTurn(roomID string, expectedIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	room, outcome, err := s.AdvanceTurn(ctx, roomID, expectedIndex)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error().Err(err).Str("room_id", roomID).Msg("turn timeout advance failed")
		}
		s.timers.Cancel(roomID)
		return
	}
	if outcome != game.OutcomeNone {
		s.metrics.TurnTimeouts.Inc()
		return
	}
	s.timers.Sync(room)
}

func (s *Service) afterTurn(room *game.Room, outcome game.Outcome, reason string) {
	switch outcome {
	case game.OutcomeAdvanced:
		s.log.Info().Str("room_id", room.ID).Str("reason", reason).Str("next", room.CurrentTurn).Int("turn_count", room.TurnCount).Msg("turn advanced")
	case game.OutcomeFailed, game.OutcomeSucceeded:
		s.log.Info().Str("room_id", room.ID).Str("reason", reason).Str("result", room.Result).Msg("game finished")
	}
	s.timers.Sync(room)
}

func (s *Service) SetDifficulty(ctx context.Context, roomID, uid, difficulty string) (*game.Room, error) {
	return s.store.UpdateRoom(ctx, roomID, func(room *game.Room) error {
		if !room.HasPlayer(uid) {
			return game.ErrNotPlayer
		}
		return game.SetDifficulty(room, difficulty, s.cfg)
	})
}

// SetReady is ignored once the game has started; the current room is
// returned unchanged.
func (s *Service) SetReady(ctx context.Context, roomID, uid string, ready bool) (*game.Room, error) {
	room, err := s.store.UpdateRoom(ctx, roomID, func(room *game.Room) error {
		changed, err := game.SetReady(room, uid, ready)
		if err != nil {
			return err
		}
		if !changed {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return s.store.GetRoom(ctx, roomID)
	}
	return room, err
}

// UpdateCanvas stores the drawer's canvas on the room and mirrors it to the
// live drawing document.
func (s *Service) UpdateCanvas(ctx context.Context, roomID, uid, data string) (*game.Room, error) {
	room, err := s.store.UpdateRoom(ctx, roomID, func(room *game.Room) error {
		return game.UpdateCanvas(room, uid, data)
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.PutDrawing(ctx, roomID, data); err != nil {
		s.log.Warn().Err(err).Str("room_id", roomID).Msg("live drawing write failed")
	}
	return room, nil
}

// Leave removes uid from a waiting room. The last player leaving deletes it.
func (s *Service) Leave(ctx context.Context, roomID, uid string) error {
	room, err := s.store.UpdateRoom(ctx, roomID, func(room *game.Room) error {
		return game.RemovePlayer(room, uid)
	})
	if err != nil {
		return err
	}
	if len(room.Players) > 0 {
		return nil
	}
	s.timers.Cancel(roomID)
	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	return s.store.DeleteSecret(ctx, roomID)
}

// Secret returns the target word to the current drawer only.
func (s *Service) Secret(ctx context.Context, roomID, uid string) (game.RoomSecret, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return game.RoomSecret{}, err
	}
	if room.Status != game.StatusInProgress || room.CurrentTurn != uid {
		return game.RoomSecret{}, ErrSecretHidden
	}
	return s.store.GetSecret(ctx, roomID)
}

func (s *Service) SendChat(ctx context.Context, roomID string, id identity.Identity, text string) (game.ChatMessage, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return game.ChatMessage{}, err
	}
	if !room.HasPlayer(id.UID) {
		return game.ChatMessage{}, game.ErrNotPlayer
	}
	msg, err := game.NewChatMessage(s.newID(), id.UID, id.DisplayName, text, s.now())
	if err != nil {
		return game.ChatMessage{}, err
	}
	if err := s.store.AppendChat(ctx, roomID, msg); err != nil {
		return game.ChatMessage{}, fmt.Errorf("append chat: %w", err)
	}
	return msg, nil
}

func (s *Service) Chat(ctx context.Context, roomID, uid string) ([]game.ChatMessage, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasPlayer(uid) {
		return nil, game.ErrNotPlayer
	}
	return s.store.ListChat(ctx, roomID)
}

func (s *Service) RemainingSeconds(room *game.Room) int {
	if room.Status != game.StatusInProgress {
		return 0
	}
	return game.RemainingSeconds(room, s.now())
}

func (s *Service) secretWord(ctx context.Context, roomID string) string {
	secret, err := s.store.GetSecret(ctx, roomID)
	if err != nil {
		return ""
	}
	return secret.TargetWord
}
