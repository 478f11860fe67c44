// Package finalize turns finished rooms into game logs and analytics, then
// clears their live state.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"da-vinci/internal/analytics"
	"da-vinci/internal/game"
	"da-vinci/internal/logger"
	"da-vinci/internal/metrics"
	"da-vinci/internal/store"

	"github.com/rs/zerolog"
)

const (
	hiddenWord      = "비공개"
	unknownTheme    = "알 수 없음"
	defaultSweep    = time.Minute
	finalizeTimeout = 30 * time.Second
)

var ErrNotFinished = errors.New("room is not finished")

type Service struct {
	store   store.Store
	repo    analytics.Repository
	metrics *metrics.Metrics
	loc     *time.Location
	sweep   time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(st store.Store, repo analytics.Repository, loc *time.Location, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.Discard()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   st,
		repo:    repo,
		metrics: m,
		loc:     loc,
		sweep:   defaultSweep,
		now:     time.Now,
		log:     logger.With("finalize"),
	}
}

// Finalize records a finished room once and removes its live documents.
// Repeated calls for the same room never count it twice.
func (s *Service) Finalize(ctx context.Context, roomID string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if room.Status != game.StatusFinished {
		return ErrNotFinished
	}

	exists, err := s.repo.GameLogExists(ctx, roomID)
	if err != nil {
		s.metrics.FinalizeErrors.Inc()
		return fmt.Errorf("check game log: %w", err)
	}
	if exists {
		s.metrics.FinalizeSkipped.Inc()
		s.log.Debug().Str("room_id", roomID).Msg("game already logged")
		return s.cleanup(ctx, roomID)
	}

	word := s.targetWord(ctx, room)
	entry, daily, wordInc := s.build(room, word)
	err = s.repo.Record(ctx, entry, daily, wordInc)
	switch {
	case errors.Is(err, analytics.ErrAlreadyRecorded):
		s.metrics.FinalizeSkipped.Inc()
	case err != nil:
		s.metrics.FinalizeErrors.Inc()
		s.log.Error().Err(err).Str("room_id", roomID).Msg("game log write failed")
		return fmt.Errorf("record game: %w", err)
	default:
		s.metrics.GamesFinalized.WithLabelValues(entry.Result).Inc()
		s.log.Info().
			Str("room_id", roomID).
			Str("word", word).
			Str("day", daily.Date).
			Str("result", entry.Result).
			Int("turns", entry.FinalTurnCount).
			Msg("game finalized")
	}
	return s.cleanup(ctx, roomID)
}

func (s *Service) targetWord(ctx context.Context, room *game.Room) string {
	if word := strings.TrimSpace(room.TargetWordReveal); word != "" {
		return word
	}
	secret, err := s.store.GetSecret(ctx, room.ID)
	if err == nil && strings.TrimSpace(secret.TargetWord) != "" {
		return strings.TrimSpace(secret.TargetWord)
	}
	return hiddenWord
}

func (s *Service) build(room *game.Room, word string) (analytics.GameLog, analytics.DailyIncrement, analytics.WordIncrement) {
	theme := room.Theme
	if strings.TrimSpace(theme) == "" {
		theme = unknownTheme
	}
	difficulty := room.Difficulty
	if difficulty == "" {
		difficulty = game.DifficultyNormal
	}
	result := room.Result
	if result == "" {
		result = game.ResultFailure
	}
	completed := s.now()
	if room.EndTime > 0 {
		completed = game.FromMillis(room.EndTime)
	}
	completed = completed.In(s.loc)
	var elapsed int64
	if room.EndTime > 0 && room.StartTime > 0 && room.EndTime >= room.StartTime {
		elapsed = room.EndTime - room.StartTime
	}
	success := result == game.ResultSuccess

	entry := analytics.GameLog{
		RoomID:         room.ID,
		Theme:          theme,
		Difficulty:     difficulty,
		TargetWord:     word,
		FinalTurnCount: room.TurnCount,
		FinalTimeMs:    elapsed,
		Result:         result,
		FailReason:     room.FailReason,
		LastGuess:      room.LastGuess,
		AIGuesses:      append([]game.AIGuess(nil), room.AIGuesses...),
		Players:        room.Players,
		CompletedAt:    completed.UTC(),
		FinishedAt:     s.now().UTC(),
	}
	daily := analytics.DailyIncrement{
		Date:    completed.Format("2006-01-02"),
		Success: success,
		Turns:   room.TurnCount,
		TimeMs:  elapsed,
	}
	wordInc := analytics.WordIncrement{
		Word:       word,
		Difficulty: difficulty,
		Success:    success,
		Turns:      room.TurnCount,
		Confidence: room.MeanConfidence(),
	}
	return entry, daily, wordInc
}

func (s *Service) cleanup(ctx context.Context, roomID string) error {
	var errs []error
	if err := s.store.DeleteChat(ctx, roomID); err != nil {
		errs = append(errs, fmt.Errorf("delete chat: %w", err))
	}
	if err := s.store.DeleteDrawing(ctx, roomID); err != nil {
		errs = append(errs, fmt.Errorf("delete drawing: %w", err))
	}
	if err := s.store.DeleteSecret(ctx, roomID); err != nil {
		errs = append(errs, fmt.Errorf("delete secret: %w", err))
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, store.ErrNotFound) {
		errs = append(errs, fmt.Errorf("delete room: %w", err))
	}
	return errors.Join(errs...)
}

// Run finalizes rooms as they finish. A periodic sweep catches rooms whose
// change events were missed.
func (s *Service) Run(ctx context.Context) error {
	events, err := s.store.Subscribe(ctx, store.TopicRooms)
	if err != nil {
		return err
	}
	s.Sweep(ctx)
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		case event, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if event.Kind != store.EventPut {
				continue
			}
			s.finalizeIfFinished(ctx, event.Key)
		}
	}
}

// Sweep finalizes every finished room currently in the store.
func (s *Service) Sweep(ctx context.Context) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("finalize sweep failed")
		}
		return
	}
	for _, room := range rooms {
		if room.Status == game.StatusFinished {
			s.finalizeIfFinished(ctx, room.ID)
		}
	}
}

func (s *Service) finalizeIfFinished(ctx context.Context, roomID string) {
	opCtx, cancel := context.WithTimeout(ctx, finalizeTimeout)
	defer cancel()
	err := s.Finalize(opCtx, roomID)
	if err == nil || errors.Is(err, ErrNotFinished) {
		return
	}
	s.log.Error().Err(err).Str("room_id", roomID).Msg("finalize failed")
}
