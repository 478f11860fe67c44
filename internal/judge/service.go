package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"da-vinci/internal/game"
	"da-vinci/internal/logger"
	"da-vinci/internal/metrics"
	"da-vinci/internal/store"

	"github.com/rs/zerolog"
)

const (
	maxImageLength = 8 << 20
	exampleLimit   = 5
)

// ExampleSource supplies solved words for few-shot prompts.
type ExampleSource interface {
	Examples(ctx context.Context, theme string, limit int) ([]Example, error)
}

// Service is the server side of a judgment: it checks the caller owns the
// turn, asks the vision model and commits the verdict.
type Service struct {
	store    store.Store
	vision   VisionModel
	examples ExampleSource
	metrics  *metrics.Metrics
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(st store.Store, vision VisionModel, examples ExampleSource, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.Discard()
	}
	return &Service{
		store:    st,
		vision:   vision,
		examples: examples,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.With("judge"),
	}
}

func (s *Service) Judge(ctx context.Context, uid string, req Request) (Judgment, error) {
	result, err := s.judge(ctx, uid, req)
	if err != nil {
		s.metrics.JudgeRequests.WithLabelValues("error").Inc()
		return Judgment{}, err
	}
	if result.IsCorrect {
		s.metrics.JudgeRequests.WithLabelValues("correct").Inc()
	} else {
		s.metrics.JudgeRequests.WithLabelValues("incorrect").Inc()
	}
	return result, nil
}

func (s *Service) judge(ctx context.Context, uid string, req Request) (Judgment, error) {
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		return Judgment{}, validationError("roomId is required")
	}
	image := stripDataURL(req.Image)
	if image == "" {
		return Judgment{}, validationError("image is required")
	}
	if len(image) > maxImageLength {
		return Judgment{}, validationError("image is too large")
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return Judgment{}, ErrNotFound
	}
	if err != nil {
		return Judgment{}, err
	}
	if room.Status != game.StatusInProgress {
		return Judgment{}, fmt.Errorf("%w: game is not in progress", ErrConflict)
	}
	if room.CurrentTurn != uid {
		return Judgment{}, fmt.Errorf("%w: only the current drawer can submit", ErrPermission)
	}
	secret, err := s.store.GetSecret(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return Judgment{}, fmt.Errorf("%w: target word is missing", ErrNotFound)
	}
	if err != nil {
		return Judgment{}, err
	}

	prompt := BuildPrompt(room.Difficulty, room.Theme, s.loadExamples(ctx, room))
	started := time.Now()
	reply, err := s.vision.Describe(ctx, prompt, image)
	s.metrics.JudgeLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		s.log.Error().Err(err).Str("room_id", roomID).Msg("vision model call failed")
		if errors.Is(err, ErrUpstream) {
			return Judgment{}, err
		}
		return Judgment{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	parsed, usedFallback := Interpret(reply)
	if usedFallback {
		s.log.Warn().Str("room_id", roomID).Str("reply", reply).Msg("model reply was not valid JSON")
	}
	if !containsHangul(parsed.Guess) {
		s.log.Warn().Str("room_id", roomID).Str("guess", parsed.Guess).Msg("guess is not Korean")
	}
	correct := strings.TrimSpace(parsed.Guess) == strings.TrimSpace(secret.TargetWord)
	verdict := game.Verdict{Guess: parsed.Guess, Confidence: parsed.Confidence, Correct: correct}

	turnIndex, turnStart := room.CurrentTurnIndex, room.TurnStartTime
	updated, err := s.store.UpdateRoom(ctx, roomID, func(current *game.Room) error {
		if current.Status != game.StatusInProgress || current.CurrentTurnIndex != turnIndex ||
			current.TurnStartTime != turnStart || current.CurrentTurn != uid {
			return fmt.Errorf("%w: the turn ended before the verdict", ErrConflict)
		}
		_, err := game.ApplyJudgment(current, verdict, secret.TargetWord, s.now())
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return Judgment{}, ErrNotFound
	}
	if err != nil {
		return Judgment{}, err
	}

	s.log.Info().
		Str("room_id", roomID).
		Str("guess", parsed.Guess).
		Float64("confidence", parsed.Confidence).
		Bool("correct", correct).
		Int("turn_count", updated.TurnCount).
		Msg("drawing judged")

	return Judgment{
		Guess:      parsed.Guess,
		Confidence: parsed.Confidence,
		IsCorrect:  correct,
		TurnCount:  updated.TurnCount,
		Status:     updated.Status,
	}, nil
}

func (s *Service) loadExamples(ctx context.Context, room *game.Room) []Example {
	if s.examples == nil || room.Difficulty != game.DifficultyEasy {
		return nil
	}
	examples, err := s.examples.Examples(ctx, room.Theme, exampleLimit)
	if err != nil {
		s.log.Warn().Err(err).Str("room_id", room.ID).Msg("few-shot examples unavailable")
		return nil
	}
	return examples
}

// stripDataURL drops a "data:image/png;base64," style prefix.
func stripDataURL(image string) string {
	clean := strings.TrimSpace(image)
	if strings.HasPrefix(clean, "data:") {
		if _, payload, ok := strings.Cut(clean, ","); ok {
			return strings.TrimSpace(payload)
		}
		return ""
	}
	return clean
}
