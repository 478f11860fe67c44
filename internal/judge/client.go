// Package judge asks a vision model what a drawing shows and applies the
// verdict to the room.
package judge

import (
	"context"
	"errors"
	"time"

	"da-vinci/internal/logger"
	"da-vinci/internal/metrics"

	"github.com/rs/zerolog"
)

const defaultAttempts = 4

type Request struct {
	RoomID string `json:"roomId"`
	Image  string `json:"image"`
}

type Judgment struct {
	Guess      string  `json:"guess"`
	Confidence float64 `json:"confidence"`
	IsCorrect  bool    `json:"isCorrect"`
	TurnCount  int     `json:"turnCount"`
	Status     string  `json:"status"`
}

// Endpoint performs a single judgment attempt.
type Endpoint interface {
	Judge(ctx context.Context, req Request) (Judgment, error)
}

// Client wraps an Endpoint with bounded retries and exponential backoff.
type Client struct {
	endpoint  Endpoint
	attempts  int
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewClient(endpoint Endpoint, m *metrics.Metrics) *Client {
	if m == nil {
		m = metrics.Discard()
	}
	return &Client{
		endpoint:  endpoint,
		attempts:  defaultAttempts,
		baseDelay: time.Second,
		sleep:     sleepContext,
		metrics:   m,
		log:       logger.With("judge-client"),
	}
}

// Judge submits the drawing, retrying failed attempts after 1s, 2s and 4s.
func (c *Client) Judge(ctx context.Context, roomID, image string) (Judgment, error) {
	req := Request{RoomID: roomID, Image: image}
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			c.metrics.JudgeRetries.Inc()
			c.log.Warn().Err(lastErr).Str("room_id", roomID).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying judgment")
			if err := c.sleep(ctx, delay); err != nil {
				return Judgment{}, err
			}
		}
		result, err := c.endpoint.Judge(ctx, req)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return Judgment{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Judgment{}, ctxErr
		}
		lastErr = err
	}
	return Judgment{}, &RetryError{Attempts: c.attempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryError reports whether err came from exhausting the retries.
func IsRetryError(err error) bool {
	var retryErr *RetryError
	return errors.As(err, &retryErr)
}
