// Package matchmaking groups waiting players into rooms.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"da-vinci/internal/config"
	"da-vinci/internal/game"
	"da-vinci/internal/identity"
	"da-vinci/internal/logger"
	"da-vinci/internal/metrics"
	"da-vinci/internal/schedule"
	"da-vinci/internal/store"
	"da-vinci/internal/words"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidIdentity  = errors.New("player id is required")
	ErrQuorumNotReached = errors.New("not enough players waiting")
	ErrClaimLost        = errors.New("another worker claimed these players")
	ErrRoomNotFound     = errors.New("no room found for player")
)

type Queue struct {
	store   store.Store
	cfg     config.Config
	words   words.Picker
	gate    *schedule.Gate
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

// NewQueue builds a queue. A nil gate leaves the queue always open.
func NewQueue(st store.Store, cfg config.Config, picker words.Picker, gate *schedule.Gate, m *metrics.Metrics) *Queue {
	if m == nil {
		m = metrics.Discard()
	}
	if picker == nil {
		picker = words.NewStatic(words.Defaults)
	}
	return &Queue{
		store:   st,
		cfg:     cfg,
		words:   picker,
		gate:    gate,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		log:     logger.With("matchmaking"),
	}
}

// Join upserts the caller's waiting entry.
func (q *Queue) Join(ctx context.Context, id identity.Identity) (game.WaitingEntry, error) {
	uid := strings.TrimSpace(id.UID)
	if uid == "" {
		return game.WaitingEntry{}, ErrInvalidIdentity
	}
	if err := q.gate.Check(ctx); err != nil {
		return game.WaitingEntry{}, err
	}
	entry := game.WaitingEntry{
		UID:         uid,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		PhotoURL:    id.PhotoURL,
		JoinedAt:    game.Millis(q.now()),
	}
	if !q.cfg.RejoinResetsJoinedAt {
		existing, err := q.store.GetWaiting(ctx, uid)
		switch {
		case err == nil:
			entry.JoinedAt = existing.JoinedAt
		case !errors.Is(err, store.ErrNotFound):
			return game.WaitingEntry{}, err
		}
	}
	saved, err := q.store.PutWaiting(ctx, entry)
	if err != nil {
		return game.WaitingEntry{}, fmt.Errorf("join queue: %w", err)
	}
	q.log.Info().Str("uid", uid).Int64("joined_at", saved.JoinedAt).Msg("player joined queue")
	return saved, nil
}

func (q *Queue) Leave(ctx context.Context, uid string) error {
	if err := q.store.DeleteWaiting(ctx, uid); err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}
	return nil
}

func (q *Queue) Waiting(ctx context.Context) ([]game.WaitingEntry, error) {
	return q.store.ListWaiting(ctx)
}

// Subscribe pushes the full sorted waiting list, starting with the current
// state and again after every change. The channel closes with ctx.
func (q *Queue) Subscribe(ctx context.Context) (<-chan []game.WaitingEntry, error) {
	events, err := q.store.Subscribe(ctx, store.TopicQueue)
	if err != nil {
		return nil, err
	}
	first, err := q.store.ListWaiting(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan []game.WaitingEntry, 1)
	go func() {
		defer close(out)
		list := first
		for {
			select {
			case <-ctx.Done():
				return
			case out <- list:
			}
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
			}
			next, err := q.store.ListWaiting(ctx)
			if err != nil {
				if ctx.Err() == nil {
					q.log.Warn().Err(err).Msg("waiting list refresh failed")
				}
				return
			}
			list = next
		}
	}()
	return out, nil
}

// ShouldCreateRoom reports whether uid heads a list that has reached n.
func ShouldCreateRoom(list []game.WaitingEntry, uid string, n int) bool {
	if n <= 0 || len(list) < n {
		return false
	}
	return list[0].UID == uid
}

// ClaimQuorum atomically takes the first MaxPlayers waiting players and
// turns them into a room. Only one caller can win a given group.
func (q *Queue) ClaimQuorum(ctx context.Context) (*game.Room, error) {
	list, err := q.store.ListWaiting(ctx)
	if err != nil {
		return nil, err
	}
	n := q.cfg.MaxPlayers
	if n <= 0 || len(list) < n {
		return nil, ErrQuorumNotReached
	}
	group := list[:n]
	uids := make([]string, 0, n)
	for _, entry := range group {
		uids = append(uids, entry.UID)
	}
	claimed, err := q.store.ClaimWaiting(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("claim quorum: %w", err)
	}
	if !claimed {
		q.metrics.ClaimsLost.Inc()
		return nil, ErrClaimLost
	}
	room, err := q.CreateRoom(ctx, group)
	if err != nil {
		q.restore(ctx, group)
		return nil, err
	}
	return room, nil
}

// CreateRoom seeds a waiting room for entries, stores its secret word and
// removes the players from the pool.
func (q *Queue) CreateRoom(ctx context.Context, entries []game.WaitingEntry) (*game.Room, error) {
	if len(entries) == 0 {
		return nil, game.ErrEmptyTurnOrder
	}
	sorted := append([]game.WaitingEntry(nil), entries...)
	game.SortWaiting(sorted)

	word, err := q.words.Pick(ctx)
	if err != nil {
		return nil, fmt.Errorf("pick word: %w", err)
	}
	difficulty := q.cfg.DefaultDifficulty
	if !config.IsDifficulty(difficulty) {
		difficulty = game.DifficultyNormal
	}
	room := game.NewRoom(q.newID(), sorted, difficulty, q.cfg.Difficulty(difficulty), word.Theme, q.now())
	if err := q.store.PutSecret(ctx, room.ID, game.RoomSecret{TargetWord: word.Text}); err != nil {
		return nil, fmt.Errorf("store secret: %w", err)
	}
	if err := q.store.CreateRoom(ctx, room); err != nil {
		_ = q.store.DeleteSecret(ctx, room.ID)
		return nil, fmt.Errorf("create room: %w", err)
	}
	uids := make([]string, 0, len(sorted))
	for _, entry := range sorted {
		uids = append(uids, entry.UID)
	}
	if err := q.store.DeleteWaiting(ctx, uids...); err != nil {
		q.log.Warn().Err(err).Str("room_id", room.ID).Msg("waiting cleanup failed")
	}
	q.metrics.RoomsCreated.Inc()
	q.log.Info().Str("room_id", room.ID).Strs("players", uids).Str("theme", room.Theme).Msg("room created")
	return room, nil
}

func (q *Queue) restore(ctx context.Context, entries []game.WaitingEntry) {
	for _, entry := range entries {
		if _, err := q.store.PutWaiting(ctx, entry); err != nil {
			q.log.Error().Err(err).Str("uid", entry.UID).Msg("failed to return player to queue")
		}
	}
}

// FindMyRoom returns the most recently started room that contains uid.
func (q *Queue) FindMyRoom(ctx context.Context, uid string) (*game.Room, error) {
	rooms, err := q.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	var found *game.Room
	for _, room := range rooms {
		if !room.HasPlayer(uid) {
			continue
		}
		if found == nil || room.StartTime > found.StartTime {
			found = room
		}
	}
	if found == nil {
		return nil, ErrRoomNotFound
	}
	return found, nil
}
