package matchmaking

import (
	"context"
	"errors"

	"da-vinci/internal/game"
	"da-vinci/internal/store"
)

// Run claims a room every time the waiting list reaches a quorum. It is the
// only place rooms are created from the queue.
func (q *Queue) Run(ctx context.Context) error {
	lists, err := q.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case list, ok := <-lists:
			if !ok {
				return ctx.Err()
			}
			q.metrics.QueueSize.Set(float64(len(list)))
			if len(list) < q.cfg.MaxPlayers {
				continue
			}
			q.drain(ctx)
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	for {
		_, err := q.ClaimQuorum(ctx)
		switch {
		case err == nil, errors.Is(err, ErrClaimLost):
			continue
		case errors.Is(err, ErrQuorumNotReached):
			return
		default:
			if ctx.Err() == nil {
				q.log.Error().Err(err).Msg("quorum claim failed")
			}
			return
		}
	}
}

// Watch blocks until uid leaves the waiting list after having been in it,
// then resolves the room it was placed in.
func (q *Queue) Watch(ctx context.Context, uid string) (*game.Room, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rooms, err := q.store.Subscribe(ctx, store.TopicRooms)
	if err != nil {
		return nil, err
	}
	lists, err := q.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	seen, left := false, false
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case list, ok := <-lists:
			if !ok {
				return nil, ctx.Err()
			}
			if contains(list, uid) {
				seen, left = true, false
				continue
			}
			if !seen {
				continue
			}
			left = true
		case _, ok := <-rooms:
			if !ok {
				return nil, ctx.Err()
			}
			if !left {
				continue
			}
		}
		room, err := q.FindMyRoom(ctx, uid)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
	}
}

func contains(list []game.WaitingEntry, uid string) bool {
	for _, entry := range list {
		if entry.UID == uid {
			return true
		}
	}
	return false
}
