package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"da-vinci/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom(id string) *game.Room {
	return &game.Room{
		ID:        id,
		Status:    game.StatusWaiting,
		TurnOrder: []string{"a", "b"},
		Players: map[string]game.Player{
			"a": {UID: "a"},
			"b": {UID: "b"},
		},
		MaxTurns:      10,
		TurnTimeLimit: 60,
	}
}

// runStoreContract exercises behaviour every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("room lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateRoom(ctx, testRoom("r1")))
		assert.ErrorIs(t, s.CreateRoom(ctx, testRoom("r1")), ErrAlreadyExists)

		room, err := s.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, game.StatusWaiting, room.Status)

		updated, err := s.UpdateRoom(ctx, "r1", func(room *game.Room) error {
			room.Status = game.StatusInProgress
			room.CanvasData = "x"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, game.StatusInProgress, updated.Status)

		rooms, err := s.ListRooms(ctx)
		require.NoError(t, err)
		assert.Len(t, rooms, 1)

		require.NoError(t, s.DeleteRoom(ctx, "r1"))
		_, err = s.GetRoom(ctx, "r1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("failed update leaves room untouched", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateRoom(ctx, testRoom("r2")))
		boom := errors.New("boom")
		_, err := s.UpdateRoom(ctx, "r2", func(room *game.Room) error {
			room.TurnCount = 99
			return boom
		})
		assert.ErrorIs(t, err, boom)
		room, err := s.GetRoom(ctx, "r2")
		require.NoError(t, err)
		assert.Equal(t, 0, room.TurnCount)

		_, err = s.UpdateRoom(ctx, "missing", func(room *game.Room) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateRoom(ctx, testRoom("r3")))
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.UpdateRoom(ctx, "r3", func(room *game.Room) error {
					room.TurnCount++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		room, err := s.GetRoom(ctx, "r3")
		require.NoError(t, err)
		assert.Equal(t, 10, room.TurnCount)
	})

	t.Run("secrets", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.GetSecret(ctx, "r4")
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, s.PutSecret(ctx, "r4", game.RoomSecret{TargetWord: "고양이"}))
		secret, err := s.GetSecret(ctx, "r4")
		require.NoError(t, err)
		assert.Equal(t, "고양이", secret.TargetWord)
		require.NoError(t, s.DeleteSecret(ctx, "r4"))
		_, err = s.GetSecret(ctx, "r4")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("waiting pool orders by join time then sequence", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.PutWaiting(ctx, game.WaitingEntry{UID: "late", JoinedAt: 20})
		require.NoError(t, err)
		_, err = s.PutWaiting(ctx, game.WaitingEntry{UID: "tie-first", JoinedAt: 10})
		require.NoError(t, err)
		_, err = s.PutWaiting(ctx, game.WaitingEntry{UID: "tie-second", JoinedAt: 10})
		require.NoError(t, err)

		list, err := s.ListWaiting(ctx)
		require.NoError(t, err)
		uids := make([]string, 0, len(list))
		for _, entry := range list {
			uids = append(uids, entry.UID)
		}
		assert.Equal(t, []string{"tie-first", "tie-second", "late"}, uids)

		claimed, err := s.ClaimWaiting(ctx, []string{"tie-first", "missing"})
		require.NoError(t, err)
		assert.False(t, claimed)
		list, err = s.ListWaiting(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 3)

		claimed, err = s.ClaimWaiting(ctx, []string{"tie-first", "tie-second"})
		require.NoError(t, err)
		assert.True(t, claimed)
		claimed, err = s.ClaimWaiting(ctx, []string{"tie-first", "tie-second"})
		require.NoError(t, err)
		assert.False(t, claimed)

		require.NoError(t, s.DeleteWaiting(ctx, "late"))
		_, err = s.GetWaiting(ctx, "late")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("chat", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.AppendChat(ctx, "r5", game.ChatMessage{ID: "2", Text: "second", Timestamp: 2}))
		require.NoError(t, s.AppendChat(ctx, "r5", game.ChatMessage{ID: "1", Text: "first", Timestamp: 1}))
		messages, err := s.ListChat(ctx, "r5")
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "first", messages[0].Text)
		require.NoError(t, s.DeleteChat(ctx, "r5"))
		messages, err = s.ListChat(ctx, "r5")
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("subscribe receives room and queue changes", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		rooms, err := s.Subscribe(ctx, TopicRooms)
		require.NoError(t, err)
		queue, err := s.Subscribe(ctx, TopicQueue)
		require.NoError(t, err)

		require.NoError(t, s.CreateRoom(ctx, testRoom("r6")))
		_, err = s.PutWaiting(ctx, game.WaitingEntry{UID: "u1"})
		require.NoError(t, err)

		event := waitEvent(t, rooms)
		assert.Equal(t, "r6", event.Key)
		assert.Equal(t, EventPut, event.Kind)
		event = waitEvent(t, queue)
		assert.Equal(t, "u1", event.Key)
	})
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemory()
	})
}

func TestMemorySubscribeClosesOnCancel(t *testing.T) {
	s := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Subscribe(ctx, TopicQueue)
	require.NoError(t, err)
	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatalf("subscription not closed")
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, testRoom("r1")))
	room, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	room.TurnOrder[0] = "mutated"
	again, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.TurnOrder[0])
}
