package room

import (
	"context"
	"sync"
	"time"

	"da-vinci/internal/game"
	"da-vinci/internal/store"
)

type scheduledTurn struct {
	timer     *time.Timer
	turnIndex int
	turnStart int64
}

// Timers is the single authority that times out turns. Each in-progress
// room has at most one pending timer keyed by room id.
type Timers struct {
	mu      sync.Mutex
	pending map[string]scheduledTurn
	advance func(roomID string, expectedIndex int)
	now     func() time.Time
}

func newTimers(advance func(roomID string, expectedIndex int), now func() time.Time) *Timers {
	return &Timers{
		pending: make(map[string]scheduledTurn),
		advance: advance,
		now:     now,
	}
}

// Sync schedules, keeps or cancels the timer to match the room's state.
func (t *Timers) Sync(room *game.Room) {
	if room == nil {
		return
	}
	if room.Status != game.StatusInProgress {
		t.Cancel(room.ID)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.pending[room.ID]; ok {
		if existing.turnIndex == room.CurrentTurnIndex && existing.turnStart == room.TurnStartTime {
			return
		}
		existing.timer.Stop()
	}
	delay := game.TurnDeadline(room).Sub(t.now())
	if delay < 0 {
		delay = 0
	}
	roomID, index, start := room.ID, room.CurrentTurnIndex, room.TurnStartTime
	timer := time.AfterFunc(delay, func() {
		t.clear(roomID, index, start)
		t.advance(roomID, index)
	})
	t.pending[room.ID] = scheduledTurn{timer: timer, turnIndex: index, turnStart: start}
}

func (t *Timers) Cancel(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.pending[roomID]; ok {
		existing.timer.Stop()
		delete(t.pending, roomID)
	}
}

func (t *Timers) Pending(roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[roomID]
	return ok
}

func (t *Timers) clear(roomID string, index int, start int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.pending[roomID]; ok && existing.turnIndex == index && existing.turnStart == start {
		delete(t.pending, roomID)
	}
}

// Watch keeps timers aligned with room changes made by other writers, such
// as the judge. It resyncs every room on start.
func (s *Service) Watch(ctx context.Context) error {
	events, err := s.store.Subscribe(ctx, store.TopicRooms)
	if err != nil {
		return err
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		s.timers.Sync(room)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if event.Kind == store.EventDelete {
				s.timers.Cancel(event.Key)
				continue
			}
			room, err := s.store.GetRoom(ctx, event.Key)
			if err != nil {
				continue
			}
			s.timers.Sync(room)
		}
	}
}
