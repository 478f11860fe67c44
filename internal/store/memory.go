package store

import (
	"context"
	"sync"

	"da-vinci/internal/game"
)

const subscriberBuffer = 256

type Memory struct {
	mu       sync.Mutex
	seq      int64
	rooms    map[string]*game.Room
	secrets  map[string]game.RoomSecret
	waiting  map[string]game.WaitingEntry
	drawings map[string]string
	chat     map[string][]game.ChatMessage
	subs     map[string]map[chan Event]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		rooms:    make(map[string]*game.Room),
		secrets:  make(map[string]game.RoomSecret),
		waiting:  make(map[string]game.WaitingEntry),
		drawings: make(map[string]string),
		chat:     make(map[string][]game.ChatMessage),
		subs:     make(map[string]map[chan Event]struct{}),
	}
}

func (m *Memory) CreateRoom(_ context.Context, room *game.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return ErrAlreadyExists
	}
	m.rooms[room.ID] = room.Clone()
	m.publishRoom(room.ID, EventPut)
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id string) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (m *Memory) UpdateRoom(_ context.Context, id string, update func(room *game.Room) error) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := room.Clone()
	if err := update(working); err != nil {
		return nil, err
	}
	m.rooms[id] = working
	m.publishRoom(id, EventPut)
	return working.Clone(), nil
}

func (m *Memory) DeleteRoom(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return nil
	}
	delete(m.rooms, id)
	m.publishRoom(id, EventDelete)
	return nil
}

func (m *Memory) ListRooms(_ context.Context) ([]*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*game.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, room.Clone())
	}
	return out, nil
}

func (m *Memory) PutSecret(_ context.Context, roomID string, secret game.RoomSecret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[roomID] = secret
	return nil
}

func (m *Memory) GetSecret(_ context.Context, roomID string) (game.RoomSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[roomID]
	if !ok {
		return game.RoomSecret{}, ErrNotFound
	}
	return secret, nil
}

func (m *Memory) DeleteSecret(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, roomID)
	return nil
}

func (m *Memory) PutWaiting(_ context.Context, entry game.WaitingEntry) (game.WaitingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	entry.Seq = m.seq
	m.waiting[entry.UID] = entry
	m.publish(TopicQueue, EventPut, entry.UID)
	return entry, nil
}

func (m *Memory) GetWaiting(_ context.Context, uid string) (game.WaitingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.waiting[uid]
	if !ok {
		return game.WaitingEntry{}, ErrNotFound
	}
	return entry, nil
}

func (m *Memory) DeleteWaiting(_ context.Context, uids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uid := range uids {
		if _, ok := m.waiting[uid]; !ok {
			continue
		}
		delete(m.waiting, uid)
		m.publish(TopicQueue, EventDelete, uid)
	}
	return nil
}

func (m *Memory) ListWaiting(_ context.Context) ([]game.WaitingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.WaitingEntry, 0, len(m.waiting))
	for _, entry := range m.waiting {
		out = append(out, entry)
	}
	game.SortWaiting(out)
	return out, nil
}

func (m *Memory) ClaimWaiting(_ context.Context, uids []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uid := range uids {
		if _, ok := m.waiting[uid]; !ok {
			return false, nil
		}
	}
	for _, uid := range uids {
		delete(m.waiting, uid)
		m.publish(TopicQueue, EventDelete, uid)
	}
	return true, nil
}

func (m *Memory) PutDrawing(_ context.Context, roomID, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawings[roomID] = data
	return nil
}

func (m *Memory) DeleteDrawing(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drawings, roomID)
	return nil
}

// Drawing returns the live drawing snapshot for a room.
func (m *Memory) Drawing(roomID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.drawings[roomID]
	return data, ok
}

func (m *Memory) AppendChat(_ context.Context, roomID string, msg game.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat[roomID] = append(m.chat[roomID], msg)
	m.publish(RoomTopic(roomID), "chat", msg.ID)
	return nil
}

func (m *Memory) ListChat(_ context.Context, roomID string) ([]game.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]game.ChatMessage(nil), m.chat[roomID]...)
	game.SortChat(out)
	return out, nil
}

func (m *Memory) DeleteChat(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chat, roomID)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)
	m.mu.Lock()
	group := m.subs[topic]
	if group == nil {
		group = make(map[chan Event]struct{})
		m.subs[topic] = group
	}
	group[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[topic], ch)
		if len(m.subs[topic]) == 0 {
			delete(m.subs, topic)
		}
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (m *Memory) publishRoom(id, kind string) {
	m.publish(TopicRooms, kind, id)
	m.publish(RoomTopic(id), kind, id)
}

// publish must be called with m.mu held. Slow subscribers drop events and
// are expected to reconcile by re-reading state.
func (m *Memory) publish(topic, kind, key string) {
	event := Event{Topic: topic, Kind: kind, Key: key}
	for ch := range m.subs[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}
