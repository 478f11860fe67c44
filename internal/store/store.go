// Package store is the shared real-time document store the game core
// coordinates through: rooms, secrets, the waiting pool and per-room live
// state, with change notifications.
package store

import (
	"context"
	"errors"

	"da-vinci/internal/game"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

const (
	TopicQueue = "queue"
	TopicRooms = "rooms"
)

const (
	EventPut    = "put"
	EventDelete = "delete"
)

// RoomTopic carries changes for a single room, including its chat.
func RoomTopic(roomID string) string {
	return "room:" + roomID
}

// Event is a change notification. Delivery is at-least-once and consumers
// re-read state rather than trusting the event payload.
type Event struct {
	Topic string `json:"topic"`
	Kind  string `json:"kind"`
	Key   string `json:"key"`
}

type Store interface {
	CreateRoom(ctx context.Context, room *game.Room) error
	GetRoom(ctx context.Context, id string) (*game.Room, error)
	// UpdateRoom applies update atomically. If update returns an error the
	// stored room is left untouched.
	UpdateRoom(ctx context.Context, id string, update func(room *game.Room) error) (*game.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]*game.Room, error)

	PutSecret(ctx context.Context, roomID string, secret game.RoomSecret) error
	GetSecret(ctx context.Context, roomID string) (game.RoomSecret, error)
	DeleteSecret(ctx context.Context, roomID string) error

	// PutWaiting upserts an entry. A fresh insertion sequence is assigned
	// on every write so ties on JoinedAt keep store order.
	PutWaiting(ctx context.Context, entry game.WaitingEntry) (game.WaitingEntry, error)
	GetWaiting(ctx context.Context, uid string) (game.WaitingEntry, error)
	DeleteWaiting(ctx context.Context, uids ...string) error
	ListWaiting(ctx context.Context) ([]game.WaitingEntry, error)
	// ClaimWaiting removes every uid from the pool only if all of them are
	// still present. It reports whether the claim succeeded.
	ClaimWaiting(ctx context.Context, uids []string) (bool, error)

	PutDrawing(ctx context.Context, roomID, data string) error
	DeleteDrawing(ctx context.Context, roomID string) error
	AppendChat(ctx context.Context, roomID string, msg game.ChatMessage) error
	ListChat(ctx context.Context, roomID string) ([]game.ChatMessage, error)
	DeleteChat(ctx context.Context, roomID string) error

	Subscribe(ctx context.Context, topic string) (<-chan Event, error)
}
