package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"da-vinci/internal/game"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "davinci:"
	maxUpdateRetries = 16
)

var claimScript = redis.NewScript(`
for i, uid in ipairs(ARGV) do
  if redis.call("HEXISTS", KEYS[1], uid) == 0 then
    return 0
  end
end
for i, uid in ipairs(ARGV) do
  redis.call("HDEL", KEYS[1], uid)
end
return 1
`)

// Redis keeps every document as JSON and publishes change events on
// per-topic channels.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects using a redis:// URL.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func roomKey(id string) string    { return keyPrefix + "room:" + id }
func secretKey(id string) string  { return keyPrefix + "secret:" + id }
func drawingKey(id string) string { return keyPrefix + "drawing:" + id }
func chatKey(id string) string    { return keyPrefix + "chat:" + id }
func channelKey(topic string) string {
	return keyPrefix + "events:" + topic
}

const (
	roomsKey      = keyPrefix + "rooms"
	waitingKey    = keyPrefix + "waiting"
	waitingSeqKey = keyPrefix + "waiting:seq"
)

func (r *Redis) CreateRoom(ctx context.Context, room *game.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return err
	}
	created, err := r.client.SetNX(ctx, roomKey(room.ID), payload, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrAlreadyExists
	}
	if err := r.client.SAdd(ctx, roomsKey, room.ID).Err(); err != nil {
		return err
	}
	r.publishRoom(ctx, room.ID, EventPut)
	return nil
}

func (r *Redis) GetRoom(ctx context.Context, id string) (*game.Room, error) {
	return decodeRoom(r.client.Get(ctx, roomKey(id)).Bytes())
}

func decodeRoom(payload []byte, err error) (*game.Room, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var room game.Room
	if err := json.Unmarshal(payload, &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	if room.Players == nil {
		room.Players = make(map[string]game.Player)
	}
	return &room, nil
}

func (r *Redis) UpdateRoom(ctx context.Context, id string, update func(room *game.Room) error) (*game.Room, error) {
	key := roomKey(id)
	var updated *game.Room
	txf := func(tx *redis.Tx) error {
		room, err := decodeRoom(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		if err := update(room); err != nil {
			return err
		}
		payload, err := json.Marshal(room)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			updated = room
		}
		return err
	}
	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			r.publishRoom(ctx, id, EventPut)
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, errors.New("room update contention")
}

func (r *Redis) DeleteRoom(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, roomKey(id)).Result()
	if err != nil {
		return err
	}
	if err := r.client.SRem(ctx, roomsKey, id).Err(); err != nil {
		return err
	}
	if removed > 0 {
		r.publishRoom(ctx, id, EventDelete)
	}
	return nil
}

func (r *Redis) ListRooms(ctx context.Context) ([]*game.Room, error) {
	ids, err := r.client.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*game.Room, 0, len(ids))
	for _, id := range ids {
		room, err := r.GetRoom(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, nil
}

func (r *Redis) PutSecret(ctx context.Context, roomID string, secret game.RoomSecret) error {
	payload, err := json.Marshal(secret)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, secretKey(roomID), payload, 0).Err()
}

func (r *Redis) GetSecret(ctx context.Context, roomID string) (game.RoomSecret, error) {
	payload, err := r.client.Get(ctx, secretKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.RoomSecret{}, ErrNotFound
	}
	if err != nil {
		return game.RoomSecret{}, err
	}
	var secret game.RoomSecret
	if err := json.Unmarshal(payload, &secret); err != nil {
		return game.RoomSecret{}, fmt.Errorf("decode secret: %w", err)
	}
	return secret, nil
}

func (r *Redis) DeleteSecret(ctx context.Context, roomID string) error {
	return r.client.Del(ctx, secretKey(roomID)).Err()
}

func (r *Redis) PutWaiting(ctx context.Context, entry game.WaitingEntry) (game.WaitingEntry, error) {
	seq, err := r.client.Incr(ctx, waitingSeqKey).Result()
	if err != nil {
		return game.WaitingEntry{}, err
	}
	entry.Seq = seq
	payload, err := json.Marshal(entry)
	if err != nil {
		return game.WaitingEntry{}, err
	}
	if err := r.client.HSet(ctx, waitingKey, entry.UID, payload).Err(); err != nil {
		return game.WaitingEntry{}, err
	}
	r.publish(ctx, TopicQueue, EventPut, entry.UID)
	return entry, nil
}

func (r *Redis) GetWaiting(ctx context.Context, uid string) (game.WaitingEntry, error) {
	payload, err := r.client.HGet(ctx, waitingKey, uid).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.WaitingEntry{}, ErrNotFound
	}
	if err != nil {
		return game.WaitingEntry{}, err
	}
	var entry game.WaitingEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return game.WaitingEntry{}, fmt.Errorf("decode waiting entry: %w", err)
	}
	return entry, nil
}

func (r *Redis) DeleteWaiting(ctx context.Context, uids ...string) error {
	if len(uids) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, waitingKey, uids...).Err(); err != nil {
		return err
	}
	for _, uid := range uids {
		r.publish(ctx, TopicQueue, EventDelete, uid)
	}
	return nil
}

func (r *Redis) ListWaiting(ctx context.Context) ([]game.WaitingEntry, error) {
	raw, err := r.client.HGetAll(ctx, waitingKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]game.WaitingEntry, 0, len(raw))
	for _, payload := range raw {
		var entry game.WaitingEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("decode waiting entry: %w", err)
		}
		out = append(out, entry)
	}
	game.SortWaiting(out)
	return out, nil
}

func (r *Redis) ClaimWaiting(ctx context.Context, uids []string) (bool, error) {
	if len(uids) == 0 {
		return false, nil
	}
	args := make([]any, 0, len(uids))
	for _, uid := range uids {
		args = append(args, uid)
	}
	claimed, err := claimScript.Run(ctx, r.client, []string{waitingKey}, args...).Int()
	if err != nil {
		return false, err
	}
	if claimed == 1 {
		for _, uid := range uids {
			r.publish(ctx, TopicQueue, EventDelete, uid)
		}
	}
	return claimed == 1, nil
}

func (r *Redis) PutDrawing(ctx context.Context, roomID, data string) error {
	return r.client.Set(ctx, drawingKey(roomID), data, 0).Err()
}

func (r *Redis) DeleteDrawing(ctx context.Context, roomID string) error {
	return r.client.Del(ctx, drawingKey(roomID)).Err()
}

func (r *Redis) AppendChat(ctx context.Context, roomID string, msg game.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := r.client.RPush(ctx, chatKey(roomID), payload).Err(); err != nil {
		return err
	}
	r.publish(ctx, RoomTopic(roomID), "chat", msg.ID)
	return nil
}

func (r *Redis) ListChat(ctx context.Context, roomID string) ([]game.ChatMessage, error) {
	raw, err := r.client.LRange(ctx, chatKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]game.ChatMessage, 0, len(raw))
	for _, payload := range raw {
		var msg game.ChatMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("decode chat message: %w", err)
		}
		out = append(out, msg)
	}
	game.SortChat(out)
	return out, nil
}

func (r *Redis) DeleteChat(ctx context.Context, roomID string) error {
	return r.client.Del(ctx, chatKey(roomID)).Err()
}

func (r *Redis) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	pubsub := r.client.Subscribe(ctx, channelKey(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) publishRoom(ctx context.Context, id, kind string) {
	r.publish(ctx, TopicRooms, kind, id)
	r.publish(ctx, RoomTopic(id), kind, id)
}

// publish is best effort; subscribers reconcile by re-reading state.
func (r *Redis) publish(ctx context.Context, topic, kind, key string) {
	payload, err := json.Marshal(Event{Topic: topic, Kind: kind, Key: key})
	if err != nil {
		return
	}
	_ = r.client.Publish(ctx, channelKey(topic), payload).Err()
}
