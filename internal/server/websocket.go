package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"da-vinci/internal/game"
	"da-vinci/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	queueGroup = "queue"
	writeWait  = 10 * time.Second
)

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type wsGroup struct {
	conns  map[*wsConn]struct{}
	cancel context.CancelFunc
}

// wsHub fans store changes out to connected clients. Each group owns one
// pump that lives while the group has members.
type wsHub struct {
	mu     sync.Mutex
	base   context.Context
	groups map[string]*wsGroup
}

func newWSHub(base context.Context) *wsHub {
	return &wsHub{
		base:   base,
		groups: make(map[string]*wsGroup),
	}
}

func (h *wsHub) Add(key string, conn *wsConn, pump func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[key]
	if group == nil {
		ctx, cancel := context.WithCancel(h.base)
		group = &wsGroup{conns: make(map[*wsConn]struct{}), cancel: cancel}
		h.groups[key] = group
		go pump(ctx)
	}
	group.conns[conn] = struct{}{}
}

func (h *wsHub) Remove(key string, conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = conn.conn.Close()
	group := h.groups[key]
	if group == nil {
		return
	}
	delete(group.conns, conn)
	if len(group.conns) == 0 {
		group.cancel()
		delete(h.groups, key)
	}
}

func (h *wsHub) Size(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if group := h.groups[key]; group != nil {
		return len(group.conns)
	}
	return 0
}

func (h *wsHub) Broadcast(key string, payload any) {
	h.mu.Lock()
	group := h.groups[key]
	var conns []*wsConn
	if group != nil {
		conns = make([]*wsConn, 0, len(group.conns))
		for conn := range group.conns {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range conns {
		if err := conn.send(payload); err != nil {
			h.Remove(key, conn)
		}
	}
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

type roomMessage struct {
	Type             string             `json:"type"`
	RoomID           string             `json:"roomId,omitempty"`
	Room             *game.Room         `json:"room,omitempty"`
	RemainingSeconds int                `json:"remainingSeconds"`
	Chat             []game.ChatMessage `json:"chat,omitempty"`
}

type queueMessage struct {
	Type    string              `json:"type"`
	Waiting []game.WaitingEntry `json:"waiting,omitempty"`
	RoomID  string              `json:"roomId,omitempty"`
}

func roomGroup(roomID string) string {
	return "room:" + roomID
}

func (s *Server) handleRoomWebsocket(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	id := currentIdentity(c)
	room, err := s.rooms.Get(c.Request.Context(), uri.RoomID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !room.HasPlayer(id.UID) {
		s.respondError(c, game.ErrNotPlayer)
		return
	}
	upgrader := s.upgrader()
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := &wsConn{conn: raw}
	key := roomGroup(uri.RoomID)
	s.log.Debug().Str("room_id", uri.RoomID).Str("uid", id.UID).Msg("room ws connected")
	s.ws.Add(key, conn, s.roomPump(uri.RoomID))
	_ = conn.send(s.roomSnapshot(c.Request.Context(), room))
	go s.readWS(key, conn, nil)
}

func (s *Server) roomPump(roomID string) func(ctx context.Context) {
	return func(ctx context.Context) {
		events, err := s.store.Subscribe(ctx, store.RoomTopic(roomID))
		if err != nil {
			s.log.Error().Err(err).Str("room_id", roomID).Msg("room subscribe failed")
			return
		}
		for range events {
			s.pushRoom(ctx, roomID)
		}
	}
}

func (s *Server) pushRoom(ctx context.Context, roomID string) {
	key := roomGroup(roomID)
	room, err := s.rooms.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		s.ws.Broadcast(key, roomMessage{Type: "room_closed", RoomID: roomID})
		return
	}
	if err != nil {
		return
	}
	s.ws.Broadcast(key, s.roomSnapshot(ctx, room))
}

func (s *Server) roomSnapshot(ctx context.Context, room *game.Room) roomMessage {
	chat, err := s.store.ListChat(ctx, room.ID)
	if err != nil {
		chat = nil
	}
	return roomMessage{
		Type:             "room",
		RoomID:           room.ID,
		Room:             room,
		RemainingSeconds: s.rooms.RemainingSeconds(room),
		Chat:             chat,
	}
}

// handleQueueWebsocket streams the waiting list and tells the player which
// room they were placed in.
func (s *Server) handleQueueWebsocket(c *gin.Context) {
	id := currentIdentity(c)
	upgrader := s.upgrader()
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := &wsConn{conn: raw}
	s.ws.Add(queueGroup, conn, s.queuePump)
	if waiting, err := s.queue.Waiting(c.Request.Context()); err == nil {
		_ = conn.send(queueMessage{Type: "queue", Waiting: waiting})
	}

	ctx, cancel := context.WithCancel(s.ctx)
	go func() {
		room, err := s.queue.Watch(ctx, id.UID)
		if err != nil {
			return
		}
		_ = conn.send(queueMessage{Type: "matched", RoomID: room.ID})
	}()
	go s.readWS(queueGroup, conn, cancel)
}

func (s *Server) queuePump(ctx context.Context) {
	updates, err := s.queue.Subscribe(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("queue subscribe failed")
		return
	}
	for waiting := range updates {
		s.ws.Broadcast(queueGroup, queueMessage{Type: "queue", Waiting: waiting})
	}
}

func (s *Server) readWS(key string, conn *wsConn, onClose context.CancelFunc) {
	defer s.ws.Remove(key, conn)
	if onClose != nil {
		defer onClose()
	}
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			s.log.Debug().Err(err).Str("group", key).Msg("ws disconnected")
			return
		}
	}
}
