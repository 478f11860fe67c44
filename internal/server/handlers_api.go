package server

import (
	"net/http"

	"da-vinci/internal/judge"

	"github.com/gin-gonic/gin"
)

type roomURI struct {
	RoomID string `uri:"roomId" binding:"required,roomid"`
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

type difficultyRequest struct {
	Difficulty string `json:"difficulty" binding:"required,difficulty"`
}

type canvasRequest struct {
	Data string `json:"canvasData" binding:"max=2097152"`
}

type chatRequest struct {
	Text string `json:"text" binding:"required,chattext"`
}

type judgeRequest struct {
	RoomID string `json:"roomId" binding:"required,roomid"`
	Image  string `json:"image" binding:"required"`
}

var (
	difficultyMessages = bindMessages{
		"Difficulty": {
			"required":   "difficulty is required",
			"difficulty": "difficulty must be easy, normal or hard",
		},
	}
	canvasMessages = bindMessages{
		"Data": {"max": "canvas is too large"},
	}
	chatMessages = bindMessages{
		"Text": {
			"required": "message is required",
			"chattext": "message must be 1-200 characters",
		},
	}
	judgeMessages = bindMessages{
		"RoomID": {
			"required": "roomId is required",
			"roomid":   "roomId is invalid",
		},
		"Image": {"required": "image is required"},
	}
)

func (s *Server) handleMe(c *gin.Context) {
	id := currentIdentity(c)
	writeJSON(c, http.StatusOK, gin.H{
		"uid":         id.UID,
		"displayName": id.DisplayName,
		"email":       id.Email,
		"photoURL":    id.PhotoURL,
		"admin":       s.cfg.IsAdmin(id.UID),
	})
}

func (s *Server) handleJoinQueue(c *gin.Context) {
	entry, err := s.queue.Join(c.Request.Context(), currentIdentity(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, entry)
}

func (s *Server) handleLeaveQueue(c *gin.Context) {
	if err := s.queue.Leave(c.Request.Context(), currentIdentity(c).UID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListQueue(c *gin.Context) {
	waiting, err := s.queue.Waiting(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"waiting":    waiting,
		"maxPlayers": s.cfg.MaxPlayers,
	})
}

func (s *Server) handleMyRoom(c *gin.Context) {
	room, err := s.queue.FindMyRoom(c.Request.Context(), currentIdentity(c).UID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s.roomSnapshot(c.Request.Context(), room))
}

func (s *Server) handleGetRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	room, err := s.rooms.Get(c.Request.Context(), uri.RoomID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s.roomSnapshot(c.Request.Context(), room))
}

func (s *Server) handleStart(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	room, err := s.rooms.Start(c.Request.Context(), uri.RoomID, currentIdentity(c).UID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, room)
}

func (s *Server) handleReady(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req readyRequest
	if !bindJSON(c, &req, nil, "invalid ready payload") {
		return
	}
	room, err := s.rooms.SetReady(c.Request.Context(), uri.RoomID, currentIdentity(c).UID, req.Ready)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, room)
}

func (s *Server) handleDifficulty(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req difficultyRequest
	if !bindJSON(c, &req, difficultyMessages, "invalid difficulty") {
		return
	}
	room, err := s.rooms.SetDifficulty(c.Request.Context(), uri.RoomID, currentIdentity(c).UID, req.Difficulty)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, room)
}

func (s *Server) handleCanvas(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req canvasRequest
	if !bindJSON(c, &req, canvasMessages, "invalid canvas") {
		return
	}
	if _, err := s.rooms.UpdateCanvas(c.Request.Context(), uri.RoomID, currentIdentity(c).UID, req.Data); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleEndTurn(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	room, _, err := s.rooms.EndTurn(c.Request.Context(), uri.RoomID, currentIdentity(c).UID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, room)
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	if err := s.rooms.Leave(c.Request.Context(), uri.RoomID, currentIdentity(c).UID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListChat(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	messages, err := s.rooms.Chat(c.Request.Context(), uri.RoomID, currentIdentity(c).UID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"messages": messages})
}

func (s *Server) handleSendChat(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req chatRequest
	if !bindJSON(c, &req, chatMessages, "invalid message") {
		return
	}
	msg, err := s.rooms.SendChat(c.Request.Context(), uri.RoomID, currentIdentity(c), req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, msg)
}

func (s *Server) handleSecret(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	secret, err := s.rooms.Secret(c.Request.Context(), uri.RoomID, currentIdentity(c).UID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, secret)
}

func (s *Server) handleJudge(c *gin.Context) {
	var req judgeRequest
	if !bindJSON(c, &req, judgeMessages, "invalid judge request") {
		return
	}
	result, err := s.judge.Judge(c.Request.Context(), currentIdentity(c).UID, judge.Request{
		RoomID: req.RoomID,
		Image:  req.Image,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}
