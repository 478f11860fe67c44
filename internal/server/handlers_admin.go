package server

import (
	"net/http"

	"da-vinci/internal/schedule"

	"github.com/gin-gonic/gin"
)

type scheduleRequest struct {
	Windows []schedule.Window `json:"windows" binding:"max=200,dive"`
}

var scheduleMessages = bindMessages{
	"Date":    {"required": "date is required", "isodate": "date must be YYYY-MM-DD"},
	"Start":   {"required": "start is required", "hhmm": "start must be HH:mm"},
	"End":     {"required": "end is required", "hhmm": "end must be HH:mm"},
	"Windows": {"max": "too many schedule windows"},
}

func (s *Server) handleGetSchedule(c *gin.Context) {
	ctx := c.Request.Context()
	windows, err := s.gate.Windows(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	open, next, err := s.gate.Status(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	resp := gin.H{
		"open":    open,
		"windows": windows,
	}
	if !next.IsZero() {
		resp["nextOpen"] = next
	}
	writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handlePutSchedule(c *gin.Context) {
	var req scheduleRequest
	if !bindJSON(c, &req, scheduleMessages, "invalid schedule") {
		return
	}
	for _, window := range req.Windows {
		if err := window.Validate(); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	id := currentIdentity(c)
	if err := s.gate.Replace(c.Request.Context(), req.Windows, id.UID); err != nil {
		s.respondError(c, err)
		return
	}
	s.log.Info().Str("uid", id.UID).Int("windows", len(req.Windows)).Msg("schedule replaced")
	c.Status(http.StatusNoContent)
}
