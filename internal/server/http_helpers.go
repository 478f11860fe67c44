package server

import (
	"errors"
	"net/http"

	"da-vinci/internal/game"
	"da-vinci/internal/judge"
	"da-vinci/internal/matchmaking"
	"da-vinci/internal/room"
	"da-vinci/internal/schedule"
	"da-vinci/internal/store"

	"github.com/gin-gonic/gin"
)

func writeJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
	})
}

// respondError maps a domain error onto an HTTP status. Unknown errors are
// logged and reported without their detail.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		if status == http.StatusInternalServerError {
			writeError(c, status, "internal error")
			return
		}
	}
	writeError(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, matchmaking.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotPlayer),
		errors.Is(err, game.ErrNotDrawer),
		errors.Is(err, game.ErrStartForbidden),
		errors.Is(err, room.ErrSecretHidden),
		errors.Is(err, schedule.ErrClosed):
		return http.StatusForbidden
	case errors.Is(err, game.ErrNotWaiting),
		errors.Is(err, game.ErrNotInProgress),
		errors.Is(err, game.ErrPlayersNotReady),
		errors.Is(err, game.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidDifficulty),
		errors.Is(err, game.ErrEmptyMessage),
		errors.Is(err, game.ErrMessageTooLong),
		errors.Is(err, matchmaking.ErrInvalidIdentity):
		return http.StatusBadRequest
	}
	return judge.StatusFor(err)
}
