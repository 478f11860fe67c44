package server

import (
	"errors"
	"net/http"
	"strings"

	"da-vinci/internal/identity"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// requireAuth accepts a bearer header, or a token query parameter for
// websocket upgrades where browsers cannot set headers.
func (s *Server) requireAuth(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		writeError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := s.verifier.Verify(token)
	switch {
	case errors.Is(err, identity.ErrDomainNotAllowed):
		writeError(c, http.StatusForbidden, err.Error())
		return
	case err != nil:
		writeError(c, http.StatusUnauthorized, err.Error())
		return
	}
	c.Set(identityKey, id)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if !s.cfg.IsAdmin(currentIdentity(c).UID) {
		writeError(c, http.StatusForbidden, "admin only")
		return
	}
	c.Next()
}

func currentIdentity(c *gin.Context) identity.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return identity.Identity{}
	}
	id, _ := value.(identity.Identity)
	return id
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
