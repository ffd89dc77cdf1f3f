package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charleshuang3/kinderauth/internal/session"
)

// Error kinds returned in 401 bodies. An unknown secret is reported as
// expired so clients can not probe which secrets existed.
const (
	kindSessionExpired = "session_expired"
	kindReplayDetected = "replay_detected"
	kindInvalidToken   = "invalid_token"
	kindServerError    = "server_error"
)

type errorResponse struct {
	Error string `json:"error"`
}

func sessionErrorKind(err error) string {
	if errors.Is(err, session.ErrReplayDetected) {
		return kindReplayDetected
	}
	return kindSessionExpired
}

// responseSessionError maps session errors to 401 for the client to log in
// again, or 500 when the store failed.
func (p *Provider) responseSessionError(c *gin.Context, err error) {
	if session.IsUnauthorized(err) {
		p.clearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, errorResponse{Error: sessionErrorKind(err)})
		return
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Session operation failed")
	c.JSON(http.StatusInternalServerError, errorResponse{Error: kindServerError})
}
