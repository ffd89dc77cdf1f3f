package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charleshuang3/kinderauth/internal/storage"
)

type handleLoginParams struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// handleLogin checks username (or email) and password and starts a new
// session.
func (p *Provider) handleLogin(c *gin.Context) {
	params := &handleLoginParams{}

	if err := c.ShouldBind(params); err != nil {
		c.String(http.StatusBadRequest, "Missing required parameters")
		return
	}

	// counted before the password check, so concurrent guesses can not
	// exceed the limit.
	throttleKey := strings.ToLower(params.Username)
	attempts, ok := p.loginAttempts.Attempt(throttleKey, p.config.MaxLoginFailures)
	if !ok {
		c.String(http.StatusTooManyRequests, "Too many failed logins, try again later")
		return
	}

	user, err := storage.GetUserByUsernameOrEmail(p.db, params.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Generic message for security reasons
			c.String(http.StatusUnauthorized, "Invalid username or password")
			return
		}
		logger.Error().Err(err).Msg("Database error during login")
		c.String(http.StatusInternalServerError, "Database error")
		return
	}

	if !user.CheckPassword(params.Password) {
		if attempts >= p.config.MaxLoginFailures {
			logger.Warn().Uint("user_id", user.ID).Int("failures", attempts).Msg("Login locked after repeated failures")
		}
		c.String(http.StatusUnauthorized, "Invalid username or password")
		return
	}

	p.loginAttempts.Reset(throttleKey)

	pair, err := p.sessions.Issue(c.Request.Context(), user)
	if err != nil {
		p.responseSessionError(c, err)
		return
	}

	logger.Info().Uint("user_id", user.ID).Str("record_id", pair.RefreshRecordID).Msg("User logged in")
	p.responseTokenPair(c, pair)
}
