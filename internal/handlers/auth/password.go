package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

const minPasswordLength = 8

type handleChangePasswordParams struct {
	OldPassword string `form:"old_password" json:"old_password" binding:"required"`
	NewPassword string `form:"new_password" json:"new_password" binding:"required"`
}

// handleChangePassword updates the password, revokes all sessions of the
// user and starts a new one for the caller, all in one transaction.
func (p *Provider) handleChangePassword(c *gin.Context) {
	params := &handleChangePasswordParams{}
	if err := c.ShouldBind(params); err != nil {
		c.String(http.StatusBadRequest, "Missing required parameters")
		return
	}

	if len(params.NewPassword) < minPasswordLength {
		c.String(http.StatusBadRequest, "Password too short")
		return
	}

	user, err := storage.GetUserByID(p.db, accessClaims(c).UserID)
	if err != nil {
		// user deleted after the access token was issued
		c.JSON(http.StatusUnauthorized, errorResponse{Error: kindInvalidToken})
		return
	}

	if !user.CheckPassword(params.OldPassword) {
		c.String(http.StatusForbidden, "Invalid password")
		return
	}

	if err := user.SetPassword(params.NewPassword); err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		c.String(http.StatusInternalServerError, "Failed to hash password")
		return
	}

	pair, err := p.sessions.ReplaceSessions(c.Request.Context(), user, func(tx *gormw.DB) error {
		return storage.UpdateUserPassword(tx, user)
	})
	if err != nil {
		p.responseSessionError(c, err)
		return
	}

	p.responseTokenPair(c, pair)
}
