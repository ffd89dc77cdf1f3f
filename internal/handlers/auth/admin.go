package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charleshuang3/kinderauth/internal/storage"
)

type revokeSessionsResponse struct {
	Revoked int64 `json:"revoked"`
}

// handleAdminRevokeSessions signs a user out of every device.
func (p *Provider) handleAdminRevokeSessions(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := storage.GetUserByID(p.db, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.String(http.StatusNotFound, "User not found")
			return
		}
		logger.Error().Err(err).Msg("Database error during admin revoke")
		c.String(http.StatusInternalServerError, "Database error")
		return
	}

	n, err := p.sessions.RevokeAllForUser(c.Request.Context(), user.ID)
	if err != nil {
		p.responseSessionError(c, err)
		return
	}

	logger.Info().
		Uint("admin_id", accessClaims(c).UserID).
		Uint("user_id", user.ID).
		Int64("revoked", n).
		Msg("Admin revoked sessions")
	c.JSON(http.StatusOK, &revokeSessionsResponse{Revoked: n})
}
