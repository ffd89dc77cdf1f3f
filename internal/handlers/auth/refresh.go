package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleRefresh rotates the refresh token in the cookie. Clients must call
// it without a body.
func (p *Provider) handleRefresh(c *gin.Context) {
	pair, err := p.sessions.Rotate(c.Request.Context(), p.refreshSecret(c))
	if err != nil {
		p.responseSessionError(c, err)
		return
	}

	p.responseTokenPair(c, pair)
}

// handleLogout ends the session of the refresh cookie.
func (p *Provider) handleLogout(c *gin.Context) {
	if err := p.sessions.Logout(c.Request.Context(), p.refreshSecret(c)); err != nil {
		p.responseSessionError(c, err)
		return
	}

	p.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

// handleLogoutAll ends every session of the calling user.
func (p *Provider) handleLogoutAll(c *gin.Context) {
	claims := accessClaims(c)

	if _, err := p.sessions.RevokeAllForUser(c.Request.Context(), claims.UserID); err != nil {
		p.responseSessionError(c, err)
		return
	}

	p.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}
