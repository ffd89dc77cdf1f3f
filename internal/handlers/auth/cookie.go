package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charleshuang3/kinderauth/internal/session"
)

const refreshCookiePath = "/auth"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// responseTokenPair sets the refresh secret as cookie and returns the access
// token in the body, so the client keeps it in memory only.
func (p *Provider) responseTokenPair(c *gin.Context, pair *session.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		p.config.CookieName,
		pair.RefreshSecret,
		p.sessions.Config().RefreshTokenTTL,
		refreshCookiePath,
		p.config.CookieDomain,
		true, // secure
		true, // httpOnly
	)

	c.JSON(http.StatusOK, &tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   p.sessions.Config().AccessTokenTTL,
	})
}

func (p *Provider) refreshSecret(c *gin.Context) string {
	secret, err := c.Cookie(p.config.CookieName)
	if err != nil {
		return ""
	}
	return secret
}

func (p *Provider) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(p.config.CookieName, "", -1, refreshCookiePath, p.config.CookieDomain, true, true)
}
