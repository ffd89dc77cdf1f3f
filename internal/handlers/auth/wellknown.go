package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleJWKS returns the JSON Web Key Set for access token verification.
func (p *Provider) handleJWKS(c *gin.Context) {
	jwks := map[string]interface{}{
		"keys": []interface{}{p.sessions.PublicKey()},
	}
	c.JSON(http.StatusOK, jwks)
}
