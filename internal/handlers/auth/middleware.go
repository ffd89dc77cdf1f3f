package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-set/v3"

	"github.com/charleshuang3/kinderauth/internal/session"
)

const keyAccessClaims = "ACCESS_CLAIMS"

// RequireAccessToken verifies the bearer access token. Failures respond 401
// so the client interceptor refreshes and retries.
func (p *Provider) RequireAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.Header("WWW-Authenticate", `Bearer realm="kinderauth"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: kindInvalidToken})
			return
		}

		claims, err := p.sessions.VerifyAccessToken(token)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="kinderauth", error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: kindInvalidToken})
			return
		}

		c.Set(keyAccessClaims, claims)
		c.Next()
	}
}

// RequireRoles must run after RequireAccessToken. The caller needs at least
// one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := set.From(roles)
	return func(c *gin.Context) {
		if !slices.ContainsFunc(accessClaims(c).Roles, allowed.Contains) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

func accessClaims(c *gin.Context) *session.AccessClaims {
	return c.MustGet(keyAccessClaims).(*session.AccessClaims)
}
