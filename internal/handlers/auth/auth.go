// Package auth serves the session endpoints: login, refresh, logout and the
// account wide revocation endpoints.
package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/session"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

var (
	logger = log.With().Str("component", "auth-handlers").Logger()
)

type Provider struct {
	config   *Config
	db       *gormw.DB
	sessions *session.Manager

	loginAttempts *storage.LoginAttemptStorage
}

func NewProvider(config *Config, db *gormw.DB, sessions *session.Manager) *Provider {
	config.applyDefaults()

	return &Provider{
		config:        config,
		db:            db,
		sessions:      sessions,
		loginAttempts: storage.NewLoginAttemptStorage(time.Duration(config.LoginLockoutMinutes) * time.Minute),
	}
}

func (p *Provider) RegisterHandlers(rg *gin.RouterGroup) {
	authRoutes := rg.Group("/auth")
	{
		authRoutes.POST("/login", p.handleLogin)
		// Exchanges the refresh cookie for a new token pair
		authRoutes.POST("/refresh", p.handleRefresh)
		authRoutes.POST("/logout", p.handleLogout)
		// Sign out everywhere
		authRoutes.POST("/logout-all", p.RequireAccessToken(), p.handleLogoutAll)
		authRoutes.POST("/password", p.RequireAccessToken(), p.handleChangePassword)
		// JWKS Endpoint
		authRoutes.GET("/.well-known/jwks.json", p.handleJWKS)
	}

	adminRoutes := rg.Group("/admin", p.RequireAccessToken(), RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	{
		adminRoutes.POST("/users/:id/revoke-sessions", p.handleAdminRevokeSessions)
	}

	apiRoutes := rg.Group("/api", p.RequireAccessToken())
	{
		apiRoutes.GET("/me", p.handleMe)
	}
}
