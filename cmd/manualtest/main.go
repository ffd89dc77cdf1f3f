// manualtest runs kinderauth in process on a self-signed TLS server and walks
// a sessionclient through login, refresh on expiry, replay and logout. Watch
// the logs.
package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlog "gorm.io/gorm/logger"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/handlers/auth"
	"github.com/charleshuang3/kinderauth/internal/metrics"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/session"
	"github.com/charleshuang3/kinderauth/internal/storage"
	"github.com/charleshuang3/kinderauth/sessionclient"
	"github.com/charleshuang3/kinderauth/testdata"
)

const (
	accessTokenTTL = 2 // seconds
	password       = "123456789"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	db, err := gormw.Open(&gormw.Config{LogLevel: gormlog.Warn})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	preloadData(db)

	sessions, err := session.NewManager(&session.Config{
		PrivateKeyPEM:   testdata.PrivateKeyPEM,
		Issuer:          "https://127.0.0.1",
		AccessTokenTTL:  accessTokenTTL,
		RefreshTokenTTL: 3600,
	}, db, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session manager")
	}

	gin.SetMode(gin.DebugMode)
	router := gin.Default()
	router.Use(metrics.Middleware())
	auth.NewProvider(&auth.Config{}, db, sessions).RegisterHandlers(router.Group("/"))
	metrics.RegisterHandlers(router.Group("/"))

	srv := httptest.NewTLSServer(router)
	defer srv.Close()
	log.Info().Msgf("Server listening on %s", srv.URL)

	ctx := context.Background()
	client, err := sessionclient.New(srv.URL,
		sessionclient.WithTransport(srv.Client().Transport),
		sessionclient.WithOnSessionEnded(func() {
			log.Warn().Msg("Session ended, user must login again")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create client")
	}

	if err := client.Login(ctx, "testuser", password); err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}
	callMe(ctx, client)
	stolen := refreshCookie(client, srv.URL)

	log.Info().Msg("Waiting for the access token to expire")
	time.Sleep((accessTokenTTL + 1) * time.Second)
	callMe(ctx, client)

	log.Info().Msg("Replaying the rotated refresh token")
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/auth/refresh", nil)
	req.AddCookie(stolen)
	if resp, err := srv.Client().Do(req); err == nil {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Info().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Replay response")
	}

	time.Sleep((accessTokenTTL + 1) * time.Second)
	callMe(ctx, client)

	if err := client.Login(ctx, "testuser", password); err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}
	callMe(ctx, client)
	if err := client.Logout(ctx); err != nil {
		log.Error().Err(err).Msg("Logout failed")
	}
	callMe(ctx, client)
}

func callMe(ctx context.Context, client *sessionclient.Client) {
	resp, err := client.Get(ctx, "/api/me")
	if err != nil {
		log.Error().Err(err).Msg("GET /api/me failed")
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	log.Info().Int("status", resp.StatusCode).Str("body", string(body)).Msg("GET /api/me")
}

func refreshCookie(client *sessionclient.Client, baseURL string) *http.Cookie {
	u, _ := url.Parse(baseURL + "/auth/refresh")
	for _, c := range client.Jar().Cookies(u) {
		return &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return nil
}

func preloadData(db *gormw.DB) {
	user := &models.User{
		Username: "testuser",
		Name:     "Test User",
		Email:    "testuser@example.com",
		Roles:    "parent admin",
	}
	if err := user.SetPassword(password); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate bcrypt hash")
	}
	if err := storage.CreateUser(db, user); err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}
}
