package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/kinderauth/internal/config"
	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/handlers/auth"
	"github.com/charleshuang3/kinderauth/internal/metrics"
	"github.com/charleshuang3/kinderauth/internal/session"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

var (
	configPath = flag.String("c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
)

func main() {
	flag.Parse()
	if *configPath == "" {
		log.Fatal().Msg("Config path must be provided via CONFIG_PATH env var or -c flag")
	}

	// Load configuration
	cfg := config.LoadConfig(*configPath)

	// Initialize database
	db, err := gormw.Open(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// cron schedule
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := storage.RegisterRefreshTokensCleaner(scheduler, db, cfg.Session.Retention()); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh tokens cleaner")
	}
	scheduler.Start()

	sessions, err := session.NewManager(&cfg.Session, db, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session manager")
	}

	// Set up Gin router
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.Use(metrics.Middleware())

	auth.NewProvider(&cfg.Auth, db, sessions).RegisterHandlers(router.Group("/"))
	metrics.RegisterHandlers(router.Group("/"))

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	go func() {
		log.Info().Msgf("start server at %q", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block until we receive our signal.
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down server")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to shut down scheduler")
	}

	log.Info().Msg("shutting down")
}
