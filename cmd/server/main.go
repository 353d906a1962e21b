package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/theLastOfCats/storefront/internal/api"
	"github.com/theLastOfCats/storefront/internal/auth"
	"github.com/theLastOfCats/storefront/internal/config"
	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/logger"
	"github.com/theLastOfCats/storefront/internal/mail"
	"github.com/theLastOfCats/storefront/internal/templates"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("storefront-server", cfg.Development)
	logger.SetLevel(cfg.LogLevel)

	// Initialize Database
	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	router := api.NewRouter(api.Deps{
		DB:        database,
		Tokens:    auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Mailer:    mail.NewSender(cfg.Mail),
		Templates: templates.Default(),
		BaseURL:   cfg.BaseURL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Logger.Info().Str("port", cfg.Port).Str("driver", database.Driver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
