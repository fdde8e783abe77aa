package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"reelsapp/reels-api/internal/api"
	"reelsapp/reels-api/internal/config"
	"reelsapp/reels-api/internal/logger"
	"reelsapp/reels-api/internal/service"
	"reelsapp/reels-api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(parent context.Context, ctx *commandContext) error {
	cfg := ctx.cfg
	log := logger.WithModule("server")

	runCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg.Database)
	if err != nil {
		return err
	}
	defer st.close()

	// Index creation runs in the background so a slow build does not delay startup
	go func() {
		if err := st.ensureIndexes(context.Background()); err != nil {
			log.WithError(err).Error("index creation failed")
			return
		}
		log.Info("index creation process completed")
	}()

	fileStorage, err := storage.New(cfg.Storage, cfg.S3)
	if err != nil {
		return fmt.Errorf("initialize file storage: %w", err)
	}

	services := api.Services{
		Auth:       service.NewAuthService(st.users, cfg.JWT.Secret, cfg.JWT.Expiration),
		Social:     service.NewSocialService(st.users),
		Reels:      service.NewReelService(st.reels, fileStorage),
		Feed:       service.NewFeedService(st.reels, st.users, cfg.Feed.Limit, cfg.Feed.MineLimit),
		Engagement: service.NewEngagementService(st.reels),
	}

	if logger.Get().IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter()
	mediaDir := ""
	if cfg.Storage.Driver == "local" || cfg.Storage.Driver == "" {
		mediaDir = cfg.Storage.LocalDir
	}
	api.SetupRoutes(router, services, mediaDir)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      corsHandler(cfg.Server).Handler(router),
		// Local uploads carry up to ~56 MB of base64
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("address", cfg.Server.Address).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-runCtx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exiting")
	return nil
}

func corsHandler(cfg config.ServerConfig) *cors.Cors {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", api.RequestIDHeader},
		ExposedHeaders: []string{api.RequestIDHeader},
	})
}
