package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"postboard/internal/auth"
	"postboard/internal/backup"
	apphttp "postboard/internal/http"
	"postboard/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	revoker, closeRevoker, err := buildRevoker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRevoker()

	userService := newUserService(cfg, stores)
	postService := service.NewPostService(stores.posts)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.TokenTTL())
	authService := service.NewAuthService(userService, tokens, revoker)

	if err := bootstrapUser(ctx, cfg, userService, logger); err != nil {
		return err
	}

	var scheduler *backup.Scheduler
	if cfg.BackupsEnabled() {
		scheduler, err = buildScheduler(ctx, cfg, stores, logger)
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
	} else if cfg.Backup.Bucket != "" {
		logger.Warnf("backups need the sqlite driver, %s database will not be snapshotted", cfg.Database.Driver)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, postService, authService, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}

	logger.Info("bye")
	return nil
}
