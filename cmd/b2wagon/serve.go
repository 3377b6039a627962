package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/A-N-O-D-E-R/B2Wagon/internal/config"
	"github.com/A-N-O-D-E-R/B2Wagon/internal/proxy"
	"github.com/A-N-O-D-E-R/B2Wagon/internal/storage"
	"github.com/A-N-O-D-E-R/B2Wagon/internal/wagon"
	"github.com/A-N-O-D-E-R/B2Wagon/pkg/logger"
)

// runServe exposes the repository bucket read-only over HTTP until
// interrupted.
func runServe(c *cli.Context) error {
	cfg := config.Load()

	repoURL := c.String("repo-url")
	if repoURL == "" {
		return fmt.Errorf("no repository URL; pass --repo-url or set WAGON_REPO_URL")
	}
	loc, err := wagon.ParseLocation(repoURL)
	if err != nil {
		return err
	}

	store, err := storage.NewB2Client(storage.B2Config{
		Endpoint:       c.String("endpoint"),
		KeyID:          c.String("key-id"),
		ApplicationKey: c.String("application-key"),
		Region:         c.String("region"),
		UseSSL:         cfg.B2.UseSSL,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if ok, err := store.BucketExists(c.Context, loc.Bucket); err != nil {
		return fmt.Errorf("bucket lookup failed: %w", err)
	} else if !ok {
		return fmt.Errorf("bucket not found: %s", loc.Bucket)
	}

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := proxy.NewRouter(store, loc, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + c.String("port"),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", c.String("port")).Str("bucket", loc.Bucket).Msg("Starting repository proxy")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-c.Context.Done():
	}
	logger.Log.Info().Msg("Shutting down repository proxy...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
