// Command spacex-explorer serves the SpaceX launch explorer API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/spacex-explorer/internal/config"
	"github.com/Sternrassler/spacex-explorer/pkg/cache"
	"github.com/Sternrassler/spacex-explorer/pkg/logging"
	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogPretty
	logCfg.File.Path = cfg.LogFile
	logging.Setup(logCfg)
	logger := logging.NewLogger("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	clientCfg := spacex.DefaultConfig()
	clientCfg.BaseURL = cfg.SpaceXBaseURL
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.Timeout = cfg.RequestTimeout
	clientCfg.MaxAttempts = cfg.MaxAttempts
	clientCfg.InitialBackoff = cfg.InitialBackoff
	if redisClient != nil {
		clientCfg.Cache = cache.NewManager(redisClient)
	}

	client, err := spacex.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create SpaceX client")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newServer(cfg, client, redisClient, logger).routes(),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("spacex_api", cfg.SpaceXBaseURL).
		Bool("redis", redisClient != nil).
		Bool("shared_favorites", cfg.FavoritesFile != "").
		Msg("Starting SpaceX explorer")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

// connectRedis returns nil when Redis is not configured.
func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	opts, err := cfg.RedisOptions()
	if err != nil || opts == nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
