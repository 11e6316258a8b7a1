package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "inventory-ledger/internal/adapters/web"
	"inventory-ledger/internal/bootstrap"
	"inventory-ledger/internal/cache"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/logging"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", ":"+cfg.ServerPort)
	if err != nil {
		logger.Fatal().Err(err).Str("port", cfg.ServerPort).Msg("listen")
	}
	if err := run(ctx, cfg, logger, ln); err != nil {
		logger.Fatal().Err(err).Msg("server")
	}
}

// run serves the REST API on ln until ctx is cancelled, then shuts down
// within cfg.ShutdownTimeout. ln is closed on return.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, ln net.Listener) error {
	defer ln.Close()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("store %s: %w", cfg.StoreDriver, err)
	}
	defer closeStore()

	svc := bootstrap.NewService(store, cfg, logger)

	opts := webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		Logger:         logger,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		opts.Idempotency = cache.NewRedisIdempotency(rdb)
	} else {
		logger.Warn().Msg("REDIS_ADDR is not set; Idempotency-Key guard disabled")
	}
	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET is not set; all /api routes will return 401")
	}

	srv := &http.Server{
		Handler:           webAdapter.NewHandler(svc, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Str("driver", string(cfg.StoreDriver)).Msg("server starting")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}
