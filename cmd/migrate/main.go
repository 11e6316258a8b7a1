// migrate applies the embedded schema to the configured database.
//
// Postgres migrations are checksum-verified and run under an advisory lock;
// MySQL statements are idempotent and re-run in full.
//
// Usage: go run ./cmd/migrate [-list]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/logging"
	"inventory-ledger/migrations"
)

func main() {
	list := flag.Bool("list", false, "print the embedded migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	if *list {
		dir := "."
		if cfg.StoreDriver == config.DriverMySQL {
			dir = "mysql"
		}
		ms, err := migrations.Discover(dir)
		if err != nil {
			logger.Fatal().Err(err).Msg("discover")
		}
		for _, m := range ms {
			fmt.Printf("%s  %s  %s\n", m.Version, m.Checksum[:12], m.Filename)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect")
		}
		defer pool.Close()
		logger.Info().Msg("connected")
		if err := migrations.ApplyPostgres(ctx, pool, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}

	case config.DriverMySQL:
		conn, err := db.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect")
		}
		defer conn.Close()
		logger.Info().Msg("connected")
		if err := migrations.ApplyMySQL(ctx, conn); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}

	default:
		logger.Fatal().Str("driver", string(cfg.StoreDriver)).Msg("nothing to migrate for this driver")
	}
	logger.Info().Msg("all migrations processed")
}
