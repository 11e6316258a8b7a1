package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"inventory-ledger/internal/adapters/cli"
	"inventory-ledger/internal/adapters/repl"
	"inventory-ledger/internal/bootstrap"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries command output.
	logger := logging.InitTo(os.Stderr, cfg.LogLevel, "console")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	user := config.Getenv("APP_USER", config.Getenv("USER", "operator"))
	args := os.Args[1:]

	// token needs no store.
	if len(args) > 0 && args[0] == "token" {
		if err := cli.Run(ctx, nil, args, os.Stdout, cli.Options{User: user, JWTSecret: cfg.JWTSecret}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("store")
	}
	defer closeStore()
	svc := bootstrap.NewService(store, cfg, logger)

	if len(args) == 0 || args[0] == "review" {
		if err := repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout, user); err != nil {
			logger.Fatal().Err(err).Msg("repl")
		}
		return
	}

	if err := cli.Run(ctx, svc, args, os.Stdout, cli.Options{User: user, JWTSecret: cfg.JWTSecret}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
