// Package bootstrap wires configuration into a running ledger: it opens the
// configured store and assembles the application service.
package bootstrap

import (
	"context"
	"fmt"

	"inventory-ledger/internal/ai"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/storage/memory"
	"inventory-ledger/internal/storage/mysql"
	"inventory-ledger/internal/storage/postgres"
	"inventory-ledger/migrations"

	"github.com/rs/zerolog"
)

// OpenStore connects to the backend selected by cfg.StoreDriver and applies
// its schema. The returned close func releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (core.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := migrations.ApplyPostgres(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewStore(pool), pool.Close, nil

	case config.DriverMySQL:
		conn, err := db.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := migrations.ApplyMySQL(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return mysql.NewStore(conn), func() { conn.Close() }, nil

	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// RetryPolicy converts the approval settings in cfg.
func RetryPolicy(cfg *config.Config) core.RetryPolicy {
	return core.RetryPolicy{
		MaxAttempts: cfg.ApprovalMaxAttempts,
		BaseBackoff: cfg.ApprovalBaseBackoff,
		MaxBackoff:  cfg.ApprovalMaxBackoff,
	}
}

// NewService builds the domain components on store and returns the facade.
// The AI drafter is enabled only when an OpenAI key is configured.
func NewService(store core.Store, cfg *config.Config, logger zerolog.Logger) app.ApplicationService {
	registry := core.NewItemRegistry(store)
	movements := core.NewMovementLog(store)
	coordinator := core.NewCoordinator(store, registry, RetryPolicy(cfg), logger)
	workflow := core.NewAdjustmentWorkflow(store, coordinator)

	var drafter ai.Drafter
	if cfg.OpenAIKey != "" {
		drafter = ai.NewAgent(cfg.OpenAIKey, cfg.OpenAIModel)
	} else {
		logger.Warn().Msg("OPENAI_API_KEY is not set; AI drafting disabled")
	}
	return app.NewAppService(registry, movements, workflow, drafter)
}
