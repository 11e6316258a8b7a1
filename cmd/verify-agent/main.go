// verify-agent sends one stock report through the real OpenAI drafter against
// a small in-memory catalogue and prints the resulting draft.
//
// Usage: go run ./cmd/verify-agent ["<stock report>"]
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"inventory-ledger/internal/app"
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
	logger := logging.InitTo(os.Stderr, cfg.LogLevel, "console")
	if cfg.OpenAIKey == "" {
		logger.Fatal().Msg("OPENAI_API_KEY not set")
	}
	cfg.StoreDriver = config.DriverMemory

	ctx := context.Background()
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("store")
	}
	defer closeStore()
	svc := bootstrap.NewService(store, cfg, logger)

	catalogue := []app.CreateItemRequest{
		{ItemCode: "SKU-1", Name: "Widget, blue", InitialQuantity: 100, UnitCost: "1.25", ReorderPoint: 20},
		{ItemCode: "SKU-2", Name: "Cable, USB-C 1m", InitialQuantity: 40, UnitCost: "3.10", ReorderPoint: 10},
		{ItemCode: "SKU-3", Name: "Pallet wrap", InitialQuantity: 6, UnitCost: "12.00", ReorderPoint: 2},
	}
	for _, req := range catalogue {
		if _, err := svc.CreateItem(ctx, req); err != nil {
			logger.Fatal().Err(err).Str("item_code", req.ItemCode).Msg("seed")
		}
	}

	report := "Cycle count found 3 blue widgets crushed under a pallet."
	if len(os.Args) > 1 {
		report = strings.Join(os.Args[1:], " ")
	}

	fmt.Printf("STOCK REPORT: %s\n", report)
	result, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: report})
	if err != nil {
		logger.Fatal().Err(err).Msg("draft")
	}

	d := result.Draft
	fmt.Printf("\n--- DRAFT ---\n")
	fmt.Printf("Item:       %s (%s, on hand %d)\n", d.ItemCode, result.Item.Name, result.Item.CurrentQuantity)
	fmt.Printf("Change:     %s %d\n", d.Type, d.Quantity)
	fmt.Printf("Reason:     %s\n", d.Reason)
	fmt.Printf("Confidence: %.2f\n", d.Confidence)
	fmt.Printf("Reasoning:  %s\n", d.Reasoning)
}
