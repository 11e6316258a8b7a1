// stress proposes many single-unit DECREASE adjustments against one item and
// approves them all concurrently, then checks that stock never went negative
// and that the final quantity accounts for every approval.
//
// Usage: go run ./cmd/stress [-stock 20] [-requests 50] [-attempts 50]
// The backend follows STORE_DRIVER; the default is the in-memory store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"inventory-ledger/internal/bootstrap"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/logging"

	"github.com/google/uuid"
)

func main() {
	initialStock := flag.Int64("stock", 20, "opening quantity")
	totalRequests := flag.Int("requests", 50, "concurrent DECREASE 1 approvals")
	attempts := flag.Int("attempts", 50, "approval attempts per request on conflict")
	flag.Parse()

	if os.Getenv("STORE_DRIVER") == "" {
		os.Setenv("STORE_DRIVER", string(config.DriverMemory))
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApprovalMaxAttempts = *attempts
	logger := logging.InitTo(os.Stderr, "warn", "console")

	ctx := context.Background()
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("store")
	}
	defer closeStore()

	registry := core.NewItemRegistry(store)
	coordinator := core.NewCoordinator(store, registry, bootstrap.RetryPolicy(cfg), logger)
	workflow := core.NewAdjustmentWorkflow(store, coordinator)

	item, err := registry.Create(ctx, core.CreateItemInput{
		ItemCode:        "STRESS-" + uuid.NewString()[:8],
		Name:            "stress item",
		InitialQuantity: *initialStock,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create item")
	}

	ids := make([]string, *totalRequests)
	for i := range ids {
		adj, err := workflow.Propose(ctx, core.ProposeAdjustmentInput{
			ItemID: item.ID, Type: core.AdjustmentDecrease, Quantity: 1, Reason: "stress", CreatedBy: "stress",
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("propose")
		}
		ids[i] = adj.ID
	}

	var successCount, guardCount, conflictCount, otherCount atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()

	for i, id := range ids {
		wg.Add(1)
		go func(n int, adjustmentID string) {
			defer wg.Done()
			_, err := workflow.Approve(ctx, adjustmentID, fmt.Sprintf("approver-%d", n))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, core.ErrInvariantViolation):
				guardCount.Add(1)
			case errors.Is(err, core.ErrConflict):
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
				logger.Error().Err(err).Str("adjustment_id", adjustmentID).Msg("unexpected approval error")
			}
		}(i, id)
	}

	wg.Wait()
	elapsed := time.Since(start)

	final, err := registry.Get(ctx, item.ID)
	if err != nil {
		logger.Fatal().Err(err).Msg("reload item")
	}
	success := successCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store Driver:     %s\n", cfg.StoreDriver)
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Approved:         %d\n", success)
	fmt.Printf("Negative Guard:   %d\n", guardCount.Load())
	fmt.Printf("Conflict:         %d\n", conflictCount.Load())
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Final Quantity:   %d (version %d)\n", final.CurrentQuantity, final.Version)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if final.CurrentQuantity >= 0 {
		fmt.Println("PASS: Quantity never negative")
	} else {
		fmt.Printf("FAIL: Final quantity %d is negative\n", final.CurrentQuantity)
		failed = true
	}

	if final.CurrentQuantity == *initialStock-success {
		fmt.Printf("PASS: Conservation holds (%d - %d = %d)\n", *initialStock, success, final.CurrentQuantity)
	} else {
		fmt.Printf("FAIL: Expected %d - %d = %d, got %d\n", *initialStock, success, *initialStock-success, final.CurrentQuantity)
		failed = true
	}

	expected := min(*initialStock, int64(*totalRequests))
	if conflictCount.Load() == 0 && otherCount.Load() == 0 {
		if success == expected {
			fmt.Printf("PASS: Exactly %d approvals succeeded\n", expected)
		} else {
			fmt.Printf("FAIL: Expected %d approvals, got %d\n", expected, success)
			failed = true
		}
	} else {
		fmt.Println("SKIP: Approval count check (some requests exhausted retries; raise -attempts)")
	}

	if failed {
		os.Exit(1)
	}
}
