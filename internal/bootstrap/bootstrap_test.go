package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/config"

	"github.com/rs/zerolog"
)

func TestOpenStore_Memory(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.DriverMemory}
	store, closeFn, err := OpenStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer closeFn()
	if store == nil {
		t.Fatal("Expected a store")
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := &config.Config{StoreDriver: "sqlite"}
	if _, _, err := OpenStore(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Error("Expected error for unknown driver")
	}
}

func TestNewService_WithoutOpenAIKey(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.DriverMemory, ApprovalMaxAttempts: 3, ApprovalBaseBackoff: time.Millisecond, ApprovalMaxBackoff: 5 * time.Millisecond}
	store, closeFn, err := OpenStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer closeFn()

	svc := NewService(store, cfg, zerolog.Nop())
	ctx := context.Background()
	if _, err := svc.CreateItem(ctx, app.CreateItemRequest{ItemCode: "SKU-B", InitialQuantity: 1}); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if _, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: "one broke"}); !errors.Is(err, app.ErrDraftingUnavailable) {
		t.Errorf("Expected ErrDraftingUnavailable without a key, got %v", err)
	}

	p := RetryPolicy(cfg)
	if p.MaxAttempts != 3 || p.BaseBackoff != time.Millisecond {
		t.Errorf("Expected policy from config, got %+v", p)
	}
}
