package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RetryPolicy bounds the optimistic retry loop of Coordinator.Approve.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy is used when NewCoordinator receives a zero policy.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseBackoff: 10 * time.Millisecond,
	MaxBackoff:  250 * time.Millisecond,
}

// backoff returns a full-jitter delay for the given zero-based retry number.
func (p RetryPolicy) backoff(retry int) time.Duration {
	d := p.BaseBackoff << retry
	if d <= 0 || d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if d <= 0 {
		return 0
	}
	return rand.N(d) + time.Microsecond
}

// Coordinator is the only component that turns an approved adjustment into a
// quantity mutation. Each attempt runs in one store transaction: re-read the
// adjustment, check it is PENDING, re-read the item, apply the delta against
// the observed version and mark the adjustment COMPLETED. Version conflicts
// restart the attempt; everything else is returned unchanged.
type Coordinator struct {
	store    Store
	registry ItemRegistry
	policy   RetryPolicy
	logger   zerolog.Logger
	now      Clock
}

func NewCoordinator(store Store, registry ItemRegistry, policy RetryPolicy, logger zerolog.Logger) *Coordinator {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = DefaultRetryPolicy.BaseBackoff
	}
	if policy.MaxBackoff < policy.BaseBackoff {
		policy.MaxBackoff = policy.BaseBackoff
	}
	return &Coordinator{
		store:    store,
		registry: registry,
		policy:   policy,
		logger:   logger.With().Str("component", "coordinator").Logger(),
		now:      systemClock,
	}
}

// Approve applies adjustmentID to its item and returns it COMPLETED. On any
// error the adjustment is left PENDING and the item untouched.
func (c *Coordinator) Approve(ctx context.Context, adjustmentID, approverID string) (*InventoryAdjustment, error) {
	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.policy.backoff(attempt - 1)
			c.logger.Debug().
				Str("adjustment_id", adjustmentID).
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Err(lastErr).
				Msg("retrying approval after conflict")
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, fmt.Errorf("approve adjustment %s: %w", adjustmentID, err)
			}
		}

		adj, item, err := c.approveOnce(ctx, adjustmentID, approverID)
		if err == nil {
			c.logger.Info().
				Str("adjustment_id", adj.ID).
				Str("item_code", item.ItemCode).
				Int64("delta", adj.Delta()).
				Int64("quantity", item.CurrentQuantity).
				Str("approver_id", approverID).
				Msg("adjustment approved")
			if item.NeedsReorder() {
				c.logger.Warn().
					Str("item_id", item.ID).
					Str("item_code", item.ItemCode).
					Int64("quantity", item.CurrentQuantity).
					Int64("reorder_point", item.ReorderPoint).
					Str("stock_status", string(item.Status())).
					Msg("low stock after adjustment")
			}
			return adj, nil
		}
		if !IsRetryable(err) {
			return nil, fmt.Errorf("approve adjustment %s: %w", adjustmentID, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("approve adjustment %s: %w", adjustmentID, ctxErr)
		}
		lastErr = err
	}

	c.logger.Warn().
		Str("adjustment_id", adjustmentID).
		Int("attempts", c.policy.MaxAttempts).
		Err(lastErr).
		Msg("approval retries exhausted")
	return nil, fmt.Errorf("approve adjustment %s: gave up after %d attempts: %w", adjustmentID, c.policy.MaxAttempts, ErrConflict)
}

func (c *Coordinator) approveOnce(ctx context.Context, adjustmentID, approverID string) (*InventoryAdjustment, *InventoryItem, error) {
	var (
		adj  *InventoryAdjustment
		item *InventoryItem
	)
	err := c.store.InTx(ctx, func(tx StoreTx) error {
		var err error
		adj, err = tx.GetAdjustment(ctx, adjustmentID)
		if err != nil {
			return err
		}
		if adj.Status != AdjustmentPending {
			return fmt.Errorf("adjustment is %s: %w", adj.Status, ErrInvalidState)
		}

		current, err := tx.GetItem(ctx, adj.ItemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", adj.ItemID, err)
		}

		item, err = c.registry.ApplyDeltaTx(ctx, tx, current.ID, adj.Delta(), current.Version)
		if err != nil {
			return err
		}

		now := c.now()
		impact := current.UnitCost.Mul(decimal.NewFromInt(adj.Delta()))
		if err := tx.CompleteAdjustment(ctx, adj.ID, approverID, impact, now); err != nil {
			return err
		}

		adj.Status = AdjustmentCompleted
		adj.ApproverID = &approverID
		adj.ApprovedAt = &now
		adj.ValueImpact = impact
		adj.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return adj, item, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
