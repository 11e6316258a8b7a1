package features

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/storage/memory"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog"
)

type ledgerTestContext struct {
	svc        app.ApplicationService
	adjustment *core.InventoryAdjustment
	movement   *core.InventoryMovement
	err        error
}

func (c *ledgerTestContext) reset() {
	store := memory.NewStore()
	registry := core.NewItemRegistry(store)
	coordinator := core.NewCoordinator(store, registry, core.RetryPolicy{
		MaxAttempts: 10,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
	}, zerolog.Nop())
	c.svc = app.NewAppService(registry, core.NewMovementLog(store), core.NewAdjustmentWorkflow(store, coordinator), nil)
	c.adjustment = nil
	c.movement = nil
	c.err = nil
}

func (c *ledgerTestContext) anItemWithQuantityAndUnitCost(code string, qty int, cost string) error {
	_, err := c.svc.CreateItem(context.Background(), app.CreateItemRequest{
		ItemCode: code, Name: code, InitialQuantity: int64(qty), UnitCost: cost,
	})
	return err
}

func (c *ledgerTestContext) iProposeAdjustment(typ string, qty int, code, reason string) error {
	res, err := c.svc.ProposeAdjustment(context.Background(), app.ProposeAdjustmentRequest{
		ItemCode: code, Type: typ, Quantity: int64(qty), Reason: reason, CreatedBy: "clerk",
	})
	if err != nil {
		return err
	}
	c.adjustment = res.Adjustment
	return nil
}

func (c *ledgerTestContext) iApproveTheAdjustmentAs(approver string) error {
	if c.adjustment == nil {
		return errors.New("no adjustment proposed")
	}
	res, err := c.svc.ApproveAdjustment(context.Background(), c.adjustment.ID, approver)
	c.err = err
	if err == nil {
		c.adjustment = res.Adjustment
	}
	return nil
}

func (c *ledgerTestContext) iRejectTheAdjustmentAs(rejecter string) error {
	res, err := c.svc.RejectAdjustment(context.Background(), c.adjustment.ID, rejecter)
	if err != nil {
		return err
	}
	c.adjustment = res.Adjustment
	return nil
}

func (c *ledgerTestContext) iConcurrentlyApprove(incQty, decQty int, code string) error {
	ctx := context.Background()
	var ids []string
	for _, p := range []struct {
		typ string
		qty int
	}{{"INCREASE", incQty}, {"DECREASE", decQty}} {
		res, err := c.svc.ProposeAdjustment(ctx, app.ProposeAdjustmentRequest{
			ItemCode: code, Type: p.typ, Quantity: int64(p.qty), Reason: "concurrent", CreatedBy: "clerk",
		})
		if err != nil {
			return err
		}
		ids = append(ids, res.Adjustment.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	start := make(chan struct{})
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			<-start
			_, errs[i] = c.svc.ApproveAdjustment(ctx, id, fmt.Sprintf("approver-%d", i))
		}(i, id)
	}
	close(start)
	wg.Wait()
	return errors.Join(errs...)
}

func (c *ledgerTestContext) iRecordAMovement(typ string, qty int, code, warehouse string) error {
	res, err := c.svc.RecordMovement(context.Background(), app.RecordMovementRequest{
		ItemCode: code, Type: typ, Quantity: int64(qty), ToLocation: &core.Location{Warehouse: warehouse}, CreatedBy: "clerk",
	})
	if err != nil {
		return err
	}
	c.movement = res.Movement
	return nil
}

func (c *ledgerTestContext) iCancelTheMovement() error {
	res, err := c.svc.CancelMovement(context.Background(), c.movement.ID)
	if err != nil {
		return err
	}
	c.movement = res.Movement
	return nil
}

func (c *ledgerTestContext) theApprovalSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected approval to succeed, got %v", c.err)
	}
	return nil
}

func (c *ledgerTestContext) theApprovalFailsWith(message string) error {
	if c.err == nil {
		return errors.New("expected approval to fail but it succeeded")
	}
	if !strings.Contains(c.err.Error(), message) {
		return fmt.Errorf("expected error containing %q, got %q", message, c.err.Error())
	}
	return nil
}

func (c *ledgerTestContext) itemHasQuantity(code string, qty int) error {
	item, err := c.svc.GetItemByCode(context.Background(), code)
	if err != nil {
		return err
	}
	if item.CurrentQuantity != int64(qty) {
		return fmt.Errorf("expected %s quantity %d, got %d", code, qty, item.CurrentQuantity)
	}
	return nil
}

func (c *ledgerTestContext) itemIsAtVersion(code string, version int) error {
	item, err := c.svc.GetItemByCode(context.Background(), code)
	if err != nil {
		return err
	}
	if item.Version != int64(version) {
		return fmt.Errorf("expected %s version %d, got %d", code, version, item.Version)
	}
	return nil
}

func (c *ledgerTestContext) theAdjustmentIs(status string) error {
	res, err := c.svc.GetAdjustment(context.Background(), c.adjustment.ID)
	if err != nil {
		return err
	}
	if string(res.Adjustment.Status) != status {
		return fmt.Errorf("expected adjustment %s, got %s", status, res.Adjustment.Status)
	}
	return nil
}

func (c *ledgerTestContext) theAdjustmentHasValueImpact(want string) error {
	res, err := c.svc.GetAdjustment(context.Background(), c.adjustment.ID)
	if err != nil {
		return err
	}
	if got := res.Adjustment.ValueImpact.String(); got != want {
		return fmt.Errorf("expected value impact %s, got %s", want, got)
	}
	return nil
}

func (c *ledgerTestContext) theMovementIs(status string) error {
	if string(c.movement.Status) != status {
		return fmt.Errorf("expected movement %s, got %s", status, c.movement.Status)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &ledgerTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an item "([^"]*)" with quantity (\d+) and unit cost "([^"]*)"$`, tc.anItemWithQuantityAndUnitCost)

	// When steps
	ctx.Step(`^I propose a (INCREASE|DECREASE) of (\d+) for "([^"]*)" with reason "([^"]*)"$`, tc.iProposeAdjustment)
	ctx.Step(`^I approve the adjustment as "([^"]*)"$`, tc.iApproveTheAdjustmentAs)
	ctx.Step(`^I reject the adjustment as "([^"]*)"$`, tc.iRejectTheAdjustmentAs)
	ctx.Step(`^I concurrently approve an INCREASE of (\d+) and a DECREASE of (\d+) for "([^"]*)"$`, tc.iConcurrentlyApprove)
	ctx.Step(`^I record a ([A-Z]+) of (\d+) for "([^"]*)" into "([^"]*)"$`, tc.iRecordAMovement)
	ctx.Step(`^I cancel the movement$`, tc.iCancelTheMovement)

	// Then steps
	ctx.Step(`^the approval succeeds$`, tc.theApprovalSucceeds)
	ctx.Step(`^the approval fails with "([^"]*)"$`, tc.theApprovalFailsWith)
	ctx.Step(`^item "([^"]*)" has quantity (\d+)$`, tc.itemHasQuantity)
	ctx.Step(`^item "([^"]*)" is at version (\d+)$`, tc.itemIsAtVersion)
	ctx.Step(`^the adjustment is ([A-Z]+)$`, tc.theAdjustmentIs)
	ctx.Step(`^the adjustment has value impact "([^"]*)"$`, tc.theAdjustmentHasValueImpact)
	ctx.Step(`^the movement is ([A-Z]+)$`, tc.theMovementIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"ledger.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
