// Package memory is an in-process core.Store. Transactions read committed
// state, buffer their writes and validate every precondition they relied on
// (item versions, workflow statuses, code uniqueness) under a short critical
// section at commit. A failed precondition aborts the whole transaction with
// core.ErrConflict, mirroring what the SQL stores report.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"inventory-ledger/internal/core"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu          sync.Mutex
	items       map[string]core.InventoryItem
	codes       map[string]string // item_code → id
	movements   map[string]core.InventoryMovement
	adjustments map[string]core.InventoryAdjustment
}

func NewStore() *Store {
	return &Store{
		items:       make(map[string]core.InventoryItem),
		codes:       make(map[string]string),
		movements:   make(map[string]core.InventoryMovement),
		adjustments: make(map[string]core.InventoryAdjustment),
	}
}

// InTx runs fn against a buffered transaction and commits it if fn returns nil
// and ctx is still live.
func (s *Store) InTx(ctx context.Context, fn func(tx core.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

type tx struct {
	s *Store

	items       map[string]core.InventoryItem
	movements   map[string]core.InventoryMovement
	adjustments map[string]core.InventoryAdjustment

	// preconditions checked against committed state at commit time
	itemVersion      map[string]int64
	movementStatus   map[string]core.MovementStatus
	adjustmentStatus map[string]core.AdjustmentStatus
	newItems         map[string]bool
	newMovements     map[string]bool
	newAdjustments   map[string]bool
}

func newTx(s *Store) *tx {
	return &tx{
		s:                s,
		items:            make(map[string]core.InventoryItem),
		movements:        make(map[string]core.InventoryMovement),
		adjustments:      make(map[string]core.InventoryAdjustment),
		itemVersion:      make(map[string]int64),
		movementStatus:   make(map[string]core.MovementStatus),
		adjustmentStatus: make(map[string]core.AdjustmentStatus),
		newItems:         make(map[string]bool),
		newMovements:     make(map[string]bool),
		newAdjustments:   make(map[string]bool),
	}
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, want := range t.itemVersion {
		cur, ok := s.items[id]
		if !ok || cur.Version != want {
			return fmt.Errorf("item %s modified concurrently: %w", id, core.ErrConflict)
		}
	}
	for id, want := range t.movementStatus {
		cur, ok := s.movements[id]
		if !ok || cur.Status != want {
			return fmt.Errorf("movement %s modified concurrently: %w", id, core.ErrConflict)
		}
	}
	for id, want := range t.adjustmentStatus {
		cur, ok := s.adjustments[id]
		if !ok || cur.Status != want {
			return fmt.Errorf("adjustment %s modified concurrently: %w", id, core.ErrConflict)
		}
	}
	for id := range t.newItems {
		item := t.items[id]
		if _, taken := s.codes[item.ItemCode]; taken {
			return fmt.Errorf("item code %s: %w", item.ItemCode, core.ErrDuplicateCode)
		}
	}
	for _, item := range t.items {
		if item.CurrentQuantity < 0 {
			return fmt.Errorf("item %s: %w", item.ItemCode, core.ErrInvariantViolation)
		}
	}

	for id, item := range t.items {
		s.items[id] = item
		s.codes[item.ItemCode] = id
	}
	for id, m := range t.movements {
		s.movements[id] = m
	}
	for id, a := range t.adjustments {
		s.adjustments[id] = a
	}
	return nil
}

// ── Items ─────────────────────────────────────────────────────────────────────

func (t *tx) GetItem(ctx context.Context, id string) (*core.InventoryItem, error) {
	if item, ok := t.items[id]; ok {
		return &item, nil
	}
	t.s.mu.Lock()
	item, ok := t.s.items[id]
	t.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
	}
	return &item, nil
}

func (t *tx) GetItemByCode(ctx context.Context, code string) (*core.InventoryItem, error) {
	for _, item := range t.items {
		if item.ItemCode == code {
			return &item, nil
		}
	}
	t.s.mu.Lock()
	id, ok := t.s.codes[code]
	t.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("item code %s: %w", code, core.ErrNotFound)
	}
	return t.GetItem(ctx, id)
}

func (t *tx) ListItems(ctx context.Context, f core.ItemFilter) ([]core.InventoryItem, error) {
	t.s.mu.Lock()
	all := make([]core.InventoryItem, 0, len(t.s.items))
	for _, item := range t.s.items {
		all = append(all, item)
	}
	t.s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ItemCode < all[j].ItemCode })

	var out []core.InventoryItem
	for _, item := range all {
		if f.Status != "" && item.Status() != f.Status {
			continue
		}
		out = append(out, item)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (t *tx) InsertItem(ctx context.Context, item *core.InventoryItem) error {
	if _, err := t.GetItemByCode(ctx, item.ItemCode); err == nil {
		return fmt.Errorf("item code %s: %w", item.ItemCode, core.ErrDuplicateCode)
	}
	t.items[item.ID] = *item
	t.newItems[item.ID] = true
	return nil
}

func (t *tx) UpdateItemQuantity(ctx context.Context, id string, newQty, expectedVersion int64, at time.Time) error {
	item, err := t.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.Version != expectedVersion {
		return fmt.Errorf("item %s at version %d, expected %d: %w", id, item.Version, expectedVersion, core.ErrConflict)
	}
	if !t.newItems[id] {
		if _, seen := t.itemVersion[id]; !seen {
			t.itemVersion[id] = expectedVersion
		}
	}
	item.CurrentQuantity = newQty
	item.Version = expectedVersion + 1
	item.UpdatedAt = at
	t.items[id] = *item
	return nil
}

// ── Movements ─────────────────────────────────────────────────────────────────

func (t *tx) GetMovement(ctx context.Context, id string) (*core.InventoryMovement, error) {
	if m, ok := t.movements[id]; ok {
		return &m, nil
	}
	t.s.mu.Lock()
	m, ok := t.s.movements[id]
	t.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("movement %s: %w", id, core.ErrNotFound)
	}
	return &m, nil
}

func (t *tx) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.InventoryMovement, error) {
	t.s.mu.Lock()
	var out []core.InventoryMovement
	for _, m := range t.s.movements {
		if f.ItemID != "" && m.ItemID != f.ItemID {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		out = append(out, m)
	}
	t.s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return page(out, f.Limit, f.Offset), nil
}

func (t *tx) InsertMovement(ctx context.Context, m *core.InventoryMovement) error {
	t.movements[m.ID] = *m
	t.newMovements[m.ID] = true
	return nil
}

func (t *tx) TransitionMovement(ctx context.Context, id string, from, to core.MovementStatus, at time.Time) error {
	m, err := t.GetMovement(ctx, id)
	if err != nil {
		return err
	}
	if m.Status != from {
		return fmt.Errorf("movement %s is %s: %w", id, m.Status, core.ErrConflict)
	}
	if !t.newMovements[id] {
		if _, seen := t.movementStatus[id]; !seen {
			t.movementStatus[id] = from
		}
	}
	m.Status = to
	m.UpdatedAt = at
	t.movements[id] = *m
	return nil
}

// ── Adjustments ───────────────────────────────────────────────────────────────

func (t *tx) GetAdjustment(ctx context.Context, id string) (*core.InventoryAdjustment, error) {
	if a, ok := t.adjustments[id]; ok {
		return &a, nil
	}
	t.s.mu.Lock()
	a, ok := t.s.adjustments[id]
	t.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("adjustment %s: %w", id, core.ErrNotFound)
	}
	return &a, nil
}

func (t *tx) ListAdjustments(ctx context.Context, f core.AdjustmentFilter) ([]core.InventoryAdjustment, error) {
	t.s.mu.Lock()
	var out []core.InventoryAdjustment
	for _, a := range t.s.adjustments {
		if f.ItemID != "" && a.ItemID != f.ItemID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	t.s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return page(out, f.Limit, f.Offset), nil
}

func (t *tx) InsertAdjustment(ctx context.Context, a *core.InventoryAdjustment) error {
	t.adjustments[a.ID] = *a
	t.newAdjustments[a.ID] = true
	return nil
}

func (t *tx) CompleteAdjustment(ctx context.Context, id, approverID string, valueImpact decimal.Decimal, at time.Time) error {
	return t.closeAdjustment(ctx, id, func(a *core.InventoryAdjustment) {
		a.Status = core.AdjustmentCompleted
		a.ApproverID = &approverID
		a.ApprovedAt = &at
		a.ValueImpact = valueImpact
		a.UpdatedAt = at
	})
}

func (t *tx) RejectAdjustment(ctx context.Context, id, rejectedBy string, at time.Time) error {
	return t.closeAdjustment(ctx, id, func(a *core.InventoryAdjustment) {
		a.Status = core.AdjustmentRejected
		a.RejectedBy = &rejectedBy
		a.RejectedAt = &at
		a.UpdatedAt = at
	})
}

func (t *tx) closeAdjustment(ctx context.Context, id string, apply func(a *core.InventoryAdjustment)) error {
	a, err := t.GetAdjustment(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != core.AdjustmentPending {
		return fmt.Errorf("adjustment %s is %s: %w", id, a.Status, core.ErrConflict)
	}
	if !t.newAdjustments[id] {
		if _, seen := t.adjustmentStatus[id]; !seen {
			t.adjustmentStatus[id] = core.AdjustmentPending
		}
	}
	apply(a)
	t.adjustments[id] = *a
	return nil
}

func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA < idB
}

func page[T any](in []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
