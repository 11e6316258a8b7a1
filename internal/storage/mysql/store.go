package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-ledger/internal/core"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

// Store implements core.Store on MySQL/InnoDB. Conditional UPDATEs are
// current reads under REPEATABLE READ, so a stale version or status matches
// zero rows and surfaces as core.ErrConflict.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx core.StoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapError(err))
	}
	defer tx.Rollback()

	if err := fn(&myTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

const (
	errDuplicateEntry   = 1062
	errLockWaitTimeout  = 1205
	errDeadlock         = 1213
	errCheckConstraint  = 3819
	itemCodeUniqueKey   = "inventory_items_item_code_key"
	itemQuantityCheckNm = "inventory_items_quantity_non_negative"
)

func mapError(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case errDeadlock, errLockWaitTimeout:
		return fmt.Errorf("%s: %w", myErr.Message, core.ErrConflict)
	case errDuplicateEntry:
		if strings.Contains(myErr.Message, itemCodeUniqueKey) {
			return fmt.Errorf("%s: %w", myErr.Message, core.ErrDuplicateCode)
		}
	case errCheckConstraint:
		if strings.Contains(myErr.Message, itemQuantityCheckNm) {
			return fmt.Errorf("%s: %w", myErr.Message, core.ErrInvariantViolation)
		}
	}
	return err
}

type myTx struct {
	tx *sql.Tx
}

type scanner interface {
	Scan(dest ...any) error
}

// ── Items ─────────────────────────────────────────────────────────────────────

const itemColumns = `id, item_code, name, current_quantity, min_quantity, max_quantity,
	reorder_point, unit_cost, version, created_at, updated_at`

const stockStatusExpr = `CASE
	WHEN current_quantity = 0 THEN 'OUT_OF_STOCK'
	WHEN current_quantity <= reorder_point OR current_quantity < min_quantity THEN 'LOW_STOCK'
	WHEN max_quantity > 0 AND current_quantity > max_quantity THEN 'OVERSTOCK'
	ELSE 'IN_STOCK'
END`

func scanItem(row scanner) (*core.InventoryItem, error) {
	var i core.InventoryItem
	err := row.Scan(&i.ID, &i.ItemCode, &i.Name, &i.CurrentQuantity, &i.MinQuantity, &i.MaxQuantity,
		&i.ReorderPoint, &i.UnitCost, &i.Version, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (t *myTx) GetItem(ctx context.Context, id string) (*core.InventoryItem, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", mapError(err))
	}
	return item, nil
}

func (t *myTx) GetItemByCode(ctx context.Context, code string) (*core.InventoryItem, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE item_code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item code %s: %w", code, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", mapError(err))
	}
	return item, nil
}

func (t *myTx) ListItems(ctx context.Context, f core.ItemFilter) ([]core.InventoryItem, error) {
	q := newQuery(`SELECT ` + itemColumns + ` FROM inventory_items`)
	if f.Status != "" {
		q.where(stockStatusExpr+` = ?`, string(f.Status))
	}
	q.tail(`ORDER BY item_code`, f.Limit, f.Offset)

	rows, err := t.tx.QueryContext(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", mapError(err))
	}
	defer rows.Close()

	var items []core.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (t *myTx) InsertItem(ctx context.Context, i *core.InventoryItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory_items (id, item_code, name, current_quantity, min_quantity, max_quantity,
		                             reorder_point, unit_cost, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.ItemCode, i.Name, i.CurrentQuantity, i.MinQuantity, i.MaxQuantity,
		i.ReorderPoint, i.UnitCost, i.Version, i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", mapError(err))
	}
	return nil
}

func (t *myTx) UpdateItemQuantity(ctx context.Context, id string, newQty, expectedVersion int64, at time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET current_quantity = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		newQty, at, id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", mapError(err))
	}
	return affectedOne(result, fmt.Errorf("item %s version %d is stale: %w", id, expectedVersion, core.ErrConflict))
}

// ── Movements ─────────────────────────────────────────────────────────────────

const movementColumns = `id, reference_number, type, item_id, quantity, from_location, to_location,
	status, created_by, created_at, updated_at`

func scanMovement(row scanner) (*core.InventoryMovement, error) {
	var m core.InventoryMovement
	var from, to []byte
	err := row.Scan(&m.ID, &m.ReferenceNumber, &m.Type, &m.ItemID, &m.Quantity, &from, &to,
		&m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if m.FromLocation, err = decodeLocation(from); err != nil {
		return nil, err
	}
	if m.ToLocation, err = decodeLocation(to); err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *myTx) GetMovement(ctx context.Context, id string) (*core.InventoryMovement, error) {
	m, err := scanMovement(t.tx.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM inventory_movements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movement %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query movement: %w", mapError(err))
	}
	return m, nil
}

func (t *myTx) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.InventoryMovement, error) {
	q := newQuery(`SELECT ` + movementColumns + ` FROM inventory_movements`)
	if f.ItemID != "" {
		q.where(`item_id = ?`, f.ItemID)
	}
	if f.Status != "" {
		q.where(`status = ?`, string(f.Status))
	}
	if f.Type != "" {
		q.where(`type = ?`, string(f.Type))
	}
	q.tail(`ORDER BY created_at DESC, id`, f.Limit, f.Offset)

	rows, err := t.tx.QueryContext(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", mapError(err))
	}
	defer rows.Close()

	var out []core.InventoryMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (t *myTx) InsertMovement(ctx context.Context, m *core.InventoryMovement) error {
	from, err := encodeLocation(m.FromLocation)
	if err != nil {
		return err
	}
	to, err := encodeLocation(m.ToLocation)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO inventory_movements (id, reference_number, type, item_id, quantity, from_location,
		                                 to_location, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ReferenceNumber, string(m.Type), m.ItemID, m.Quantity, from, to,
		string(m.Status), m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", mapError(err))
	}
	return nil
}

func (t *myTx) TransitionMovement(ctx context.Context, id string, from, to core.MovementStatus, at time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE inventory_movements SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), at, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("update movement: %w", mapError(err))
	}
	return affectedOne(result, fmt.Errorf("movement %s is no longer %s: %w", id, from, core.ErrConflict))
}

// ── Adjustments ───────────────────────────────────────────────────────────────

const adjustmentColumns = `id, item_id, type, quantity, reason, status, approver_id, approved_at,
	rejected_by, rejected_at, value_impact, created_by, created_at, updated_at`

func scanAdjustment(row scanner) (*core.InventoryAdjustment, error) {
	var a core.InventoryAdjustment
	err := row.Scan(&a.ID, &a.ItemID, &a.Type, &a.Quantity, &a.Reason, &a.Status, &a.ApproverID, &a.ApprovedAt,
		&a.RejectedBy, &a.RejectedAt, &a.ValueImpact, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *myTx) GetAdjustment(ctx context.Context, id string) (*core.InventoryAdjustment, error) {
	a, err := scanAdjustment(t.tx.QueryRowContext(ctx, `SELECT `+adjustmentColumns+` FROM inventory_adjustments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjustment %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query adjustment: %w", mapError(err))
	}
	return a, nil
}

func (t *myTx) ListAdjustments(ctx context.Context, f core.AdjustmentFilter) ([]core.InventoryAdjustment, error) {
	q := newQuery(`SELECT ` + adjustmentColumns + ` FROM inventory_adjustments`)
	if f.ItemID != "" {
		q.where(`item_id = ?`, f.ItemID)
	}
	if f.Status != "" {
		q.where(`status = ?`, string(f.Status))
	}
	q.tail(`ORDER BY created_at DESC, id`, f.Limit, f.Offset)

	rows, err := t.tx.QueryContext(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", mapError(err))
	}
	defer rows.Close()

	var out []core.InventoryAdjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *myTx) InsertAdjustment(ctx context.Context, a *core.InventoryAdjustment) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory_adjustments (id, item_id, type, quantity, reason, status, value_impact,
		                                   created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ItemID, string(a.Type), a.Quantity, a.Reason, string(a.Status), a.ValueImpact,
		a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", mapError(err))
	}
	return nil
}

func (t *myTx) CompleteAdjustment(ctx context.Context, id, approverID string, valueImpact decimal.Decimal, at time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE inventory_adjustments
		SET status = 'COMPLETED', approver_id = ?, approved_at = ?, value_impact = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'`,
		approverID, at, valueImpact, at, id,
	)
	if err != nil {
		return fmt.Errorf("complete adjustment: %w", mapError(err))
	}
	return affectedOne(result, fmt.Errorf("adjustment %s is no longer PENDING: %w", id, core.ErrConflict))
}

func (t *myTx) RejectAdjustment(ctx context.Context, id, rejectedBy string, at time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE inventory_adjustments
		SET status = 'REJECTED', rejected_by = ?, rejected_at = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'`,
		rejectedBy, at, at, id,
	)
	if err != nil {
		return fmt.Errorf("reject adjustment: %w", mapError(err))
	}
	return affectedOne(result, fmt.Errorf("adjustment %s is no longer PENDING: %w", id, core.ErrConflict))
}

// ── helpers ───────────────────────────────────────────────────────────────────

// affectedOne reports stale when a guarded UPDATE matched no row. A driver
// failure reading the count is returned as is, never as a conflict.
func affectedOne(result sql.Result, stale error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", mapError(err))
	}
	if rows == 0 {
		return stale
	}
	return nil
}

func encodeLocation(l *core.Location) (any, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}
	return string(b), nil
}

func decodeLocation(b []byte) (*core.Location, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var l core.Location
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	return &l, nil
}

type query struct {
	base   string
	conds  []string
	suffix string
	args   []any
}

func newQuery(base string) *query { return &query{base: base} }

func (q *query) where(cond string, args ...any) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
}

func (q *query) tail(orderBy string, limit, offset int) {
	q.suffix = orderBy + ` LIMIT ?`
	q.args = append(q.args, limit)
	if offset > 0 {
		q.suffix += ` OFFSET ?`
		q.args = append(q.args, offset)
	}
}

func (q *query) sql() string {
	s := q.base
	if len(q.conds) > 0 {
		s += " WHERE " + strings.Join(q.conds, " AND ")
	}
	return s + " " + q.suffix
}
