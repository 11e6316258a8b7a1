package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-ledger/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store implements core.Store on PostgreSQL. Every InTx call is one pgx
// transaction at the pool's default isolation (READ COMMITTED); lost updates
// are prevented by the version/status predicates on each UPDATE, not by locks.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InTx(ctx context.Context, fn func(tx core.StoreTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

const (
	itemCodeUniqueConstraint    = "inventory_items_item_code_key"
	itemQuantityCheckConstraint = "inventory_items_quantity_non_negative"
)

// mapError translates Postgres failures into the core taxonomy.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return fmt.Errorf("%s: %w", pgErr.Message, core.ErrConflict)
	case "23505":
		if pgErr.ConstraintName == itemCodeUniqueConstraint {
			return fmt.Errorf("%s: %w", pgErr.Detail, core.ErrDuplicateCode)
		}
	case "23514":
		if pgErr.ConstraintName == itemQuantityCheckConstraint {
			return fmt.Errorf("%s: %w", pgErr.Message, core.ErrInvariantViolation)
		}
	case "22P02": // invalid_text_representation, e.g. a malformed uuid in a lookup
		return fmt.Errorf("%s: %w", pgErr.Message, core.ErrNotFound)
	}
	return err
}

type pgTx struct {
	tx pgx.Tx
}

type scanner interface {
	Scan(dest ...any) error
}

// ── Items ─────────────────────────────────────────────────────────────────────

const itemColumns = `id, item_code, name, current_quantity, min_quantity, max_quantity,
	reorder_point, unit_cost, version, created_at, updated_at`

// stockStatusExpr mirrors core.InventoryItem.Status for filtering in SQL.
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

func (t *pgTx) GetItem(ctx context.Context, id string) (*core.InventoryItem, error) {
	item, err := scanItem(t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch item %s: %w", id, mapError(err))
	}
	return item, nil
}

func (t *pgTx) GetItemByCode(ctx context.Context, code string) (*core.InventoryItem, error) {
	item, err := scanItem(t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE item_code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item code %s: %w", code, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch item %s: %w", code, mapError(err))
	}
	return item, nil
}

func (t *pgTx) ListItems(ctx context.Context, f core.ItemFilter) ([]core.InventoryItem, error) {
	q := newQuery(`SELECT ` + itemColumns + ` FROM inventory_items`)
	if f.Status != "" {
		q.where(stockStatusExpr+` = `+q.arg(string(f.Status)))
	}
	q.tail(`ORDER BY item_code`, f.Limit, f.Offset)

	rows, err := t.tx.Query(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", mapError(err))
	}
	defer rows.Close()

	var items []core.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (t *pgTx) InsertItem(ctx context.Context, i *core.InventoryItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_items (id, item_code, name, current_quantity, min_quantity, max_quantity,
		                             reorder_point, unit_cost, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		i.ID, i.ItemCode, i.Name, i.CurrentQuantity, i.MinQuantity, i.MaxQuantity,
		i.ReorderPoint, i.UnitCost, i.Version, i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item %s: %w", i.ItemCode, mapError(err))
	}
	return nil
}

func (t *pgTx) UpdateItemQuantity(ctx context.Context, id string, newQty, expectedVersion int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE inventory_items
		SET current_quantity = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newQty, at, id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s version %d is stale: %w", id, expectedVersion, core.ErrConflict)
	}
	return nil
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

func (t *pgTx) GetMovement(ctx context.Context, id string) (*core.InventoryMovement, error) {
	m, err := scanMovement(t.tx.QueryRow(ctx, `SELECT `+movementColumns+` FROM inventory_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("movement %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch movement %s: %w", id, mapError(err))
	}
	return m, nil
}

func (t *pgTx) ListMovements(ctx context.Context, f core.MovementFilter) ([]core.InventoryMovement, error) {
	q := newQuery(`SELECT ` + movementColumns + ` FROM inventory_movements`)
	if f.ItemID != "" {
		q.where(`item_id = ` + q.arg(f.ItemID))
	}
	if f.Status != "" {
		q.where(`status = ` + q.arg(string(f.Status)))
	}
	if f.Type != "" {
		q.where(`type = ` + q.arg(string(f.Type)))
	}
	q.tail(`ORDER BY created_at DESC, id`, f.Limit, f.Offset)

	rows, err := t.tx.Query(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", mapError(err))
	}
	defer rows.Close()

	var out []core.InventoryMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertMovement(ctx context.Context, m *core.InventoryMovement) error {
	from, err := encodeLocation(m.FromLocation)
	if err != nil {
		return err
	}
	to, err := encodeLocation(m.ToLocation)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO inventory_movements (id, reference_number, type, item_id, quantity, from_location,
		                                 to_location, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.ReferenceNumber, string(m.Type), m.ItemID, m.Quantity, from, to,
		string(m.Status), m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", mapError(err))
	}
	return nil
}

func (t *pgTx) TransitionMovement(ctx context.Context, id string, from, to core.MovementStatus, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE inventory_movements SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(to), at, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update movement %s: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("movement %s is no longer %s: %w", id, from, core.ErrConflict)
	}
	return nil
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

func (t *pgTx) GetAdjustment(ctx context.Context, id string) (*core.InventoryAdjustment, error) {
	a, err := scanAdjustment(t.tx.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM inventory_adjustments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("adjustment %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch adjustment %s: %w", id, mapError(err))
	}
	return a, nil
}

func (t *pgTx) ListAdjustments(ctx context.Context, f core.AdjustmentFilter) ([]core.InventoryAdjustment, error) {
	q := newQuery(`SELECT ` + adjustmentColumns + ` FROM inventory_adjustments`)
	if f.ItemID != "" {
		q.where(`item_id = ` + q.arg(f.ItemID))
	}
	if f.Status != "" {
		q.where(`status = ` + q.arg(string(f.Status)))
	}
	q.tail(`ORDER BY created_at DESC, id`, f.Limit, f.Offset)

	rows, err := t.tx.Query(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", mapError(err))
	}
	defer rows.Close()

	var out []core.InventoryAdjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertAdjustment(ctx context.Context, a *core.InventoryAdjustment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_adjustments (id, item_id, type, quantity, reason, status, value_impact,
		                                   created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ItemID, string(a.Type), a.Quantity, a.Reason, string(a.Status), a.ValueImpact,
		a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert adjustment: %w", mapError(err))
	}
	return nil
}

func (t *pgTx) CompleteAdjustment(ctx context.Context, id, approverID string, valueImpact decimal.Decimal, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE inventory_adjustments
		SET status = 'COMPLETED', approver_id = $1, approved_at = $2, value_impact = $3, updated_at = $2
		WHERE id = $4 AND status = 'PENDING'`,
		approverID, at, valueImpact, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete adjustment %s: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjustment %s is no longer PENDING: %w", id, core.ErrConflict)
	}
	return nil
}

func (t *pgTx) RejectAdjustment(ctx context.Context, id, rejectedBy string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE inventory_adjustments
		SET status = 'REJECTED', rejected_by = $1, rejected_at = $2, updated_at = $2
		WHERE id = $3 AND status = 'PENDING'`,
		rejectedBy, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to reject adjustment %s: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjustment %s is no longer PENDING: %w", id, core.ErrConflict)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// encodeLocation returns a JSON text parameter for a JSONB column, or nil for SQL NULL.
func encodeLocation(l *core.Location) (any, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode location: %w", err)
	}
	return string(b), nil
}

func decodeLocation(b []byte) (*core.Location, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var l core.Location
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("failed to decode location: %w", err)
	}
	return &l, nil
}

// query accumulates WHERE conditions with positional $n arguments.
type query struct {
	base   string
	conds  []string
	suffix string
	args   []any
}

func newQuery(base string) *query { return &query{base: base} }

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) where(cond string) { q.conds = append(q.conds, cond) }

func (q *query) tail(orderBy string, limit, offset int) {
	q.suffix = orderBy + ` LIMIT ` + q.arg(limit)
	if offset > 0 {
		q.suffix += ` OFFSET ` + q.arg(offset)
	}
}

func (q *query) sql() string {
	var b strings.Builder
	b.WriteString(q.base)
	if len(q.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conds, " AND "))
	}
	b.WriteString(" ")
	b.WriteString(q.suffix)
	return b.String()
}
