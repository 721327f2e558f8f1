package prepurchase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvacdesk/hvacdesk/internal/platform/db"
)

// Repository is the persistence surface for the prepurchase ledger. Usage
// mutations and the used-quantity recompute run inside WithTx so the sum
// invariant cannot be observed half-applied.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Unit, error)
	List(ctx context.Context, req ListUnitsRequest) ([]Unit, int, error)
	Create(ctx context.Context, u Unit) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	GetUsage(ctx context.Context, usageID int64) (*UsageRecord, error)
	InsertUsage(ctx context.Context, rec UsageRecord) (int64, error)
	DeleteUsage(ctx context.Context, usageID int64) error
	SumUsage(ctx context.Context, unitID int64) (int, error)
	SetUsedQuantity(ctx context.Context, unitID int64, used int) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const unitColumns = `
	id, product_name, model, manufacturer, quantity, used_quantity,
	unit_price, purchase_date, supplier, notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Unit, error) {
	query := fmt.Sprintf("SELECT %s FROM prepurchase_units WHERE id = $1", unitColumns)
	u, err := scanUnit(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadUsages(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repository) List(ctx context.Context, req ListUnitsRequest) ([]Unit, int, error) {
	var (
		conds []string
		args  []any
	)
	if req.ProductName != nil {
		args = append(args, "%"+*req.ProductName+"%")
		conds = append(conds, fmt.Sprintf("product_name ILIKE $%d", len(args)))
	}
	if req.AvailableOnly {
		conds = append(conds, "used_quantity < quantity")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM prepurchase_units"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, req.Limit, req.Offset)
	query := fmt.Sprintf(
		"SELECT %s FROM prepurchase_units%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		unitColumns, where, len(args)-1, len(args),
	)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	units := make([]Unit, 0, req.Limit)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, 0, err
		}
		units = append(units, *u)
	}
	return units, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, u Unit) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO prepurchase_units
			(product_name, model, manufacturer, quantity, used_quantity,
			 unit_price, purchase_date, supplier, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, now(), now())
		RETURNING id`,
		u.ProductName, u.Model, u.Manufacturer, u.Quantity,
		u.UnitPrice, dateOrNil(u.PurchaseDate), u.Supplier, u.Notes,
	).Scan(&id)
	return id, err
}

var updatableColumns = map[string]bool{
	"product_name":  true,
	"model":         true,
	"manufacturer":  true,
	"quantity":      true,
	"unit_price":    true,
	"purchase_date": true,
	"supplier":      true,
	"notes":         true,
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	sets := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+1)
	for col, val := range updates {
		if !updatableColumns[col] {
			return fmt.Errorf("column %q is not updatable", col)
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE prepurchase_units SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM usage_records WHERE unit_id = $1", id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, "DELETE FROM prepurchase_units WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetUsage(ctx context.Context, usageID int64) (*UsageRecord, error) {
	var rec UsageRecord
	err := r.db.QueryRow(ctx, `
		SELECT id, unit_id, site_name, used_quantity, used_date, notes, created_at
		FROM usage_records WHERE id = $1`, usageID,
	).Scan(&rec.ID, &rec.UnitID, &rec.SiteName, &rec.UsedQuantity, &rec.UsedDate, &rec.Notes, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUsageNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *repository) InsertUsage(ctx context.Context, rec UsageRecord) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO usage_records (unit_id, site_name, used_quantity, used_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id`,
		rec.UnitID, rec.SiteName, rec.UsedQuantity, rec.UsedDate, rec.Notes,
	).Scan(&id)
	return id, err
}

func (r *repository) DeleteUsage(ctx context.Context, usageID int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM usage_records WHERE id = $1", usageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUsageNotFound
	}
	return nil
}

func (r *repository) SumUsage(ctx context.Context, unitID int64) (int, error) {
	var sum int
	err := r.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(used_quantity), 0) FROM usage_records WHERE unit_id = $1",
		unitID,
	).Scan(&sum)
	return sum, err
}

func (r *repository) SetUsedQuantity(ctx context.Context, unitID int64, used int) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE prepurchase_units SET used_quantity = $1, updated_at = now() WHERE id = $2",
		used, unitID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) loadUsages(ctx context.Context, u *Unit) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, unit_id, site_name, used_quantity, used_date, notes, created_at
		FROM usage_records WHERE unit_id = $1 ORDER BY used_date, id`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rec UsageRecord
		if err := rows.Scan(&rec.ID, &rec.UnitID, &rec.SiteName, &rec.UsedQuantity,
			&rec.UsedDate, &rec.Notes, &rec.CreatedAt); err != nil {
			return err
		}
		u.Usages = append(u.Usages, rec)
	}
	return rows.Err()
}

func scanUnit(row pgx.Row) (*Unit, error) {
	var (
		u            Unit
		purchaseDate pgtype.Date
	)
	err := row.Scan(
		&u.ID, &u.ProductName, &u.Model, &u.Manufacturer, &u.Quantity, &u.UsedQuantity,
		&u.UnitPrice, &purchaseDate, &u.Supplier, &u.Notes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if purchaseDate.Valid {
		t := purchaseDate.Time
		u.PurchaseDate = &t
	}
	return &u, nil
}

func dateOrNil(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}
