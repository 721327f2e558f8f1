package settlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvacdesk/hvacdesk/internal/workorders"
)

// Repository reads and writes only the installer settlement fields of
// work_orders. The order lifecycle itself stays with the work order feature.
type Repository interface {
	GetSettlement(ctx context.Context, orderID int64) (*OrderSettlement, error)
	UpdateSettlement(ctx context.Context, orderID int64, status workorders.SettlementStatus, month *string) error
	ListForMonth(ctx context.Context, month string) ([]OrderFinancials, error)
	ListMonths(ctx context.Context) ([]string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) GetSettlement(ctx context.Context, orderID int64) (*OrderSettlement, error) {
	var (
		s        OrderSettlement
		complete pgtype.Date
		month    pgtype.Text
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, doc_number, business_name, status, install_complete_date,
		       s1_settlement_status, s1_settlement_month
		FROM work_orders WHERE id = $1`, orderID,
	).Scan(&s.OrderID, &s.DocNumber, &s.BusinessName, &s.OrderStatus, &complete, &s.Status, &month)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if complete.Valid {
		t := complete.Time
		s.InstallComplete = &t
	}
	if month.Valid {
		s.Month = &month.String
	}
	return &s, nil
}

func (r *repository) UpdateSettlement(ctx context.Context, orderID int64, status workorders.SettlementStatus, month *string) error {
	monthVal := pgtype.Text{}
	if month != nil {
		monthVal = pgtype.Text{String: *month, Valid: true}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE work_orders
		SET s1_settlement_status = $1, s1_settlement_month = $2, updated_at = now()
		WHERE id = $3`,
		string(status), monthVal, orderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) ListForMonth(ctx context.Context, month string) ([]OrderFinancials, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.doc_number, o.business_name, o.s1_settlement_status,
		       COALESCE(o.s1_settlement_month, to_char(o.install_complete_date, 'YYYY-MM')),
		       COALESCE(o.quote_equipment_subtotal, 0),
		       COALESCE(o.quote_install_subtotal, 0),
		       COALESCE(o.quote_rounding_adjustment, 0),
		       COALESCE((SELECT SUM(e.total_price) FROM equipment_items e WHERE e.work_order_id = o.id), 0)
		FROM work_orders o
		WHERE o.s1_settlement_status IN ('IN_PROGRESS', 'SETTLED')
		  AND COALESCE(o.s1_settlement_month, to_char(o.install_complete_date, 'YYYY-MM')) = $1
		ORDER BY o.doc_number`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderFinancials
	for rows.Next() {
		var f OrderFinancials
		if err := rows.Scan(&f.OrderID, &f.DocNumber, &f.BusinessName, &f.Status,
			&f.EffectiveMonth, &f.EquipmentSubtotal, &f.InstallSubtotal,
			&f.RoundingAdjustment, &f.PurchaseCost); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) ListMonths(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT COALESCE(s1_settlement_month, to_char(install_complete_date, 'YYYY-MM')) AS month
		FROM work_orders
		WHERE s1_settlement_status IN ('IN_PROGRESS', 'SETTLED')
		  AND COALESCE(s1_settlement_month, to_char(install_complete_date, 'YYYY-MM')) IS NOT NULL
		ORDER BY month DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}
