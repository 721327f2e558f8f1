package workorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvacdesk/hvacdesk/internal/platform/db"
)

// Repository is the persistence surface for work orders. The core issues no
// raw queries outside this interface; it is agnostic to the backing store as
// long as read-your-writes holds within one logical operation.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*WorkOrder, error)
	List(ctx context.Context, req ListWorkOrdersRequest) ([]WorkOrder, int, error)
	Create(ctx context.Context, o WorkOrder) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error
	SetInstallComplete(ctx context.Context, id int64, date time.Time) error
	SetDelivered(ctx context.Context, id int64, at time.Time) error
	InsertItem(ctx context.Context, item WorkItem) (int64, error)
	InsertEquipment(ctx context.Context, item EquipmentItem) (int64, error)
	DeleteItems(ctx context.Context, orderID int64) error
	DeleteEquipment(ctx context.Context, orderID int64) error
	Delete(ctx context.Context, id int64) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
	FindActiveOrderForUnit(ctx context.Context, unitID int64) (int64, bool, error)
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

const orderColumns = `
	id, doc_number, affiliate, business_name, site_address, status,
	order_date, requested_install_date, install_schedule_date, install_complete_date,
	cancelled_at, supplier_order_number, delivered_at,
	s1_settlement_status, s1_settlement_month,
	quote_equipment_subtotal, quote_install_subtotal, quote_rounding_adjustment,
	notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*WorkOrder, error) {
	query := fmt.Sprintf("SELECT %s FROM work_orders WHERE id = $1", orderColumns)
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) loadChildren(ctx context.Context, o *WorkOrder) error {
	itemRows, err := r.db.Query(ctx, `
		SELECT id, work_order_id, work_type, category, model, size, quantity, stored_unit_id, line_order
		FROM work_items WHERE work_order_id = $1 ORDER BY line_order, id`, o.ID)
	if err != nil {
		return err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item WorkItem
		var storedUnit pgtype.Int8
		if err := itemRows.Scan(&item.ID, &item.WorkOrderID, &item.WorkType, &item.Category,
			&item.Model, &item.Size, &item.Quantity, &storedUnit, &item.LineOrder); err != nil {
			return err
		}
		if storedUnit.Valid {
			item.StoredUnitID = &storedUnit.Int64
		}
		o.Items = append(o.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	eqRows, err := r.db.Query(ctx, `
		SELECT id, work_order_id, name, model, supplier, order_number,
		       order_date, requested_delivery_date, scheduled_delivery_date, confirmed_delivery_date,
		       quantity, unit_price, total_price, warehouse_id, line_order
		FROM equipment_items WHERE work_order_id = $1 ORDER BY line_order, id`, o.ID)
	if err != nil {
		return err
	}
	defer eqRows.Close()
	for eqRows.Next() {
		var eq EquipmentItem
		var orderDate, requested, scheduled, confirmed pgtype.Date
		var warehouseID pgtype.Int8
		if err := eqRows.Scan(&eq.ID, &eq.WorkOrderID, &eq.Name, &eq.Model, &eq.Supplier, &eq.OrderNumber,
			&orderDate, &requested, &scheduled, &confirmed,
			&eq.Quantity, &eq.UnitPrice, &eq.TotalPrice, &warehouseID, &eq.LineOrder); err != nil {
			return err
		}
		eq.OrderDate = dateToPtr(orderDate)
		eq.RequestedDelivery = dateToPtr(requested)
		eq.ScheduledDelivery = dateToPtr(scheduled)
		eq.ConfirmedDelivery = dateToPtr(confirmed)
		if warehouseID.Valid {
			eq.WarehouseID = &warehouseID.Int64
		}
		o.Equipment = append(o.Equipment, eq)
	}
	return eqRows.Err()
}

func (r *repository) List(ctx context.Context, req ListWorkOrdersRequest) ([]WorkOrder, int, error) {
	conditions := []string{"1=1"}
	var args []any
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.ActiveOnly {
		conditions = append(conditions, "status NOT IN ('SETTLED', 'CANCELLED')")
	}
	if req.Affiliate != nil {
		conditions = append(conditions, fmt.Sprintf("affiliate = $%d", argPos))
		args = append(args, *req.Affiliate)
		argPos++
	}
	if req.BusinessName != nil {
		conditions = append(conditions, fmt.Sprintf("business_name ILIKE $%d", argPos))
		args = append(args, "%"+*req.BusinessName+"%")
		argPos++
	}
	if req.Month != nil {
		conditions = append(conditions, fmt.Sprintf("to_char(install_complete_date, 'YYYY-MM') = $%d", argPos))
		args = append(args, *req.Month)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM work_orders %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM work_orders %s ORDER BY order_date DESC NULLS LAST, id DESC LIMIT $%d OFFSET $%d",
		orderColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []WorkOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range orders {
		if err := r.loadChildren(ctx, &orders[i]); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

func (r *repository) Create(ctx context.Context, o WorkOrder) (int64, error) {
	var quoteEquip, quoteInstall, quoteAdjust pgtype.Int8
	if o.Quote != nil {
		quoteEquip = pgtype.Int8{Int64: o.Quote.EquipmentSubtotal, Valid: true}
		quoteInstall = pgtype.Int8{Int64: o.Quote.InstallSubtotal, Valid: true}
		quoteAdjust = pgtype.Int8{Int64: o.Quote.RoundingAdjustment, Valid: true}
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO work_orders (
			doc_number, affiliate, business_name, site_address, status,
			order_date, requested_install_date, supplier_order_number,
			s1_settlement_status,
			quote_equipment_subtotal, quote_install_subtotal, quote_rounding_adjustment,
			notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
		RETURNING id`,
		o.DocNumber, o.Affiliate, o.BusinessName, textOrNil(o.SiteAddress), o.Status,
		dateOrNil(o.OrderDate), dateOrNil(o.RequestedInstall), o.SupplierOrderNumber,
		o.S1SettlementStatus,
		quoteEquip, quoteInstall, quoteAdjust,
		textOrNil(o.Notes),
	).Scan(&id)
	return id, err
}

var updatableColumns = map[string]string{
	"status":                    "status",
	"site_address":              "site_address",
	"order_date":                "order_date",
	"requested_install_date":    "requested_install_date",
	"install_schedule_date":     "install_schedule_date",
	"supplier_order_number":     "supplier_order_number",
	"notes":                     "notes",
	"quote_equipment_subtotal":  "quote_equipment_subtotal",
	"quote_install_subtotal":    "quote_install_subtotal",
	"quote_rounding_adjustment": "quote_rounding_adjustment",
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE work_orders SET updated_at = NOW()"
	var args []any
	argPos := 1
	for key, column := range updatableColumns {
		if v, ok := updates[key]; ok {
			query += fmt.Sprintf(", %s = $%d", column, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	query := "UPDATE work_orders SET status = $1, updated_at = NOW() WHERE id = $2"
	if status == StatusCancelled {
		query = "UPDATE work_orders SET status = $1, cancelled_at = $3, updated_at = NOW() WHERE id = $2"
		tag, err := r.db.Exec(ctx, query, status, id, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetInstallComplete(ctx context.Context, id int64, date time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE work_orders SET install_complete_date = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		date, StatusCompleted, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetDelivered(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE work_orders SET delivered_at = $1, updated_at = NOW() WHERE id = $2", at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item WorkItem) (int64, error) {
	var storedUnit pgtype.Int8
	if item.StoredUnitID != nil {
		storedUnit = pgtype.Int8{Int64: *item.StoredUnitID, Valid: true}
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO work_items (work_order_id, work_type, category, model, size, quantity, stored_unit_id, line_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		item.WorkOrderID, item.WorkType, item.Category, item.Model, item.Size,
		item.Quantity, storedUnit, item.LineOrder,
	).Scan(&id)
	return id, err
}

func (r *repository) InsertEquipment(ctx context.Context, eq EquipmentItem) (int64, error) {
	var warehouseID pgtype.Int8
	if eq.WarehouseID != nil {
		warehouseID = pgtype.Int8{Int64: *eq.WarehouseID, Valid: true}
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO equipment_items (
			work_order_id, name, model, supplier, order_number,
			order_date, requested_delivery_date, scheduled_delivery_date, confirmed_delivery_date,
			quantity, unit_price, total_price, warehouse_id, line_order
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id`,
		eq.WorkOrderID, eq.Name, eq.Model, eq.Supplier, eq.OrderNumber,
		dateOrNil(eq.OrderDate), dateOrNil(eq.RequestedDelivery),
		dateOrNil(eq.ScheduledDelivery), dateOrNil(eq.ConfirmedDelivery),
		eq.Quantity, eq.UnitPrice, eq.TotalPrice, warehouseID, eq.LineOrder,
	).Scan(&id)
	return id, err
}

func (r *repository) DeleteItems(ctx context.Context, orderID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM work_items WHERE work_order_id = $1", orderID)
	return err
}

func (r *repository) DeleteEquipment(ctx context.Context, orderID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM equipment_items WHERE work_order_id = $1", orderID)
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	// Items and equipment are owned children; stored units referenced by
	// reinstall items are not, and survive the delete.
	if err := r.DeleteItems(ctx, id); err != nil {
		return err
	}
	if err := r.DeleteEquipment(ctx, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, "DELETE FROM work_orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	// WO-{YY}{MM}-{SEQ}. The per-month counter only moves forward: the
	// upsert is atomic under concurrent creates, and deleting an order
	// never puts its number back in circulation.
	month := date.Format("0601")
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO work_order_counters (month_key, seq)
		VALUES ($1, 1)
		ON CONFLICT (month_key) DO UPDATE SET seq = work_order_counters.seq + 1
		RETURNING seq`, month).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("WO-%s-%04d", month, seq), nil
}

// FindActiveOrderForUnit resolves the weak back-reference from a stored unit
// to the live order reserving it by scanning reinstall work items. At most one
// active order may hold the reference; the reservation CAS enforces that.
func (r *repository) FindActiveOrderForUnit(ctx context.Context, unitID int64) (int64, bool, error) {
	var orderID int64
	err := r.db.QueryRow(ctx, `
		SELECT wo.id
		FROM work_items wi
		JOIN work_orders wo ON wo.id = wi.work_order_id
		WHERE wi.stored_unit_id = $1
		  AND wi.work_type = $2
		  AND wo.status <> 'CANCELLED'
		ORDER BY wo.id
		LIMIT 1`, unitID, WorkTypeReinstallFromStock).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return orderID, true, nil
}

func scanOrder(row pgx.Row) (*WorkOrder, error) {
	var o WorkOrder
	var siteAddress, settlementMonth, notes pgtype.Text
	var orderDate, requestedInstall, installSchedule, installComplete pgtype.Date
	var cancelledAt, deliveredAt, createdAt, updatedAt pgtype.Timestamptz
	var quoteEquip, quoteInstall, quoteAdjust pgtype.Int8

	err := row.Scan(
		&o.ID, &o.DocNumber, &o.Affiliate, &o.BusinessName, &siteAddress, &o.Status,
		&orderDate, &requestedInstall, &installSchedule, &installComplete,
		&cancelledAt, &o.SupplierOrderNumber, &deliveredAt,
		&o.S1SettlementStatus, &settlementMonth,
		&quoteEquip, &quoteInstall, &quoteAdjust,
		&notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if siteAddress.Valid {
		o.SiteAddress = &siteAddress.String
	}
	o.OrderDate = dateToPtr(orderDate)
	o.RequestedInstall = dateToPtr(requestedInstall)
	o.InstallSchedule = dateToPtr(installSchedule)
	o.InstallComplete = dateToPtr(installComplete)
	if cancelledAt.Valid {
		o.CancelledAt = &cancelledAt.Time
	}
	if deliveredAt.Valid {
		o.DeliveredAt = &deliveredAt.Time
	}
	if settlementMonth.Valid {
		o.S1SettlementMonth = &settlementMonth.String
	}
	if quoteEquip.Valid || quoteInstall.Valid || quoteAdjust.Valid {
		o.Quote = &Quote{
			EquipmentSubtotal:  quoteEquip.Int64,
			InstallSubtotal:    quoteInstall.Int64,
			RoundingAdjustment: quoteAdjust.Int64,
		}
	}
	if notes.Valid {
		o.Notes = &notes.String
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}
	return &o, nil
}

func dateToPtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func dateOrNil(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func textOrNil(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
