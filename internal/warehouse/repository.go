package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence surface for stored units. ReserveIfStored is
// the one compare-and-set primitive in the system: the status check and the
// transition to REQUESTED must be a single atomic step against the store.
type Repository interface {
	Get(ctx context.Context, id int64) (*StoredUnit, error)
	List(ctx context.Context, req ListUnitsRequest) ([]StoredUnit, int, error)
	Create(ctx context.Context, u StoredUnit) (int64, error)
	ReserveIfStored(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status UnitStatus) error
	SetReleased(ctx context.Context, id int64, info ReleaseInfo) error
	ClearRelease(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	ListRequested(ctx context.Context) ([]StoredUnit, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const unitColumns = `
	id, source_site, source_affiliate, category, model, manufacturer,
	manufacture_date, removed_date, status, warehouse_id, source_order_id,
	release_type, release_date, release_destination, release_notes,
	created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*StoredUnit, error) {
	query := fmt.Sprintf("SELECT %s FROM stored_units WHERE id = $1", unitColumns)
	u, err := scanUnit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) List(ctx context.Context, req ListUnitsRequest) ([]StoredUnit, int, error) {
	conditions := []string{"1=1"}
	var args []any
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.WarehouseID != nil {
		conditions = append(conditions, fmt.Sprintf("warehouse_id = $%d", argPos))
		args = append(args, *req.WarehouseID)
		argPos++
	}
	if req.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, *req.Category)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM stored_units %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM stored_units %s ORDER BY removed_date DESC NULLS LAST, id DESC LIMIT $%d OFFSET $%d",
		unitColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var units []StoredUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, 0, err
		}
		units = append(units, *u)
	}
	return units, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, u StoredUnit) (int64, error) {
	var warehouseID, sourceOrderID pgtype.Int8
	if u.WarehouseID != nil {
		warehouseID = pgtype.Int8{Int64: *u.WarehouseID, Valid: true}
	}
	if u.SourceOrderID != nil {
		sourceOrderID = pgtype.Int8{Int64: *u.SourceOrderID, Valid: true}
	}
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO stored_units (
			source_site, source_affiliate, category, model, manufacturer,
			manufacture_date, removed_date, status, warehouse_id, source_order_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
		RETURNING id`,
		u.SourceSite, u.SourceAffiliate, u.Category, u.Model, u.Manufacturer,
		dateOrNil(u.ManufactureDate), dateOrNil(u.RemovedDate), u.Status,
		warehouseID, sourceOrderID,
	).Scan(&id)
	return id, err
}

// ReserveIfStored transitions STORED → REQUESTED as a conditional update.
// Returns false when the unit exists but was not in STORED status, so two
// operators racing on the same unit cannot both succeed.
func (r *repository) ReserveIfStored(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stored_units SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		UnitRequested, id, UnitStored)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status UnitStatus) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE stored_units SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetReleased(ctx context.Context, id int64, info ReleaseInfo) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stored_units SET
			status = $1, release_type = $2, release_date = $3,
			release_destination = $4, release_notes = $5, updated_at = NOW()
		WHERE id = $6`,
		UnitReleased, info.Type, info.Date, textOrNil(info.Destination), textOrNil(info.Notes), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRelease reverts RELEASED → STORED and blanks every release field. The
// rollback is always full, never partial.
func (r *repository) ClearRelease(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stored_units SET
			status = $1, release_type = NULL, release_date = NULL,
			release_destination = NULL, release_notes = NULL, updated_at = NOW()
		WHERE id = $2`,
		UnitStored, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM stored_units WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListRequested(ctx context.Context) ([]StoredUnit, error) {
	query := fmt.Sprintf("SELECT %s FROM stored_units WHERE status = $1 ORDER BY id", unitColumns)
	rows, err := r.pool.Query(ctx, query, UnitRequested)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []StoredUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

func scanUnit(row pgx.Row) (*StoredUnit, error) {
	var u StoredUnit
	var manufactureDate, removedDate, releaseDate pgtype.Date
	var warehouseID, sourceOrderID pgtype.Int8
	var releaseType, releaseDestination, releaseNotes pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&u.ID, &u.SourceSite, &u.SourceAffiliate, &u.Category, &u.Model, &u.Manufacturer,
		&manufactureDate, &removedDate, &u.Status, &warehouseID, &sourceOrderID,
		&releaseType, &releaseDate, &releaseDestination, &releaseNotes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ManufactureDate = dateToPtr(manufactureDate)
	u.RemovedDate = dateToPtr(removedDate)
	if warehouseID.Valid {
		u.WarehouseID = &warehouseID.Int64
	}
	if sourceOrderID.Valid {
		u.SourceOrderID = &sourceOrderID.Int64
	}
	if releaseType.Valid {
		t := ReleaseType(releaseType.String)
		u.ReleaseType = &t
	}
	if d := dateToPtr(releaseDate); d != nil {
		u.ReleaseDate = d
	}
	if releaseDestination.Valid {
		u.ReleaseDestination = &releaseDestination.String
	}
	if releaseNotes.Valid {
		u.ReleaseNotes = &releaseNotes.String
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		u.UpdatedAt = updatedAt.Time
	}
	return &u, nil
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
