package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacdesk/hvacdesk/internal/workorders"
)

type mockRepository struct {
	units  map[int64]*StoredUnit
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{units: make(map[int64]*StoredUnit), nextID: 1}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*StoredUnit, error) {
	u, ok := m.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListUnitsRequest) ([]StoredUnit, int, error) {
	var out []StoredUnit
	for _, u := range m.units {
		if req.Status != nil && u.Status != *req.Status {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(ctx context.Context, u StoredUnit) (int64, error) {
	id := m.nextID
	m.nextID++
	u.ID = id
	m.units[id] = &u
	return id, nil
}

func (m *mockRepository) ReserveIfStored(ctx context.Context, id int64) (bool, error) {
	u, ok := m.units[id]
	if !ok || u.Status != UnitStored {
		return false, nil
	}
	u.Status = UnitRequested
	return true, nil
}

func (m *mockRepository) SetStatus(ctx context.Context, id int64, status UnitStatus) error {
	u, ok := m.units[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *mockRepository) SetReleased(ctx context.Context, id int64, info ReleaseInfo) error {
	u, ok := m.units[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = UnitReleased
	u.ReleaseType = &info.Type
	u.ReleaseDate = &info.Date
	u.ReleaseDestination = info.Destination
	u.ReleaseNotes = info.Notes
	return nil
}

func (m *mockRepository) ClearRelease(ctx context.Context, id int64) error {
	u, ok := m.units[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = UnitStored
	u.ReleaseType = nil
	u.ReleaseDate = nil
	u.ReleaseDestination = nil
	u.ReleaseNotes = nil
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.units[id]; !ok {
		return ErrNotFound
	}
	delete(m.units, id)
	return nil
}

func (m *mockRepository) ListRequested(ctx context.Context) ([]StoredUnit, error) {
	var out []StoredUnit
	for _, u := range m.units {
		if u.Status == UnitRequested {
			out = append(out, *u)
		}
	}
	return out, nil
}

type mockOrderRef struct {
	refs map[int64]int64
}

func newMockOrderRef() *mockOrderRef {
	return &mockOrderRef{refs: make(map[int64]int64)}
}

func (m *mockOrderRef) FindActiveOrderForUnit(ctx context.Context, unitID int64) (int64, bool, error) {
	orderID, ok := m.refs[unitID]
	return orderID, ok, nil
}

func storedUnit(repo *mockRepository) int64 {
	id, _ := repo.Create(context.Background(), StoredUnit{
		SourceSite: "Old Depot",
		Category:   "ceiling",
		Model:      "CX-90",
		Status:     UnitStored,
	})
	return id
}

func TestReserve(t *testing.T) {
	repo := newMockRepository()
	orders := newMockOrderRef()
	svc := NewService(repo, orders, nil)
	ctx := context.Background()

	unitID := storedUnit(repo)

	require.NoError(t, svc.Reserve(ctx, unitID, 10))
	orders.refs[unitID] = 10

	unit, err := repo.Get(ctx, unitID)
	require.NoError(t, err)
	assert.Equal(t, UnitRequested, unit.Status)

	// A second order must not win the same unit.
	err = svc.Reserve(ctx, unitID, 11)
	assert.ErrorIs(t, err, ErrNotReservable)

	// Re-reserving by the holder is a no-op, not a conflict.
	assert.NoError(t, svc.Reserve(ctx, unitID, 10))

	assert.ErrorIs(t, svc.Reserve(ctx, 999, 10), ErrNotFound)
}

func TestFree(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, newMockOrderRef(), nil)
	ctx := context.Background()

	unitID := storedUnit(repo)
	require.NoError(t, svc.Reserve(ctx, unitID, 10))

	require.NoError(t, svc.Free(ctx, unitID))
	unit, err := repo.Get(ctx, unitID)
	require.NoError(t, err)
	assert.Equal(t, UnitStored, unit.Status)

	// Freeing a unit already stored is harmless.
	assert.NoError(t, svc.Free(ctx, unitID))

	dest := "recycler"
	_, err = svc.Release(ctx, unitID, ReleaseInfo{Type: ReleaseDispose, Date: time.Now(), Destination: &dest})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Free(ctx, unitID), ErrAlreadyReleased)
}

func TestReleaseAndRevertRoundTrip(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, newMockOrderRef(), nil)
	ctx := context.Background()

	unitID := storedUnit(repo)

	_, err := svc.Release(ctx, unitID, ReleaseInfo{Type: "BOGUS", Date: time.Now()})
	assert.ErrorIs(t, err, ErrReleaseInfoMissing)
	_, err = svc.Release(ctx, unitID, ReleaseInfo{Type: ReleaseReuse})
	assert.ErrorIs(t, err, ErrReleaseInfoMissing)

	dest := "Site X"
	info := ReleaseInfo{
		Type:        ReleaseReuse,
		Date:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Destination: &dest,
	}
	released, err := svc.Release(ctx, unitID, info)
	require.NoError(t, err)
	assert.Equal(t, UnitReleased, released.Status)
	require.NotNil(t, released.ReleaseType)
	assert.Equal(t, ReleaseReuse, *released.ReleaseType)

	_, err = svc.Release(ctx, unitID, info)
	assert.ErrorIs(t, err, ErrAlreadyReleased)

	reverted, err := svc.RevertRelease(ctx, unitID)
	require.NoError(t, err)
	assert.Equal(t, UnitStored, reverted.Status)
	assert.Nil(t, reverted.ReleaseType)
	assert.Nil(t, reverted.ReleaseDate)
	assert.Nil(t, reverted.ReleaseDestination)
	assert.Nil(t, reverted.ReleaseNotes)

	_, err = svc.RevertRelease(ctx, unitID)
	assert.ErrorIs(t, err, ErrNotReleased)

	// Releasing again with the original parameters reproduces the record.
	again, err := svc.Release(ctx, unitID, info)
	require.NoError(t, err)
	assert.Equal(t, info.Date, *again.ReleaseDate)
	assert.Equal(t, dest, *again.ReleaseDestination)
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	repo := newMockRepository()
	orders := newMockOrderRef()
	svc := NewService(repo, orders, nil)
	ctx := context.Background()

	unitID := storedUnit(repo)
	orders.refs[unitID] = 10

	assert.ErrorIs(t, svc.Delete(ctx, unitID), ErrStillReferenced)

	delete(orders.refs, unitID)
	require.NoError(t, svc.Delete(ctx, unitID))
	_, err := repo.Get(ctx, unitID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetShowsReservingOrder(t *testing.T) {
	repo := newMockRepository()
	orders := newMockOrderRef()
	svc := NewService(repo, orders, nil)
	ctx := context.Background()

	unitID := storedUnit(repo)
	view, err := svc.Get(ctx, unitID)
	require.NoError(t, err)
	assert.Nil(t, view.ReservedByOrderID)

	require.NoError(t, svc.Reserve(ctx, unitID, 10))
	orders.refs[unitID] = 10

	view, err = svc.Get(ctx, unitID)
	require.NoError(t, err)
	require.NotNil(t, view.ReservedByOrderID)
	assert.Equal(t, int64(10), *view.ReservedByOrderID)
}

func TestIntakeRemoval(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, newMockOrderRef(), nil)

	id, err := svc.IntakeRemoval(context.Background(), workorders.RemovalIntake{
		SourceSite:  "Old Depot",
		Category:    "ceiling",
		Model:       "CX-90",
		RemovedDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		WorkOrderID: 5,
	})
	require.NoError(t, err)

	unit, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, UnitStored, unit.Status)
	require.NotNil(t, unit.SourceOrderID)
	assert.Equal(t, int64(5), *unit.SourceOrderID)
}

func TestOrphanedReservations(t *testing.T) {
	repo := newMockRepository()
	orders := newMockOrderRef()
	svc := NewService(repo, orders, nil)
	ctx := context.Background()

	healthy := storedUnit(repo)
	orphan := storedUnit(repo)
	require.NoError(t, svc.Reserve(ctx, healthy, 10))
	orders.refs[healthy] = 10
	require.NoError(t, svc.Reserve(ctx, orphan, 11))
	// the order referencing "orphan" is gone: no ref registered

	orphans, err := svc.OrphanedReservations(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan, orphans[0].ID)
}
