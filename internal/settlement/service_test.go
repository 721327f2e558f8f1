package settlement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacdesk/hvacdesk/internal/shared"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
)

type mockRepository struct {
	settlements map[int64]*OrderSettlement
	byMonth     map[string][]OrderFinancials
	listCalls   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		settlements: make(map[int64]*OrderSettlement),
		byMonth:     make(map[string][]OrderFinancials),
	}
}

func (m *mockRepository) GetSettlement(ctx context.Context, orderID int64) (*OrderSettlement, error) {
	s, ok := m.settlements[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockRepository) UpdateSettlement(ctx context.Context, orderID int64, status workorders.SettlementStatus, month *string) error {
	s, ok := m.settlements[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	s.Status = status
	s.Month = month
	return nil
}

func (m *mockRepository) ListForMonth(ctx context.Context, month string) ([]OrderFinancials, error) {
	m.listCalls++
	return m.byMonth[month], nil
}

func (m *mockRepository) ListMonths(ctx context.Context) ([]string, error) {
	var months []string
	for month := range m.byMonth {
		months = append(months, month)
	}
	return months, nil
}

func (m *mockRepository) add(orderID int64, status workorders.SettlementStatus, month *string) {
	m.settlements[orderID] = &OrderSettlement{
		OrderID:   orderID,
		DocNumber: "WO-0601-001",
		Status:    status,
		Month:     month,
	}
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, repo, NewSummaryCache(nil), DefaultBillingConfig(), nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestValidTransition(t *testing.T) {
	u, p, d := workorders.SettlementUnsettled, workorders.SettlementInProgress, workorders.SettlementSettled

	assert.True(t, ValidTransition(u, p))
	assert.True(t, ValidTransition(p, d))
	assert.True(t, ValidTransition(p, u))

	assert.False(t, ValidTransition(u, d))
	assert.False(t, ValidTransition(u, u))
	assert.False(t, ValidTransition(d, u))
	assert.False(t, ValidTransition(d, p))
	assert.False(t, ValidTransition(d, d))
}

func TestBatchTransition(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.add(1, workorders.SettlementUnsettled, nil)
	repo.add(2, workorders.SettlementUnsettled, nil)

	result, err := svc.BatchTransition(ctx, []int64{1, 2}, workorders.SettlementInProgress)
	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	s, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, workorders.SettlementInProgress, s.Status)
	assert.Nil(t, s.Month)

	// Settling stamps the current year-month.
	result, err = svc.BatchTransition(ctx, []int64{1, 2}, workorders.SettlementSettled)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)

	s, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, workorders.SettlementSettled, s.Status)
	require.NotNil(t, s.Month)
	assert.Equal(t, "2026-03", *s.Month)
}

func TestBatchTransitionPartialFailure(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	month := "2026-02"
	repo.add(1, workorders.SettlementUnsettled, nil)
	repo.add(2, workorders.SettlementSettled, &month)
	repo.add(3, workorders.SettlementUnsettled, nil)

	result, err := svc.BatchTransition(ctx, []int64{1, 2, 3, 99}, workorders.SettlementInProgress)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Outcomes, 4)

	assert.True(t, result.Outcomes[0].OK)
	assert.False(t, result.Outcomes[1].OK)
	assert.Contains(t, result.Outcomes[1].Error, "settled orders cannot change")
	assert.True(t, result.Outcomes[2].OK)
	assert.False(t, result.Outcomes[3].OK)

	// The settled order kept its fields.
	s, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, workorders.SettlementSettled, s.Status)
	assert.Equal(t, month, *s.Month)
}

func TestBatchTransitionValidation(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.BatchTransition(ctx, []int64{1}, "DONE")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = svc.BatchTransition(ctx, nil, workorders.SettlementSettled)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestInProgressKeepsStampedMonth(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	month := "2026-01"
	repo.add(1, workorders.SettlementUnsettled, &month)

	_, err := svc.BatchTransition(ctx, []int64{1}, workorders.SettlementInProgress)
	require.NoError(t, err)

	s, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, s.Month)
	assert.Equal(t, month, *s.Month)
}

func TestRevertToUnsettled(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	month := "2026-03"
	repo.add(1, workorders.SettlementInProgress, &month)

	s, err := svc.RevertToUnsettled(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, workorders.SettlementUnsettled, s.Status)
	assert.Nil(t, s.Month)

	// SETTLED cannot be reverted.
	repo.add(2, workorders.SettlementSettled, &month)
	_, err = svc.RevertToUnsettled(ctx, 2)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func TestAuditTrail(t *testing.T) {
	repo := newMockRepository()
	audit := &mockAudit{}
	svc := newTestService(repo)
	svc.audit = audit
	ctx := context.Background()

	repo.add(1, workorders.SettlementUnsettled, nil)

	_, err := svc.BatchTransition(ctx, []int64{1}, workorders.SettlementInProgress)
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditSettlementBatch, audit.logs[0].Action)

	_, err = svc.RevertToUnsettled(ctx, 1)
	require.NoError(t, err)
	// The revert runs through the batch path and then records its own action.
	require.Len(t, audit.logs, 3)
	assert.Equal(t, shared.AuditSettlementRevert, audit.logs[2].Action)
	assert.Equal(t, "work_order", audit.logs[2].Entity)
	assert.Equal(t, "1", audit.logs[2].EntityID)
}

func TestSummary(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.byMonth["2026-03"] = []OrderFinancials{
		{OrderID: 1, EquipmentSubtotal: 800000, InstallSubtotal: 200000, PurchaseCost: 600000},
	}

	summary, err := svc.Summary(ctx, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, "2026-03", summary.Month)
	assert.Equal(t, int64(1155000), summary.TotalSales)
	assert.Equal(t, svc.now(), summary.GeneratedAt)

	_, err = svc.Summary(ctx, "2026-3")
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Summary(ctx, "march")
	assert.ErrorIs(t, err, shared.ErrValidation)

	// Empty months are a valid, empty summary, not an error.
	summary, err = svc.Summary(ctx, "2025-12")
	require.NoError(t, err)
	assert.Empty(t, summary.Orders)
}
