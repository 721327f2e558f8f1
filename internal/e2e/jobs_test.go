package e2e

import (
	"context"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	_ "github.com/hvacdesk/hvacdesk/internal/testing/guard"

	jobmetrics "github.com/hvacdesk/hvacdesk/internal/jobs"
	"github.com/hvacdesk/hvacdesk/internal/settlement"
	"github.com/hvacdesk/hvacdesk/internal/warehouse"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
	"github.com/hvacdesk/hvacdesk/jobs"
	"github.com/prometheus/client_golang/prometheus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSettlementRepo struct {
	byMonth   map[string][]settlement.OrderFinancials
	listCalls map[string]int
}

func (s *stubSettlementRepo) GetSettlement(context.Context, int64) (*settlement.OrderSettlement, error) {
	return nil, settlement.ErrOrderNotFound
}

func (s *stubSettlementRepo) UpdateSettlement(context.Context, int64, workorders.SettlementStatus, *string) error {
	return nil
}

func (s *stubSettlementRepo) ListForMonth(_ context.Context, month string) ([]settlement.OrderFinancials, error) {
	s.listCalls[month]++
	return s.byMonth[month], nil
}

func (s *stubSettlementRepo) ListMonths(context.Context) ([]string, error) {
	var months []string
	for m := range s.byMonth {
		months = append(months, m)
	}
	return months, nil
}

// The warmup job builds every in-scope month once and leaves the cache hot,
// so the next operator read never hits Postgres.
func TestSettlementWarmupJob(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubSettlementRepo{
		byMonth: map[string][]settlement.OrderFinancials{
			"2026-02": {{OrderID: 1, EquipmentSubtotal: 800000, InstallSubtotal: 200000, PurchaseCost: 600000}},
			"2026-03": {{OrderID: 2, EquipmentSubtotal: 123456}},
		},
		listCalls: map[string]int{},
	}
	cache := settlement.NewSummaryCache(client)
	svc := settlement.NewService(discardLogger(), repo, cache, settlement.DefaultBillingConfig(), nil)

	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := jobs.NewSettlementWarmupJob(svc, discardLogger(), metrics)

	task, err := jobs.NewSettlementWarmupTask(jobs.SettlementWarmupPayload{})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("job handle: %v", err)
	}

	for _, month := range []string{"2026-02", "2026-03"} {
		if got := repo.listCalls[month]; got != 1 {
			t.Fatalf("expected one query for %s, got %d", month, got)
		}
		summary, err := cache.Get(context.Background(), month)
		if err != nil {
			t.Fatalf("cache miss for %s after warmup: %v", month, err)
		}
		if summary.Month != month {
			t.Fatalf("wrong summary cached: %s", summary.Month)
		}
	}

	// Reads after warmup are served from the cache.
	if _, err := svc.Summary(context.Background(), "2026-02"); err != nil {
		t.Fatalf("summary read: %v", err)
	}
	if got := repo.listCalls["2026-02"]; got != 1 {
		t.Fatalf("expected cached read, queries=%d", got)
	}
}

type stubUnitRepo struct {
	units map[int64]*warehouse.StoredUnit
}

func (s *stubUnitRepo) Get(_ context.Context, id int64) (*warehouse.StoredUnit, error) {
	u, ok := s.units[id]
	if !ok {
		return nil, warehouse.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *stubUnitRepo) List(context.Context, warehouse.ListUnitsRequest) ([]warehouse.StoredUnit, int, error) {
	return nil, 0, nil
}

func (s *stubUnitRepo) Create(_ context.Context, u warehouse.StoredUnit) (int64, error) {
	id := int64(len(s.units) + 1)
	u.ID = id
	s.units[id] = &u
	return id, nil
}

func (s *stubUnitRepo) ReserveIfStored(_ context.Context, id int64) (bool, error) {
	u, ok := s.units[id]
	if !ok || u.Status != warehouse.UnitStored {
		return false, nil
	}
	u.Status = warehouse.UnitRequested
	return true, nil
}

func (s *stubUnitRepo) SetStatus(_ context.Context, id int64, status warehouse.UnitStatus) error {
	s.units[id].Status = status
	return nil
}

func (s *stubUnitRepo) SetReleased(_ context.Context, id int64, info warehouse.ReleaseInfo) error {
	s.units[id].Status = warehouse.UnitReleased
	return nil
}

func (s *stubUnitRepo) ClearRelease(_ context.Context, id int64) error {
	s.units[id].Status = warehouse.UnitStored
	return nil
}

func (s *stubUnitRepo) Delete(_ context.Context, id int64) error {
	delete(s.units, id)
	return nil
}

func (s *stubUnitRepo) ListRequested(context.Context) ([]warehouse.StoredUnit, error) {
	var out []warehouse.StoredUnit
	for _, u := range s.units {
		if u.Status == warehouse.UnitRequested {
			out = append(out, *u)
		}
	}
	return out, nil
}

type stubOrderRef struct {
	refs map[int64]int64
}

func (s *stubOrderRef) FindActiveOrderForUnit(_ context.Context, unitID int64) (int64, bool, error) {
	orderID, ok := s.refs[unitID]
	return orderID, ok, nil
}

// The integrity scan frees units stuck in REQUESTED whose order is gone and
// leaves healthy reservations alone.
func TestWarehouseIntegrityScanJob(t *testing.T) {
	repo := &stubUnitRepo{units: map[int64]*warehouse.StoredUnit{
		1: {ID: 1, SourceSite: "Site A", Status: warehouse.UnitRequested},
		2: {ID: 2, SourceSite: "Site B", Status: warehouse.UnitRequested},
		3: {ID: 3, SourceSite: "Site C", Status: warehouse.UnitStored},
	}}
	refs := &stubOrderRef{refs: map[int64]int64{1: 10}}
	svc := warehouse.NewService(repo, refs, nil)

	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := jobs.NewWarehouseIntegrityJob(svc, discardLogger(), metrics)

	task, err := jobs.NewWarehouseIntegrityTask(jobs.WarehouseIntegrityPayload{DryRun: true})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if repo.units[2].Status != warehouse.UnitRequested {
		t.Fatal("dry run must not free units")
	}

	task, err = jobs.NewWarehouseIntegrityTask(jobs.WarehouseIntegrityPayload{})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if repo.units[1].Status != warehouse.UnitRequested {
		t.Fatal("healthy reservation was freed")
	}
	if repo.units[2].Status != warehouse.UnitStored {
		t.Fatal("orphaned reservation was not freed")
	}
	if repo.units[3].Status != warehouse.UnitStored {
		t.Fatal("stored unit must be untouched")
	}
}
