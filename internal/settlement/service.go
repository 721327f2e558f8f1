package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hvacdesk/hvacdesk/internal/shared"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
)

// AuditRecorder is the slice of shared.AuditLogger the settlement flow needs.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the installer settlement state machine and the monthly
// billing view. Transitions: UNSETTLED -> IN_PROGRESS -> SETTLED, with
// IN_PROGRESS -> UNSETTLED as the only reverse edge. SETTLED is terminal.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	cache   *SummaryCache
	billing BillingConfig
	audit   AuditRecorder
	now     func() time.Time
	group   singleflight.Group
}

// NewService constructs Service. audit may be nil.
func NewService(logger *slog.Logger, repo Repository, cache *SummaryCache, billing BillingConfig, audit AuditRecorder) *Service {
	return &Service{
		logger:  logger,
		repo:    repo,
		cache:   cache,
		billing: billing,
		audit:   audit,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ValidTransition reports whether from -> to is a legal settlement edge.
func ValidTransition(from, to workorders.SettlementStatus) bool {
	switch from {
	case workorders.SettlementUnsettled:
		return to == workorders.SettlementInProgress
	case workorders.SettlementInProgress:
		return to == workorders.SettlementSettled || to == workorders.SettlementUnsettled
	default:
		return false
	}
}

// Get returns the settlement view of one order.
func (s *Service) Get(ctx context.Context, orderID int64) (*OrderSettlement, error) {
	return s.repo.GetSettlement(ctx, orderID)
}

// BatchTransition applies target to every order in the set. Each order is
// validated and written independently: one ineligible order reports a failed
// outcome and leaves its fields untouched without aborting the rest. When the
// target is SETTLED the current year-month is stamped as the settlement month.
//
// Two overlapping batches racing on the same order resolve last-write-wins;
// there is no version guard on the settlement fields.
func (s *Service) BatchTransition(ctx context.Context, orderIDs []int64, target workorders.SettlementStatus) (*BatchResult, error) {
	if !target.IsValid() {
		return nil, ErrInvalidTarget
	}
	if len(orderIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	result := &BatchResult{
		BatchID:  uuid.NewString(),
		Target:   target,
		Outcomes: make([]Outcome, 0, len(orderIDs)),
	}
	stamped := shared.MonthKey(s.now())
	touched := map[string]struct{}{}

	for _, id := range orderIDs {
		outcome := s.transitionOne(ctx, id, target, stamped, touched)
		if outcome.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	months := make([]string, 0, len(touched))
	for m := range touched {
		months = append(months, m)
	}
	if err := s.cache.Invalidate(ctx, months...); err != nil {
		s.logger.Warn("summary cache invalidation failed", "error", err, "batch_id", result.BatchID)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   shared.AuditSettlementBatch,
			Entity:   "settlement_batch",
			EntityID: result.BatchID,
			Meta: map[string]any{
				"target":    target,
				"order_ids": orderIDs,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
			},
		})
	}
	s.logger.Info("settlement batch applied",
		"batch_id", result.BatchID, "target", target,
		"succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (s *Service) transitionOne(ctx context.Context, orderID int64, target workorders.SettlementStatus, stamped string, touched map[string]struct{}) Outcome {
	current, err := s.repo.GetSettlement(ctx, orderID)
	if err != nil {
		return Outcome{OrderID: orderID, Error: err.Error()}
	}
	if !ValidTransition(current.Status, target) {
		err := ErrInvalidTransition
		if current.Status == workorders.SettlementSettled {
			err = ErrSettledTerminal
		}
		return Outcome{OrderID: orderID, Status: current.Status,
			Error: fmt.Sprintf("%s -> %s: %s", current.Status, target, err)}
	}

	if m := effectiveMonth(current); m != "" {
		touched[m] = struct{}{}
	}

	var month *string
	switch target {
	case workorders.SettlementSettled:
		month = &stamped
		touched[stamped] = struct{}{}
	case workorders.SettlementInProgress:
		month = current.Month
	}
	if err := s.repo.UpdateSettlement(ctx, orderID, target, month); err != nil {
		return Outcome{OrderID: orderID, Status: current.Status, Error: err.Error()}
	}
	return Outcome{OrderID: orderID, OK: true, Status: target}
}

// RevertToUnsettled corrects a batch mistake on a single order before it
// reaches SETTLED.
func (s *Service) RevertToUnsettled(ctx context.Context, orderID int64) (*OrderSettlement, error) {
	result, err := s.BatchTransition(ctx, []int64{orderID}, workorders.SettlementUnsettled)
	if err != nil {
		return nil, err
	}
	if result.Failed > 0 {
		return nil, fmt.Errorf("%s: %w", result.Outcomes[0].Error, shared.ErrInvalidState)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   shared.AuditSettlementRevert,
			Entity:   "work_order",
			EntityID: strconv.FormatInt(orderID, 10),
		})
	}
	return s.repo.GetSettlement(ctx, orderID)
}

// Summary computes the billing view for one month. The result is cached with
// a short TTL and rebuilt under singleflight so a burst of reads after an
// invalidation runs the query once.
func (s *Service) Summary(ctx context.Context, month string) (*MonthlySummary, error) {
	if _, err := shared.ParseMonthKey(month); err != nil {
		return nil, err
	}
	if summary, err := s.cache.Get(ctx, month); err == nil {
		return summary, nil
	}

	v, err, _ := s.group.Do(month, func() (any, error) {
		rows, err := s.repo.ListForMonth(ctx, month)
		if err != nil {
			return nil, err
		}
		summary := BuildSummary(month, rows, s.billing)
		summary.GeneratedAt = s.now()
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.Warn("summary cache write failed", "error", err, "month", month)
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MonthlySummary), nil
}

// Months lists every month that has orders in settlement scope, newest first.
func (s *Service) Months(ctx context.Context) ([]string, error) {
	return s.repo.ListMonths(ctx)
}

func effectiveMonth(s *OrderSettlement) string {
	if s.Month != nil && *s.Month != "" {
		return *s.Month
	}
	if s.InstallComplete != nil {
		return shared.MonthKey(*s.InstallComplete)
	}
	return ""
}
