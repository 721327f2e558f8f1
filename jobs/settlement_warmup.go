package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/hvacdesk/hvacdesk/internal/jobs"
	"github.com/hvacdesk/hvacdesk/internal/settlement"
)

// SettlementWarmupJob pre-populates the monthly summary cache so the first
// operator read after a quiet period does not pay the aggregate query.
type SettlementWarmupJob struct {
	Settlement *settlement.Service
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewSettlementWarmupJob wires dependencies for the warmup handler.
func NewSettlementWarmupJob(svc *settlement.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *SettlementWarmupJob {
	return &SettlementWarmupJob{Settlement: svc, Logger: logger, Metrics: metrics}
}

// Handle processes settlement warmup tasks.
func (j *SettlementWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Settlement == nil {
		return errors.New("settlement warmup: handler not configured")
	}
	var payload SettlementWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskSettlementWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	months := payload.Months
	if len(months) == 0 {
		var err error
		months, err = j.Settlement.Months(ctx)
		if err != nil {
			resultErr = err
			return resultErr
		}
	}

	for _, month := range months {
		if _, err := j.Settlement.Summary(ctx, month); err != nil {
			j.logger().Warn("summary warmup failed", slog.String("month", month), slog.Any("error", err))
			resultErr = err
		}
	}
	j.logger().Info("settlement summaries warmed", slog.Int("months", len(months)))
	return resultErr
}

func (j *SettlementWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
