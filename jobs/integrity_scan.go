package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/hvacdesk/hvacdesk/internal/jobs"
	"github.com/hvacdesk/hvacdesk/internal/warehouse"
)

// WarehouseIntegrityJob scans for units stuck in REQUESTED with no active
// order referencing them, which can happen if a compensating free was lost.
type WarehouseIntegrityJob struct {
	Warehouse *warehouse.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewWarehouseIntegrityJob wires dependencies for the integrity scan.
func NewWarehouseIntegrityJob(svc *warehouse.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarehouseIntegrityJob {
	return &WarehouseIntegrityJob{Warehouse: svc, Logger: logger, Metrics: metrics}
}

// Handle processes integrity scan tasks.
func (j *WarehouseIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Warehouse == nil {
		return errors.New("warehouse integrity: handler not configured")
	}
	var payload WarehouseIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskWarehouseIntegrityScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	orphans, err := j.Warehouse.OrphanedReservations(ctx)
	if err != nil {
		resultErr = err
		return resultErr
	}
	j.Metrics.AddOrphans(len(orphans))

	for _, unit := range orphans {
		j.logger().Warn("orphaned reservation detected",
			slog.Int64("unit_id", unit.ID), slog.String("source_site", unit.SourceSite))
		if payload.DryRun {
			continue
		}
		if err := j.Warehouse.Free(ctx, unit.ID); err != nil {
			j.logger().Error("failed to free orphaned unit", slog.Int64("unit_id", unit.ID), slog.Any("error", err))
			resultErr = err
		}
	}
	j.logger().Info("warehouse integrity scan finished",
		slog.Int("orphans", len(orphans)), slog.Bool("dry_run", payload.DryRun))
	return resultErr
}

func (j *WarehouseIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
