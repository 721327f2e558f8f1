package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSettlementWarmup pre-builds monthly settlement summaries.
	TaskSettlementWarmup = "settlement:summary_warmup"
	// TaskWarehouseIntegrityScan looks for reserved units no active order references.
	TaskWarehouseIntegrityScan = "warehouse:integrity_scan"
)

// SettlementWarmupPayload selects which months to warm. Empty means every
// month currently in settlement scope.
type SettlementWarmupPayload struct {
	Months []string `json:"months,omitempty"`
}

// NewSettlementWarmupTask constructs the warmup task.
func NewSettlementWarmupTask(payload SettlementWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettlementWarmup, data), nil
}

// WarehouseIntegrityPayload configures the integrity scan.
type WarehouseIntegrityPayload struct {
	// DryRun reports orphans without freeing them.
	DryRun bool `json:"dry_run"`
}

// NewWarehouseIntegrityTask constructs the integrity scan task.
func NewWarehouseIntegrityTask(payload WarehouseIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarehouseIntegrityScan, data), nil
}
