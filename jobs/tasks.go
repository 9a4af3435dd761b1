package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskClassificationScan recomputes the classification report and publishes gauges.
	TaskClassificationScan = "ledger:classification-scan"
	// TaskIntegrityCheck verifies ledger invariants against storage.
	TaskIntegrityCheck = "ledger:integrity-check"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ClassificationScanPayload carries scheduling metadata.
type ClassificationScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// IntegrityCheckPayload configures one integrity run.
type IntegrityCheckPayload struct {
	// RegisterMissing registers occupied places absent from the master registry.
	RegisterMissing bool `json:"register_missing"`
	// IdempotencyTTL drops idempotency keys older than this; zero keeps them.
	IdempotencyTTL time.Duration `json:"idempotency_ttl"`
}

// NewClassificationScanTask constructs the classification scan task.
func NewClassificationScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ClassificationScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClassificationScan, body, asynq.Queue(QueueDefault)), nil
}

// NewIntegrityCheckTask constructs the integrity check task.
func NewIntegrityCheckTask(payload IntegrityCheckPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityCheck, body, asynq.Queue(QueueDefault)), nil
}
