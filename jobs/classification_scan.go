package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockledger/internal/classify"
	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
)

// ReportSource produces a classification report from a fresh snapshot.
type ReportSource interface {
	Report(ctx context.Context) (classify.Report, error)
}

// ClassificationGauges receives the per-status product counts.
type ClassificationGauges interface {
	SetClassificationCounts(ok, repurchase, stagnant int)
}

// ClassificationScanJob publishes classification counts and logs the
// repurchase list. Nothing is cached for API readers.
type ClassificationScanJob struct {
	Reports ReportSource
	Gauges  ClassificationGauges
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewClassificationScanJob initialises the scan handler.
func NewClassificationScanJob(reports ReportSource, gauges ClassificationGauges, logger *slog.Logger, metrics *jobmetrics.Metrics) *ClassificationScanJob {
	return &ClassificationScanJob{Reports: reports, Gauges: gauges, Logger: logger, Metrics: metrics}
}

// Handle executes the scan.
func (j *ClassificationScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("classification scan: handler not configured")
	}
	var payload ClassificationScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskClassificationScan)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger()
	report, err := j.Reports.Report(ctx)
	if err != nil {
		logger.Error("classification scan failed", slog.Any("error", err))
		return err
	}

	if j.Gauges != nil {
		j.Gauges.SetClassificationCounts(report.Counts.OK, report.Counts.Repurchase, report.Counts.Stagnant)
	}
	for _, item := range report.Repurchase {
		logger.Warn("repurchase suggested",
			slog.String("sku", item.SKU),
			slog.Int("quantity", item.Quantity),
			slog.Int("threshold", item.Threshold),
			slog.Int("suggestion", item.Suggestion),
		)
	}
	logger.Info("completed classification scan",
		slog.String("today", report.Today.String()),
		slog.Int("ok", report.Counts.OK),
		slog.Int("repurchase", report.Counts.Repurchase),
		slog.Int("stagnant", report.Counts.Stagnant),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *ClassificationScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskClassificationScan))
	}
	return slog.Default().With(slog.String("job", TaskClassificationScan))
}

func (j *ClassificationScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
