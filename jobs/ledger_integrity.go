package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
	"github.com/odyssey-erp/stockledger/internal/ledger"
)

// MasterRegistry registers location names.
type MasterRegistry interface {
	Register(ctx context.Context, name string, actorID int64) (ledger.MasterLocation, bool, error)
}

// IdempotencyCleaner drops stale idempotency keys.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IntegrityReport summarises one integrity run.
type IntegrityReport struct {
	NonPositiveVolume []string
	OrphanEntries     []string
	Unregistered      []string
	Registered        []string
	ExpiredKeys       int64
}

// Findings returns the number of problems detected.
func (r IntegrityReport) Findings() int {
	return len(r.NonPositiveVolume) + len(r.OrphanEntries) + len(r.Unregistered)
}

// IntegrityCheckJob verifies ledger invariants that storage alone cannot
// express across tables.
type IntegrityCheckJob struct {
	Source      ledger.Source
	Registry    MasterRegistry
	Idempotency IdempotencyCleaner
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewIntegrityCheckJob initialises the integrity handler.
func NewIntegrityCheckJob(source ledger.Source, registry MasterRegistry, idempotency IdempotencyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityCheckJob {
	return &IntegrityCheckJob{
		Source:      source,
		Registry:    registry,
		Idempotency: idempotency,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one integrity run.
func (j *IntegrityCheckJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("integrity check: handler not configured")
	}
	var payload IntegrityCheckPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskIntegrityCheck)
	defer func() {
		err = tracker.End(err)
	}()

	report, err := j.Run(ctx, payload)
	if err != nil {
		j.logger().Error("integrity check failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("completed integrity check",
		slog.Int("findings", report.Findings()),
		slog.Int("registered", len(report.Registered)),
		slog.Int64("expired_keys", report.ExpiredKeys),
	)
	return nil
}

// Run performs the checks and returns what it found.
func (j *IntegrityCheckJob) Run(ctx context.Context, payload IntegrityCheckPayload) (IntegrityReport, error) {
	var report IntegrityReport
	snap, err := ledger.LoadSnapshot(ctx, j.Source, j.now())
	if err != nil {
		return report, err
	}
	logger := j.logger()

	products := make(map[string]struct{}, len(snap.Products))
	for _, p := range snap.Products {
		products[ledger.NormalizeSKU(p.SKU)] = struct{}{}
	}
	for _, loc := range snap.Locations {
		if loc.Volume <= 0 {
			report.NonPositiveVolume = append(report.NonPositiveVolume, loc.ID.String())
			logger.Warn("ledger entry with non-positive volume", slog.String("id", loc.ID.String()), slog.Int("volume", loc.Volume))
		}
		if _, ok := products[ledger.NormalizeSKU(loc.SKU)]; !ok {
			report.OrphanEntries = append(report.OrphanEntries, loc.ID.String())
			logger.Warn("ledger entry references unknown product", slog.String("id", loc.ID.String()), slog.String("sku", loc.SKU))
		}
	}

	registered := make(map[string]struct{}, len(snap.MasterLocations))
	for _, m := range snap.MasterLocations {
		registered[ledger.NormalizeLocation(m.Name)] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, loc := range snap.Locations {
		key := ledger.NormalizeLocation(loc.Place)
		if _, ok := registered[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		report.Unregistered = append(report.Unregistered, loc.Place)
	}
	sort.Strings(report.Unregistered)

	if payload.RegisterMissing && j.Registry != nil {
		for _, name := range report.Unregistered {
			if _, _, err := j.Registry.Register(ctx, name, 0); err != nil {
				return report, err
			}
			report.Registered = append(report.Registered, name)
			logger.Info("registered missing master location", slog.String("name", name))
		}
	}

	if payload.IdempotencyTTL > 0 && j.Idempotency != nil {
		n, err := j.Idempotency.Cleanup(ctx, payload.IdempotencyTTL)
		if err != nil {
			return report, err
		}
		report.ExpiredKeys = n
	}

	j.metrics().AddIntegrityFindings("non_positive_volume", len(report.NonPositiveVolume))
	j.metrics().AddIntegrityFindings("orphan_entry", len(report.OrphanEntries))
	j.metrics().AddIntegrityFindings("unregistered_location", len(report.Unregistered))
	return report, nil
}

func (j *IntegrityCheckJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIntegrityCheck))
	}
	return slog.Default().With(slog.String("job", TaskIntegrityCheck))
}

func (j *IntegrityCheckJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *IntegrityCheckJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
