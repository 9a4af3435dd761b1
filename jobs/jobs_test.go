package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/classify"
	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
	"github.com/odyssey-erp/stockledger/internal/ledger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReports struct {
	report classify.Report
	err    error
}

func (f fakeReports) Report(ctx context.Context) (classify.Report, error) {
	return f.report, f.err
}

type recordedGauges struct {
	ok, repurchase, stagnant int
	calls                    int
}

func (g *recordedGauges) SetClassificationCounts(ok, repurchase, stagnant int) {
	g.ok, g.repurchase, g.stagnant = ok, repurchase, stagnant
	g.calls++
}

func TestClassificationScanPublishesCounts(t *testing.T) {
	gauges := &recordedGauges{}
	report := classify.Report{
		Today:      ledger.NewDate(2024, time.April, 19),
		Counts:     classify.Counts{OK: 3, Repurchase: 1, Stagnant: 2},
		Repurchase: []classify.Item{{SKU: "A1", Quantity: 5, Threshold: 10, Suggestion: 35}},
	}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewClassificationScanJob(fakeReports{report: report}, gauges, discardLogger(), metrics)

	task, err := NewClassificationScanTask(time.Now())
	require.NoError(t, err)
	require.Equal(t, TaskClassificationScan, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, gauges.calls)
	require.Equal(t, 3, gauges.ok)
	require.Equal(t, 1, gauges.repurchase)
	require.Equal(t, 2, gauges.stagnant)
}

func TestClassificationScanFailure(t *testing.T) {
	gauges := &recordedGauges{}
	boom := errors.New("db down")
	job := NewClassificationScanJob(fakeReports{err: boom}, gauges, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskClassificationScan, nil))
	require.ErrorIs(t, err, boom)
	require.Zero(t, gauges.calls)
}

func TestClassificationScanRejectsBadPayload(t *testing.T) {
	job := NewClassificationScanJob(fakeReports{}, nil, discardLogger(), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskClassificationScan, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeSource struct {
	products  []ledger.Product
	locations []ledger.Location
	master    []ledger.MasterLocation
}

func (f *fakeSource) ListProducts(ctx context.Context, search string) ([]ledger.Product, error) {
	return f.products, nil
}

func (f *fakeSource) ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error) {
	return f.locations, nil
}

func (f *fakeSource) ListExits(ctx context.Context, filter ledger.ExitFilter) ([]ledger.Exit, error) {
	return nil, nil
}

func (f *fakeSource) ListMasterLocations(ctx context.Context) ([]ledger.MasterLocation, error) {
	return f.master, nil
}

type fakeRegistry struct {
	source *fakeSource
	names  []string
}

func (r *fakeRegistry) Register(ctx context.Context, name string, actorID int64) (ledger.MasterLocation, bool, error) {
	r.names = append(r.names, name)
	loc := ledger.MasterLocation{Name: name}
	r.source.master = append(r.source.master, loc)
	return loc, true, nil
}

type fakeCleaner struct {
	ttl time.Duration
}

func (c *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	c.ttl = olderThan
	return 4, nil
}

func TestIntegrityCheckRegistersMissingLocations(t *testing.T) {
	day := ledger.NewDate(2024, time.March, 5)
	source := &fakeSource{
		products: []ledger.Product{{SKU: "A1"}},
		locations: []ledger.Location{
			{ID: uuid.New(), SKU: "a1", Place: "Shelf-1", Volume: 2, UnitsPerBox: 1, Date: day},
			{ID: uuid.New(), SKU: "A1", Place: "shelf-2", Volume: 1, UnitsPerBox: 1, Date: day},
			{ID: uuid.New(), SKU: "A1", Place: "SHELF-2 ", Volume: 3, UnitsPerBox: 1, Date: day},
			{ID: uuid.New(), SKU: "ghost", Place: "Shelf-1", Volume: 1, UnitsPerBox: 1, Date: day},
		},
		master: []ledger.MasterLocation{{Name: "shelf-1"}},
	}
	registry := &fakeRegistry{source: source}
	cleaner := &fakeCleaner{}
	job := NewIntegrityCheckJob(source, registry, cleaner, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	report, err := job.Run(context.Background(), IntegrityCheckPayload{RegisterMissing: true, IdempotencyTTL: 24 * time.Hour})
	require.NoError(t, err)
	require.Equal(t, []string{"shelf-2"}, report.Unregistered)
	require.Equal(t, []string{"shelf-2"}, registry.names)
	require.Len(t, report.OrphanEntries, 1)
	require.Empty(t, report.NonPositiveVolume)
	require.Equal(t, int64(4), report.ExpiredKeys)
	require.Equal(t, 24*time.Hour, cleaner.ttl)

	again, err := job.Run(context.Background(), IntegrityCheckPayload{RegisterMissing: true})
	require.NoError(t, err)
	require.Empty(t, again.Unregistered)
	require.Len(t, registry.names, 1)
}

func TestIntegrityCheckReportOnly(t *testing.T) {
	source := &fakeSource{
		products:  []ledger.Product{{SKU: "A1"}},
		locations: []ledger.Location{{ID: uuid.New(), SKU: "A1", Place: "Dock", Volume: 0, UnitsPerBox: 1}},
	}
	registry := &fakeRegistry{source: source}
	job := NewIntegrityCheckJob(source, registry, nil, discardLogger(), nil)

	task, err := NewIntegrityCheckTask(IntegrityCheckPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	report, err := job.Run(context.Background(), IntegrityCheckPayload{})
	require.NoError(t, err)
	require.Len(t, report.NonPositiveVolume, 1)
	require.Equal(t, []string{"Dock"}, report.Unregistered)
	require.Empty(t, registry.names)
	require.Equal(t, 2, report.Findings())
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Active: 1}}, discardLogger()).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: QueueDefault, Pending: 3, Active: 1}, body)

	r = chi.NewRouter()
	r.Route("/jobs", NewHandler(fakeInspector{err: errors.New("redis down")}, discardLogger()).MountRoutes)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
