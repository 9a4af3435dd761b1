package classify

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
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type stubSource struct {
	products  []ledger.Product
	locations []ledger.Location
	exits     []ledger.Exit
	err       error
	calls     int
}

func (s *stubSource) ListProducts(ctx context.Context, search string) ([]ledger.Product, error) {
	s.calls++
	return s.products, s.err
}

func (s *stubSource) ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error) {
	return s.locations, nil
}

func (s *stubSource) ListExits(ctx context.Context, filter ledger.ExitFilter) ([]ledger.Exit, error) {
	return s.exits, nil
}

func (s *stubSource) ListMasterLocations(ctx context.Context) ([]ledger.MasterLocation, error) {
	return nil, nil
}

func TestServiceReadsFreshSnapshotEachCall(t *testing.T) {
	src := &stubSource{
		products:  []ledger.Product{{SKU: "A1", RepurchaseThreshold: 20}},
		locations: []ledger.Location{{SKU: "A1", Volume: 5, UnitsPerBox: 10, Date: ledger.NewDate(2024, time.June, 1)}},
	}
	clock := func() time.Time { return time.Date(2024, time.June, 2, 15, 0, 0, 0, time.UTC) }
	svc := NewService(src, NewEngine(30)).WithClock(clock)

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	require.Equal(t, Counts{OK: 1}, report.Counts)

	// stock drops below the threshold between calls
	src.locations[0].Volume = 1
	report, err = svc.Report(context.Background())
	require.NoError(t, err)
	require.Equal(t, Counts{Repurchase: 1}, report.Counts)
	require.Equal(t, 2, src.calls)
}

func TestServicePropagatesStorageFailure(t *testing.T) {
	src := &stubSource{err: shared.Unavailable(errors.New("connection refused"))}
	svc := NewService(src, NewEngine(30))
	_, err := svc.Report(context.Background())
	require.ErrorIs(t, err, shared.ErrCollaboratorUnavailable)
}

func TestHandlerExitSummary(t *testing.T) {
	src := &stubSource{exits: []ledger.Exit{
		{SKU: "A1", Quantity: 3, Type: ledger.ExitFull, Store: ledger.StoreShein},
		{SKU: "A1", Quantity: 2, Type: ledger.ExitExpedicao},
	}}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(src, NewEngine(30)))
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/exits?store=shein,Amazon", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var summary ExitSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	require.Equal(t, 2, summary.Expedicao)
	require.Equal(t, 3, summary.Full)
	require.Len(t, summary.Stores, 2)
	require.Equal(t, ledger.StoreShein, summary.Stores[0].Store)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/exits?store=Walmart", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerClassificationUnavailable(t *testing.T) {
	src := &stubSource{err: shared.Unavailable(errors.New("timeout"))}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(src, NewEngine(30)))
	rr := httptest.NewRecorder()
	h.handleClassification(rr, httptest.NewRequest(http.MethodGet, "/reports/classification", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
