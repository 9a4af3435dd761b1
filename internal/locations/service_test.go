package locations

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type memoryRepo struct {
	master  map[string]ledger.MasterLocation
	entries []ledger.Location
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{master: make(map[string]ledger.MasterLocation)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListMasterLocations(ctx context.Context) ([]ledger.MasterLocation, error) {
	out := make([]ledger.MasterLocation, 0, len(r.master))
	for _, m := range r.master {
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error) {
	return r.entries, nil
}

func (tx *memoryTx) RegisterIfAbsent(ctx context.Context, name string) (ledger.MasterLocation, bool, error) {
	key := ledger.NormalizeLocation(name)
	if existing, ok := tx.repo.master[key]; ok {
		return existing, false, nil
	}
	loc := ledger.MasterLocation{Name: name}
	tx.repo.master[key] = loc
	return loc, true, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, name string) (ledger.MasterLocation, error) {
	loc, ok := tx.repo.master[ledger.NormalizeLocation(name)]
	if !ok {
		return ledger.MasterLocation{}, shared.ErrNotFound
	}
	return loc, nil
}

func (tx *memoryTx) CountEntries(ctx context.Context, name string) (int, error) {
	n := 0
	for _, e := range tx.repo.entries {
		if ledger.SameLocation(e.Place, name) {
			n++
		}
	}
	return n, nil
}

func (tx *memoryTx) Delete(ctx context.Context, name string) error {
	key := ledger.NormalizeLocation(name)
	if _, ok := tx.repo.master[key]; !ok {
		return shared.ErrNotFound
	}
	delete(tx.repo.master, key)
	return nil
}

func TestRegisterIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	loc, created, err := svc.Register(ctx, " Shelf-1 ", 1)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Shelf-1", loc.Name)

	loc, created, err = svc.Register(ctx, "SHELF-1", 1)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "Shelf-1", loc.Name)
	require.Len(t, repo.master, 1)

	_, _, err = svc.Register(ctx, "  ", 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOccupancyGate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	for _, name := range []string{"Shelf-1", "Shelf-2"} {
		_, _, err := svc.Register(ctx, name, 1)
		require.NoError(t, err)
	}
	repo.entries = []ledger.Location{{SKU: "A1", Place: "shelf-1", Volume: 1, UnitsPerBox: 1}}

	require.ErrorIs(t, svc.Remove(ctx, "Shelf-1", 1), shared.ErrLocationOccupied)
	_, err := svc.EnsureRemovable(ctx, "SHELF-1")
	require.ErrorIs(t, err, shared.ErrLocationOccupied)
	require.Len(t, repo.master, 2)

	require.NoError(t, svc.Remove(ctx, "shelf-2", 1))
	require.Len(t, repo.master, 1)
	require.ErrorIs(t, svc.Remove(ctx, "Shelf-2", 1), shared.ErrNotFound)

	// emptied locations become removable
	repo.entries = nil
	require.NoError(t, svc.Remove(ctx, "Shelf-1", 1))
	require.Empty(t, repo.master)
}

func TestAvailability(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	for _, name := range []string{"Rua A-01", "Rua A-02", "Doca"} {
		_, _, err := svc.Register(ctx, name, 1)
		require.NoError(t, err)
	}
	repo.entries = []ledger.Location{{SKU: "A1", Place: "rua a-02", Volume: 3, UnitsPerBox: 2}}

	rows, err := svc.Availability(ctx, "rua")
	require.NoError(t, err)
	require.Equal(t, []ledger.AvailabilityRow{
		{Location: "Rua A-01", Status: ledger.StatusFree},
		{Location: "Rua A-02", Status: ledger.StatusOccupied},
	}, rows)

	rows, err = svc.Availability(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

type stubRemover struct {
	err   error
	names []string
}

func (s *stubRemover) RemoveLocation(ctx context.Context, name string, actor shared.Actor) error {
	s.names = append(s.names, name)
	return s.err
}

func TestHandlerRoutes(t *testing.T) {
	repo := newMemoryRepo()
	remover := &stubRemover{err: shared.ErrLocationOccupied}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo, nil), remover)
	r := chi.NewRouter()
	r.Route("/master-locations", h.MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/master-locations", strings.NewReader(`{"name":"Doca 1"}`))
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 3, Role: shared.RoleUser}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/master-locations/Doca%201", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 1, Role: shared.RoleAdmin}))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, []string{"Doca 1"}, remover.names)
}
