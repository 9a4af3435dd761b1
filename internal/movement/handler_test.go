package movement

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type stubLedgerService struct {
	LedgerService
	moveFn       func(ctx context.Context, in MoveInput) (MoveResult, error)
	exitFn       func(ctx context.Context, in ExitInput) (ExitResult, error)
	deleteExitFn func(ctx context.Context, id uuid.UUID, actorID int64) error
}

func (s *stubLedgerService) Move(ctx context.Context, in MoveInput) (MoveResult, error) {
	return s.moveFn(ctx, in)
}

func (s *stubLedgerService) Exit(ctx context.Context, in ExitInput) (ExitResult, error) {
	return s.exitFn(ctx, in)
}

func (s *stubLedgerService) DeleteExit(ctx context.Context, id uuid.UUID, actorID int64) error {
	return s.deleteExitFn(ctx, id, actorID)
}

func newTestRouter(svc LedgerService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/locations", h.MountLocationRoutes)
	r.Route("/exits", h.MountExitRoutes)
	return r
}

func withActor(req *http.Request, id int64, role string) *http.Request {
	return req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: id, Role: role}))
}

func TestMoveEndpointPassesActorAndIdempotencyKey(t *testing.T) {
	var captured MoveInput
	src := uuid.New()
	svc := &stubLedgerService{moveFn: func(ctx context.Context, in MoveInput) (MoveResult, error) {
		captured = in
		return MoveResult{Destination: ledger.Location{ID: uuid.New(), SKU: "A1", Place: "Shelf-2", Volume: 3}}, nil
	}}
	body := `{"source_id":"` + src.String() + `","destination":"Shelf-2","volume":3}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/locations/move", strings.NewReader(body)), 42, shared.RoleUser)
	req.Header.Set("Idempotency-Key", "abc")
	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, src, captured.SourceID)
	require.Equal(t, 3, captured.Volume)
	require.Equal(t, int64(42), captured.ActorID)
	require.Equal(t, "abc", captured.RequestKey)

	var result MoveResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, "Shelf-2", result.Destination.Place)
}

func TestMoveEndpointRequiresActor(t *testing.T) {
	svc := &stubLedgerService{}
	req := httptest.NewRequest(http.MethodPost, "/locations/move", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestExitEndpointMapsErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrMissingStore, http.StatusBadRequest},
		{shared.ErrInvalidVolume, http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrConflict, http.StatusConflict},
		{shared.ErrCollaboratorUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		svc := &stubLedgerService{exitFn: func(ctx context.Context, in ExitInput) (ExitResult, error) {
			return ExitResult{}, tc.err
		}}
		req := withActor(httptest.NewRequest(http.MethodPost, "/locations/"+uuid.NewString()+"/exit",
			strings.NewReader(`{"exit_type":"Full","volume":1}`)), 1, shared.RoleUser)
		rr := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rr, req)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	}
}

func TestExitEndpointRejectsBadID(t *testing.T) {
	svc := &stubLedgerService{}
	req := withActor(httptest.NewRequest(http.MethodPost, "/locations/not-a-uuid/exit",
		strings.NewReader(`{"exit_type":"Full","volume":1}`)), 1, shared.RoleUser)
	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteExitIsAdminOnly(t *testing.T) {
	deleted := 0
	svc := &stubLedgerService{deleteExitFn: func(ctx context.Context, id uuid.UUID, actorID int64) error {
		deleted++
		return nil
	}}
	router := newTestRouter(svc)
	path := "/exits/" + uuid.NewString()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withActor(httptest.NewRequest(http.MethodDelete, path, nil), 2, shared.RoleUser))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withActor(httptest.NewRequest(http.MethodDelete, path, nil), 1, shared.RoleAdmin))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 1, deleted)
}
