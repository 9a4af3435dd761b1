package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/observability"
	"github.com/odyssey-erp/stockledger/internal/shared"
	_ "github.com/odyssey-erp/stockledger/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 30, cfg.StagnantAfterDays)
	require.Equal(t, 10*time.Second, cfg.LockTTL)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("STAGNANT_AFTER_DAYS", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("STAGNANT_AFTER_DAYS", "45")
	t.Setenv("APP_ENV", "production")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 45, cfg.StagnantAfterDays)
	require.True(t, cfg.IsProduction())
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json"}, &buf).Info("hello", slog.String("sku", "A1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "A1", entry["sku"])
}

func TestInTestMode(t *testing.T) {
	require.True(t, InTestMode())
	t.Setenv(TestModeEnv, "false")
	RefreshTestMode()
	require.False(t, InTestMode())
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestActorMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen shared.Actor
	var present bool
	handler := ActorMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, present = shared.ActorFromContext(r.Context())
	}))

	cases := []struct {
		name    string
		id      string
		role    string
		code    int
		present bool
		want    shared.Actor
	}{
		{name: "anonymous", code: http.StatusOK},
		{name: "default role", id: "7", code: http.StatusOK, present: true, want: shared.Actor{ID: 7, Role: shared.RoleUser}},
		{name: "admin", id: "1", role: "admin", code: http.StatusOK, present: true, want: shared.Actor{ID: 1, Role: shared.RoleAdmin}},
		{name: "bad id", id: "abc", code: http.StatusUnauthorized},
		{name: "unknown role", id: "3", role: "root", code: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen, present = shared.Actor{}, false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.id != "" {
				req.Header.Set(HeaderActorID, tc.id)
			}
			if tc.role != "" {
				req.Header.Set(HeaderActorRole, tc.role)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tc.code, rr.Code)
			require.Equal(t, tc.present, present)
			require.Equal(t, tc.want, seen)
		})
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRouterHealthAndMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	healthy := pingFunc(func(context.Context) error { return nil })
	metrics := observability.NewMetrics()

	router := NewRouter(RouterParams{
		Logger:  logger,
		Config:  &Config{RateLimitPerMinute: 100},
		Metrics: metrics,
		Health:  map[string]Pinger{"postgres": healthy, "redis": healthy},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "up", body.Checks["redis"])

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "stockledger_http_requests_total"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterHealthDegraded(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterParams{
		Logger: logger,
		Config: &Config{},
		Health: map[string]Pinger{"redis": pingFunc(func(context.Context) error { return errors.New("refused") })},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "down", body.Checks["redis"])
}
