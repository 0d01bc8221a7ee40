package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/auth"
	"github.com/danseongsa/storefront/internal/services"
)

func TestRouterMountsGroups(t *testing.T) {
	seller := NewSellerHandlers(nil, &stubOrderQuery{}, &stubFulfillment{shipFn: func(_ context.Context, _ domain.Actor, id string) (domain.OrderItem, error) {
		return domain.OrderItem{OrderItemID: id, Status: domain.OrderItemStatusDelivering}, nil
	}}, &stubRefunds{})
	buyer := NewOrderHandlers(nil, &stubOrderQuery{detailFn: func(_ context.Context, _ domain.Actor, id string) (services.OrderDetail, error) {
		return services.OrderDetail{OrderID: id}, nil
	}}, &stubFulfillment{}, &stubRefunds{})

	router := NewRouter(
		WithOrderRoutes(buyer.Routes),
		WithSellerRoutes(seller.Routes),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})),
	)

	do := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "u1"}))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/orders/o1").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/v1/seller/order-items/oi1/ship").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/metrics").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/healthz").Code)

	rr := do(http.MethodGet, "/api/v1/nope")
	require.Equal(t, http.StatusNotFound, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, errorNotFoundCode, body["error"])
	assert.NotEmpty(t, body["request_id"])
}

func TestRouterRoutesRequireMountedGroup(t *testing.T) {
	router := NewRouter()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/orders/o1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReadyzReportsFailingCheck(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	h := NewHealthHandlers(
		WithHealthClock(func() time.Time { return now }),
		WithReadinessCheck("sessionStore", func(context.Context) error { return errors.New("redis down") }),
		WithReadinessCheck("backend", func(context.Context) error { return nil }),
	)
	router := chi.NewRouter()
	router.Get("/readyz", h.Readyz)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body readinessResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, healthStatusDegraded, body.Status)
	assert.Equal(t, []string{"sessionStore: redis down"}, body.Details)
	assert.Equal(t, healthStatusOK, body.Checks["backend"].Status)
}

func TestHealthzReportsBuildInfo(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHealthHandlers(
		WithHealthBuildInfo(BuildInfo{Version: "1.2.0", Environment: "prod", StartedAt: start}),
		WithHealthClock(func() time.Time { return start.Add(90 * time.Second) }),
	)
	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "1.2.0", body.Version)
	assert.Equal(t, "1m30s", body.Uptime)
}
