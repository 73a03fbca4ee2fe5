package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hrforms/internal/observability"
	"github.com/odyssey-erp/hrforms/jobs"
	_ "github.com/odyssey-erp/hrforms/testing"
)

func newTestRouter(cfg *Config) http.Handler {
	return NewRouter(RouterParams{
		Logger:     NewLogger(cfg),
		Config:     cfg,
		JobHandler: jobs.NewHandler(nil, nil),
		Metrics:    observability.NewMetrics(),
	})
}

func TestRouterHealthAndHeaders(t *testing.T) {
	router := newTestRouter(&Config{AppEnv: "test"})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"default"`)
}

func TestRouterUnknownRouteUsesErrorEnvelope(t *testing.T) {
	router := newTestRouter(&Config{AppEnv: "test"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"message":"Route not found"`)
}

func TestRouterExposesMetrics(t *testing.T) {
	router := newTestRouter(&Config{AppEnv: "test"})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `hrforms_http_requests_total{code="200",route="/healthz"} 1`))
}

func TestRateLimitRespondsWithEnvelope(t *testing.T) {
	router := newTestRouter(&Config{AppEnv: "test", RateLimitPerMinute: 2})
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), "Too many requests")
}
