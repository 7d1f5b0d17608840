package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	paymentshandler "tourhub/internal/payments/handler"
	"tourhub/pkg/client"
	"tourhub/pkg/config"
	"tourhub/pkg/logger"
	"tourhub/pkg/metrics"
)

type echoRoutes struct{}

func (echoRoutes) RegisterRoutes(router *httprouter.Router) {
	ok := func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}
	router.POST(paymentshandler.WebhookPath, ok)
	router.POST("/api/v1/bookings", ok)
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := &config.Config{
		Port:              "0",
		ServiceName:       "tourhub-test",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
		Log:               logger.Nop(),
		Client:            client.NewClient(),
	}
	a := NewApplication(cfg, metrics.New("tourhub_app_test"))
	a.SetApp(echoRoutes{})
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a
}

func TestApplication_ContentTypeExemptsWebhook(t *testing.T) {
	h := newTestApp(t).Handler()

	post := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("t=1,payload"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post(paymentshandler.WebhookPath))
	assert.Equal(t, http.StatusUnsupportedMediaType, post("/api/v1/bookings"))
}

func TestApplication_HealthAndMetrics(t *testing.T) {
	h := newTestApp(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tourhub_app_test_http_requests_total")
}
