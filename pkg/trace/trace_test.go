package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"tourhub/pkg/logger"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false}, logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestMiddleware_PassesThrough(t *testing.T) {
	h := Middleware("api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attractions", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestStart_ReturnsSpan(t *testing.T) {
	ctx, span := Start(context.Background(), "booking.create", attribute.String("booking.reference", "TB-AB12CD34"))
	defer span.End()
	assert.NotNil(t, ctx)
}
